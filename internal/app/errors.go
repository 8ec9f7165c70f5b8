package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrInvalidSubmission = errors.New("invalid judging submission")
	ErrUnknownFormat     = errors.New("unknown export format")
)

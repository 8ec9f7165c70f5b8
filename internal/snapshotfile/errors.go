package snapshotfile

import "errors"

// Sentinel kinds for snapshot file errors.
var (
	ErrRead  = errors.New("read snapshot file")
	ErrParse = errors.New("parse snapshot file")
	ErrWrite = errors.New("write snapshot file")
)

package config

import "errors"

var (
	// ErrInvalidConfig marks settings that loaded but cannot run a server,
	// e.g. an empty points table or a non-positive team size.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading the config file or environment.
	ErrLoadConfig = errors.New("load config failed")
)

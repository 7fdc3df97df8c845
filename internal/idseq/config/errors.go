package config

import (
	"errors"
	"fmt"
)

type ConfigErrorKind int

const (
	ConfigErrorKindNotFound ConfigErrorKind = iota + 1
	ConfigErrorKindAlreadyExists
	ConfigErrorKindEncode
	ConfigErrorKindDecode
	ConfigErrorKindWrite
	ConfigErrorKindInvalid
)

var (
	ErrConfigNotFound      = errors.New("config: file not found")
	ErrConfigAlreadyExists = errors.New("config: file already exists")
	ErrConfigEncode        = errors.New("config: unable to encode to JSON")
	ErrConfigDecode        = errors.New("config: unable to decode from JSON")
	ErrConfigWrite         = errors.New("config: unable to write to file")
	ErrConfigInvalid       = errors.New("config: invalid settings")
)

var (
	errZeroBatchSize   = errors.New("batch sizes must be positive")
	errBatchBounds     = errors.New("batch size must satisfy min <= batch <= max")
	errZeroThreshold   = errors.New("prefetch threshold must be positive")
	errEmptyCounterKey = errors.New("counter key must not be empty")
	errUnknownBackend  = errors.New("backend must be \"file\" or \"log\"")
)

type ConfigError struct {
	Kind ConfigErrorKind
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	cause := e.Err
	if cause == nil {
		cause = e.Unwrap()
	}
	if e.Path != "" {
		return fmt.Sprintf("config error at %s: %v", e.Path, cause)
	}
	return fmt.Sprintf("config error: %v", cause)
}

func (e *ConfigError) Unwrap() error {
	switch e.Kind {
	case ConfigErrorKindNotFound:
		return ErrConfigNotFound
	case ConfigErrorKindAlreadyExists:
		return ErrConfigAlreadyExists
	case ConfigErrorKindEncode:
		return ErrConfigEncode
	case ConfigErrorKindDecode:
		return ErrConfigDecode
	case ConfigErrorKindWrite:
		return ErrConfigWrite
	case ConfigErrorKindInvalid:
		return ErrConfigInvalid
	default:
		return e.Err
	}
}

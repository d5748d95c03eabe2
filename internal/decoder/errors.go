package decoder

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorCode identifies an engine failure.
type ErrorCode int

const (
	ErrUnknown ErrorCode = iota
	ErrEngineDied
	ErrSystem
	ErrIO
	ErrMalformed
	ErrUnsupported
	ErrNotProgressive
	ErrTimedOut
	ErrInvalidOperation
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrUnknown:
		return "unknown"
	case ErrEngineDied:
		return "engine died"
	case ErrSystem:
		return "system error"
	case ErrIO:
		return "i/o error"
	case ErrMalformed:
		return "malformed media"
	case ErrUnsupported:
		return "unsupported"
	case ErrNotProgressive:
		return "not valid for progressive playback"
	case ErrTimedOut:
		return "timed out"
	case ErrInvalidOperation:
		return "invalid operation"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// EngineError is an error reported by an engine.
type EngineError struct {
	Code  ErrorCode
	Extra int
	Err   error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	if e.Extra != 0 {
		return fmt.Sprintf("%s (extra=%d)", e.Code, e.Extra)
	}
	return e.Code.String()
}

func (e *EngineError) Unwrap() error { return e.Err }

// Severity is how a session reacts to an engine error.
type Severity int

const (
	// SeverityTrack errors are bound to the current track. The session
	// recycles itself and can be reused.
	SeverityTrack Severity = iota
	// SeverityTimeout is reported as an internal error but the session
	// recycles itself.
	SeverityTimeout
	// SeveritySession errors destroy the session.
	SeveritySession
	// SeverityBug means the engine was driven incorrectly.
	SeverityBug
)

// Classify maps an error code to its severity. Codes that are not
// recognized are session fatal.
func Classify(code ErrorCode) Severity {
	switch code {
	case ErrIO, ErrMalformed, ErrUnsupported, ErrNotProgressive:
		return SeverityTrack
	case ErrTimedOut:
		return SeverityTimeout
	case ErrInvalidOperation:
		return SeverityBug
	default:
		return SeveritySession
	}
}

// AsEngineError returns err as an *EngineError, wrapping it with fallback
// when err carries no code.
func AsEngineError(err error, fallback ErrorCode) *EngineError {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return &EngineError{Code: fallback, Err: err}
}

// CodeOf returns the engine error code carried by err, or ErrUnknown.
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ErrUnknown
}

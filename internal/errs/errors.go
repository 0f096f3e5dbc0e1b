package errs

import (
	"errors"
	"fmt"
)

// Kind classifies failures so batch operations can report per-item outcomes
// instead of collapsing into a single error.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindTransient
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindConfig:
		return "config"
	}
	return "unknown"
}

// Error is the common error type for the pipeline. Use the constructors below
// rather than building it by hand.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Msg: msg, Err: err}
}

func Transient(msg string, err error) error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

func Config(format string, args ...interface{}) error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

func IsValidation(err error) bool { return IsKind(err, KindValidation) }
func IsNotFound(err error) bool   { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool   { return IsKind(err, KindConflict) }
func IsTransient(err error) bool  { return IsKind(err, KindTransient) }
func IsConfig(err error) bool     { return IsKind(err, KindConfig) }

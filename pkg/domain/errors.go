package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every failure surfaced by the record store matches exactly
// one of these via errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrDuplicate     = errors.New("duplicate record")
	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("invalid status transition")
	ErrInvalidInput  = errors.New("invalid input")
	ErrCorruptRecord = errors.New("corrupt record")
	ErrBusy          = errors.New("store busy")
	ErrIO            = errors.New("storage unavailable")
)

// Error carries the operation context a caller needs to render a failure.
type Error struct {
	Op     string // add, update, delete, get, adjust, ...
	Kind   Kind
	Key    string
	Err    error // one of the Err* categories
	Detail string
	Cause  error // underlying error, when there is one
}

// NewError builds an Error for the category err.
func NewError(op string, kind Kind, key string, err error, detail string) *Error {
	return &Error{Op: op, Kind: kind, Key: key, Err: err, Detail: detail}
}

// WithCause attaches an underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Kind != "" {
		b.WriteString(" ")
		b.WriteString(e.Kind.Label())
	}
	if e.Key != "" {
		b.WriteString(" ")
		b.WriteString(e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the category and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// CorruptRecordError reports a persisted line that could not be decoded.
type CorruptRecordError struct {
	Kind   Kind
	Line   int // 1-based; zero when decoding a single line outside a table
	Reason string
}

func (e *CorruptRecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("corrupt %s record at line %d: %s", e.Kind.Label(), e.Line, e.Reason)
	}
	return fmt.Sprintf("corrupt %s record: %s", e.Kind.Label(), e.Reason)
}

// Is matches ErrCorruptRecord.
func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

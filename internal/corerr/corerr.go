// Package corerr defines the error vocabulary shared by the editing core.
package corerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error raised anywhere in the editing core.
type Kind int

const (
	// OutOfRange: a TextBlock mutation addressed a nonexistent line, or a
	// transaction's anchor no longer maps into the block.
	OutOfRange Kind = iota
	// InvalidState: a transaction was rolled back twice, a supplier was
	// resolved twice, or an operation targeted a closed stream.
	InvalidState
	// Encoding: a byte sequence could not be decoded under the active codec.
	Encoding
	// Listener: a listener callback returned an error.
	Listener
	// CoreCorruption: an invariant was violated. Fatal; callers should stop
	// mutating the affected multiplexer.
	CoreCorruption
)

func (k Kind) String() string {
	switch k {
	case OutOfRange:
		return "out of range"
	case InvalidState:
		return "invalid state"
	case Encoding:
		return "encoding"
	case Listener:
		return "listener"
	case CoreCorruption:
		return "core corruption"
	default:
		return "unknown"
	}
}

// Error is a kinded error with an optional wrapped cause.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// New creates a kinded error carrying a stack trace via github.com/pkg/errors.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg, err: errors.New(msg)}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap annotates err with a kind and message, preserving err as the cause.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, err: errors.Wrap(err, msg)}
}

// Is reports whether err (or any error it wraps) has the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			if e.Kind == kind {
				return true
			}
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// Package errs defines the error kinds reported by the MRCZ container codec.
//
// Every failure surfaced by the header, volume, compression and stream
// packages is an *Error carrying one Kind. All kinds are terminal to the
// current read or write; nothing is retried internally.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	// Internal indicates an unexpected condition, such as using a failed stream.
	Internal Kind = iota
	// IO indicates an open, read, write or seek failure at the storage boundary.
	IO
	// MalformedHeader indicates a short or structurally inconsistent header.
	MalformedHeader
	// UnsupportedType indicates an unknown element type, compressor or filter.
	UnsupportedType
	// Compression indicates that a codec call failed or a frame is corrupt.
	Compression
	// Allocation indicates a buffer size that cannot be represented.
	Allocation
)

var kindNames = [...]string{
	Internal:        "internal error",
	IO:              "i/o error",
	MalformedHeader: "malformed header",
	UnsupportedType: "unsupported type",
	Compression:     "compression error",
	Allocation:      "allocation error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is a kinded error with an optional operation name and cause.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "header.Decode"
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind and no message, which lets
// the package-level sentinels be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrIO              = &Error{Kind: IO}
	ErrMalformedHeader = &Error{Kind: MalformedHeader}
	ErrUnsupportedType = &Error{Kind: UnsupportedType}
	ErrCompression     = &Error{Kind: Compression}
	ErrAllocation      = &Error{Kind: Allocation}
)

// Errorf constructs an Error of the given kind.
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IOf constructs an IO error wrapping err.
func IOf(op string, err error, format string, args ...interface{}) error {
	return Wrap(IO, op, err, format, args...)
}

// MalformedHeaderf constructs a MalformedHeader error.
func MalformedHeaderf(op, format string, args ...interface{}) error {
	return Errorf(MalformedHeader, op, format, args...)
}

// UnsupportedTypef constructs an UnsupportedType error.
func UnsupportedTypef(op, format string, args ...interface{}) error {
	return Errorf(UnsupportedType, op, format, args...)
}

// Compressionf constructs a Compression error.
func Compressionf(op, format string, args ...interface{}) error {
	return Errorf(Compression, op, format, args...)
}

// Allocationf constructs an Allocation error.
func Allocationf(op, format string, args ...interface{}) error {
	return Errorf(Allocation, op, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

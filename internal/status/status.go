// Package status defines the error codes shared by every layer of the pooling core.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a flat error code. The zero value is Success.
type Code int

// Error codes. The order is stable: codes are compared and reported numerically
// by host adapters.
const (
	Success Code = iota
	Unsupported
	DeviceFailure
	PrimitivesFailure
	BLASFailure
	OutOfMemory
	OutOfGPUMemory
	IllegalArgument
	Unknown
	Timeout
	NoData
	IllegalMessage
	Interrupted
)

var messages = [...]string{
	Success:           "success",
	Unsupported:       "unsupported error",
	DeviceFailure:     "GPU device error",
	PrimitivesFailure: "GPU primitives library error",
	BLASFailure:       "BLAS error",
	OutOfMemory:       "out of memory error",
	OutOfGPUMemory:    "out of GPU memory error",
	IllegalArgument:   "illegal argument error",
	Unknown:           "unknown error",
	Timeout:           "timeout",
	NoData:            "no data",
	IllegalMessage:    "illegal message",
	Interrupted:       "interrupted",
}

// Message returns the short machine string for code.
func Message(code Code) string {
	if code < 0 || int(code) >= len(messages) {
		return messages[Unknown]
	}
	return messages[code]
}

// String implements fmt.Stringer.
func (c Code) String() string {
	return Message(c)
}

// Error is an error carrying a Code.
type Error struct {
	Code    Code
	Message string
}

// New creates an *Error with a formatted message.
func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return Message(e.Code)
	}
	return Message(e.Code) + ": " + e.Message
}

// CodeOf extracts the code carried by err.
// nil maps to Success and errors that carry no code map to Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Unknown
}

// Wrap annotates err with message, keeping its code. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil || message == "" {
		return err
	}
	return errors.WithMessage(err, message)
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package status defines the error codes returned by the pooling core.
//
// Every error the core returns carries a Code:
//
//	if err := op.Forward(out, in); err != nil {
//	    switch status.CodeOf(err) {
//	    case status.Unsupported:
//	        // fall back to another implementation
//	    case status.OutOfGPUMemory:
//	        // free device memory and retry
//	    }
//	}
package status

import "github.com/born-ml/poolcore/internal/status"

// Code is a flat error code. The zero value is Success.
type Code = status.Code

// Error is an error carrying a Code.
type Error = status.Error

// Error codes.
const (
	Success           Code = status.Success
	Unsupported       Code = status.Unsupported
	DeviceFailure     Code = status.DeviceFailure
	PrimitivesFailure Code = status.PrimitivesFailure
	BLASFailure       Code = status.BLASFailure
	OutOfMemory       Code = status.OutOfMemory
	OutOfGPUMemory    Code = status.OutOfGPUMemory
	IllegalArgument   Code = status.IllegalArgument
	Unknown           Code = status.Unknown
	Timeout           Code = status.Timeout
	NoData            Code = status.NoData
	IllegalMessage    Code = status.IllegalMessage
	Interrupted       Code = status.Interrupted
)

// Message returns the short machine string for code.
func Message(code Code) string {
	return status.Message(code)
}

// New creates an error with a code and a formatted message.
func New(code Code, format string, args ...any) error {
	return status.New(code, format, args...)
}

// CodeOf extracts the code carried by err.
func CodeOf(err error) Code {
	return status.CodeOf(err)
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return status.Is(err, code)
}

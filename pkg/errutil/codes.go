// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil defines the bridge error taxonomy and helpers for turning
// errors into host status codes and structured log records.
package errutil

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes attached with oops.Code. Every error returned across a package
// boundary in this module carries exactly one of them.
const (
	// CodeLoadFailure means the managed library or a required symbol is missing.
	CodeLoadFailure = "LOAD_FAILURE"
	// CodePrecondition means a null handle, empty name, or consumed handle was passed.
	CodePrecondition = "PRECONDITION_VIOLATION"
	// CodeHostRejected means a host primitive reported failure.
	CodeHostRejected = "HOST_REJECTED"
	// CodeManagedOpenFailed means the managed module's open callback returned non-zero.
	CodeManagedOpenFailed = "MANAGED_OPEN_FAILED"
	// CodeConfigInvalid means configuration could not be loaded or validated.
	CodeConfigInvalid = "CONFIG_INVALID"
)

// Host status codes, matching the values the host uses for its own returns.
const (
	StatusSuccess = 0
	StatusGeneric = -1
	StatusNoMem   = -2
)

// statusKey is the oops context key holding a verbatim host or module status.
const statusKey = "status"

// Sentinel errors for programmatic checks. They are wrapped with oops codes
// by the producing packages, so errors.Is works on the returned error.
var (
	ErrNullObject      = errors.New("null object handle")
	ErrNullName        = errors.New("null variable name")
	ErrNullArgument    = errors.New("required argument is nil")
	ErrHandleConsumed  = errors.New("listener handle already removed")
	ErrNotInitialized  = errors.New("module not initialized")
	ErrSymbolMissing   = errors.New("required symbol missing")
	ErrLibraryNotFound = errors.New("managed library not found")
)

// Precondition returns a PRECONDITION_VIOLATION error wrapping sentinel.
func Precondition(op string, sentinel error) error {
	return oops.Code(CodePrecondition).With("operation", op).Wrap(sentinel)
}

// HostRejected returns a HOST_REJECTED error carrying the host's status verbatim.
func HostRejected(op string, status int) error {
	return oops.Code(CodeHostRejected).
		With("operation", op).
		With(statusKey, status).
		Errorf("host rejected %s with status %d", op, status)
}

// Status maps err to a host status code. A nil error is StatusSuccess; an
// error carrying a verbatim status returns it; anything else is StatusGeneric.
func Status(err error) int {
	if err == nil {
		return StatusSuccess
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if v, ok := oopsErr.Context()[statusKey]; ok {
			if status, ok := v.(int); ok {
				return status
			}
		}
	}
	return StatusGeneric
}

// HasCode reports whether err is an oops error tagged with code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}

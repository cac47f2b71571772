// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustOops fails the test immediately unless err carries oops metadata.
func mustOops(t testing.TB, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "want an oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode checks the oops code on err.
func AssertErrorCode(t testing.TB, err error, code string) {
	t.Helper()
	assert.Equalf(t, code, mustOops(t, err).Code(), "code of %v", err)
}

// AssertErrorContext checks that err carries key in its oops context with
// the given value.
func AssertErrorContext(t testing.TB, err error, key string, value any) {
	t.Helper()
	got, ok := mustOops(t, err).Context()[key]
	if assert.Truef(t, ok, "context key %q missing from %v", key, err) {
		assert.Equal(t, value, got)
	}
}

// AssertStatus checks the host status err maps to.
func AssertStatus(t testing.TB, err error, status int) {
	t.Helper()
	assert.Equalf(t, status, Status(err), "status for %v", err)
}

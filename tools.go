// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build tools

// Package tools pins the ginkgo CLI used to run the integration suites
// (ginkgo -tags integration ./...).
package tools

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
)

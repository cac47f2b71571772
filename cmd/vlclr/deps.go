// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"
	"time"

	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/internal/loader/luamod"
	"github.com/mfkl/vlclr/internal/observability"
)

// HarnessDeps contains injectable dependencies for the harness commands.
// All fields with nil values will use their default implementations.
type HarnessDeps struct {
	// OpenerFactory creates the library opener. services is nil for
	// commands that expose no script services.
	// Default: defaultOpener
	OpenerFactory func(services luamod.Services, timeout time.Duration, logger *slog.Logger) loader.Opener

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, opts ...observability.Option) *observability.Server
}

func (d *HarnessDeps) withDefaults() *HarnessDeps {
	out := HarnessDeps{}
	if d != nil {
		out = *d
	}
	if out.OpenerFactory == nil {
		out.OpenerFactory = defaultOpener
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = observability.NewServer
	}
	return &out
}

// defaultOpener opens .lua files as script modules and everything else with
// the dynamic linker.
func defaultOpener(services luamod.Services, timeout time.Duration, logger *slog.Logger) loader.Opener {
	opts := []luamod.Option{luamod.WithCallTimeout(timeout), luamod.WithLogger(logger)}
	if services != nil {
		opts = append(opts, luamod.WithServices(services))
	}
	return &loader.ExtensionOpener{
		Default: loader.DynamicOpener{},
		Extensions: map[string]loader.Opener{
			".lua": luamod.NewOpener(opts...),
		},
	}
}

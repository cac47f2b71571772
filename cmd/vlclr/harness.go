// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mfkl/vlclr/internal/config"
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/internal/host/memhost"
	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/internal/logging"
	"github.com/mfkl/vlclr/internal/observability"
	"github.com/mfkl/vlclr/internal/plugin"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// harness is the in-memory host a command drives a module against.
type harness struct {
	cfg     *config.Config
	deps    *HarnessDeps
	logger  *slog.Logger
	host    *memhost.Host
	root    host.ObjectHandle
	metrics *observability.Metrics
	server  *observability.Server
	ready   atomic.Bool
}

// newHarness loads configuration and sets up logging, the host and the
// optional observability server.
func newHarness(cmd *cobra.Command, deps *HarnessDeps) (*harness, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	stderr := logging.NewHandler(logging.HostModule, version, cfg.Log.Format, cfg.SlogLevel(), cmd.ErrOrStderr())
	h := memhost.New(memhost.WithLogger(slog.New(stderr)))
	root := h.NewObject(0, "libvlc")

	hs := &harness{
		cfg:  cfg,
		deps: deps.withDefaults(),
		host: h,
		root: root,
		logger: slog.New(logging.Tee(
			stderr,
			logging.NewHostHandler(h, root, logging.HostModule, cfg.SlogLevel()),
		)),
	}

	if cfg.Metrics.Addr != "" {
		hs.server = hs.deps.ObservabilityServerFactory(cfg.Metrics.Addr, hs.ready.Load, observability.WithLogger(hs.logger))
		errCh, err := hs.server.Start()
		if err != nil {
			return nil, oops.With("addr", cfg.Metrics.Addr).Wrapf(err, "failed to start observability server")
		}
		go func() {
			for err := range errCh {
				hs.logger.Error("observability server error", "error", err)
			}
		}()
		hs.metrics = hs.server.Metrics()
	}

	return hs, nil
}

func (hs *harness) loaderMetrics() *loader.Metrics {
	if hs.metrics == nil {
		return nil
	}
	return hs.metrics.Loader
}

// resolve returns the loader configuration for the configured module. A
// module name is looked up in the modules directory for capability; a
// library is used as configured.
func (hs *harness) resolve(ctx context.Context, capability plugin.Capability) (loader.Config, error) {
	if err := hs.cfg.RequireModule(); err != nil {
		return loader.Config{}, err
	}
	if hs.cfg.Module.Name == "" {
		lc := hs.cfg.LoaderConfig()
		lc.Variant = capability.Variant()
		return lc, nil
	}

	dir, err := hs.cfg.ModulesDir()
	if err != nil {
		return loader.Config{}, err
	}
	catalog := plugin.NewCatalog(dir, plugin.WithCatalogLogger(hs.logger))
	if _, err := catalog.Discover(ctx); err != nil {
		return loader.Config{}, err
	}
	found, ok := catalog.Lookup(capability, hs.cfg.Module.Name)
	if !ok {
		return loader.Config{}, oops.Code(errutil.CodeLoadFailure).
			In("harness").
			With("module", hs.cfg.Module.Name).
			With("capability", string(capability)).
			With("dir", dir).
			Wrapf(errutil.ErrLibraryNotFound, "no module matches")
	}
	hs.logger.Debug("module resolved",
		"module", found.Descriptor.Name,
		"library", found.Descriptor.Library,
		"dir", found.Dir)

	lc := found.LoaderConfig()
	if len(hs.cfg.Module.SearchDirs) > 0 {
		lc.SearchDirs = append(lc.SearchDirs, hs.cfg.Module.SearchDirs...)
	}
	return lc, nil
}

// newLoader creates the loader for lc with the harness opener and metrics.
func (hs *harness) newLoader(lc loader.Config, opener loader.Opener) *loader.Loader {
	return loader.New(lc,
		loader.WithOpener(opener),
		loader.WithLogger(hs.logger),
		loader.WithMetrics(hs.loaderMetrics()),
	)
}

// Close stops the observability server.
func (hs *harness) Close() {
	hs.ready.Store(false)
	if hs.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.server.Stop(ctx); err != nil {
		errutil.LogError(hs.logger, "failed to stop observability server", err)
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mfkl/vlclr/internal/control"
	"github.com/mfkl/vlclr/internal/events"
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/internal/host/memhost"
	"github.com/mfkl/vlclr/internal/plugin"
	"github.com/mfkl/vlclr/internal/varproxy"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// firstMedia is the handle of the first playlist item; items are numbered
// consecutively from it.
const firstMedia host.MediaHandle = 0x1000

// activateConfig holds configuration for the activate command.
type activateConfig struct {
	items int
	steps int
}

// Validate checks that the configuration is valid.
func (cfg *activateConfig) Validate() error {
	if cfg.items < 0 {
		return oops.Code(errutil.CodeConfigInvalid).With("items", cfg.items).Errorf("items must not be negative")
	}
	if cfg.steps < 0 {
		return oops.Code(errutil.CodeConfigInvalid).With("steps", cfg.steps).Errorf("steps must not be negative")
	}
	return nil
}

// NewActivateCmd creates the activate subcommand.
func NewActivateCmd(deps *HarnessDeps) *cobra.Command {
	cfg := &activateConfig{}

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate an interface module against an in-memory player",
		Long: `Activate loads an interface module, opens it on an in-memory interface
object, starts a playlist and advances it, then closes the module and
reports the player status. Player events reach the module through its
subscriptions while the playlist advances.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			hs, err := newHarness(cmd, deps)
			if err != nil {
				return err
			}
			defer hs.Close()
			return runActivate(cmd, hs, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.items, "items", 3, "number of playlist items")
	cmd.Flags().IntVar(&cfg.steps, "steps", 1, "number of times to advance the playlist")

	return cmd
}

func runActivate(cmd *cobra.Command, hs *harness, cfg *activateConfig) error {
	lc, err := hs.resolve(cmd.Context(), plugin.CapabilityInterface)
	if err != nil {
		return err
	}

	player := memhost.NewPlayer()
	player.SetCapabilities(host.CapSeek | host.CapPause)
	playlist := memhost.NewPlaylist(player)
	for i := range cfg.items {
		playlist.Append(firstMedia + host.MediaHandle(i))
	}
	intf := hs.host.NewObject(hs.root, "interface")

	var bridgeOpts []events.Option
	bridgeOpts = append(bridgeOpts, events.WithLogger(hs.logger))
	if hs.metrics != nil {
		bridgeOpts = append(bridgeOpts, events.WithMetrics(hs.metrics.Events))
	}
	proxy := varproxy.New(hs.host, varproxy.WithLogger(hs.logger))
	surface := control.New(control.WithLogger(hs.logger))
	bridge := events.New(bridgeOpts...)

	svc := plugin.NewScriptServices(proxy, surface, bridge, plugin.WithServicesLogger(hs.logger))
	svc.Attach(intf, memhost.NewInterface(playlist))
	defer svc.Detach(intf)

	l := hs.newLoader(lc, hs.deps.OpenerFactory(svc, hs.cfg.Module.CallTimeout, hs.logger))
	p := plugin.NewInterfacePlugin(l,
		plugin.WithLogger(hs.logger),
		plugin.WithTeardown(svc.Close),
	)

	if err := p.Open(intf); err != nil {
		return err
	}
	hs.ready.Store(true)
	hs.logger.Info("module activated", "path", l.Module().Path(), "variant", l.Module().Variant())

	var (
		delivered int
		runErr    error
	)
	if cfg.items > 0 {
		delivered, runErr = drivePlaylist(hs, surface, playlist, cfg.steps, p.Pump)
	}
	status := surface.Status(player)
	listeners := player.Listeners()

	hs.ready.Store(false)
	closeErr := p.Close(intf)

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "state: %s\n", status.State)
	_, _ = fmt.Fprintf(out, "item: %d/%d\n", surface.CurrentIndex(playlist)+1, surface.Count(playlist))
	_, _ = fmt.Fprintf(out, "listeners: %d\n", listeners)
	_, _ = fmt.Fprintf(out, "events delivered: %d\n", delivered)
	_, _ = fmt.Fprintf(out, "variables: %d\n", hs.host.Variables())
	_, _ = fmt.Fprintf(out, "host log records: %d\n", len(hs.host.Records()))

	return errors.Join(runErr, closeErr)
}

// drivePlaylist starts the playlist and advances it steps times, stopping at
// the end of the list. Queued module events are pumped after every transport
// call, once the host has released its locks. It returns how many ran.
func drivePlaylist(hs *harness, surface *control.Surface, playlist *memhost.Playlist, steps int, pump func() int) (int, error) {
	if err := surface.Start(playlist); err != nil {
		return 0, err
	}
	delivered := pump()
	for i := range steps {
		if !surface.HasNext(playlist) {
			hs.logger.Info("end of playlist", "steps", i)
			return delivered, nil
		}
		if err := surface.Next(playlist); err != nil {
			return delivered, err
		}
		delivered += pump()
	}
	return delivered, nil
}

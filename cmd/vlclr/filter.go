// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/internal/plugin"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// filterConfig holds configuration for the filter command.
type filterConfig struct {
	frames int
	width  int
	height int
}

// Validate checks that the configuration is valid.
func (cfg *filterConfig) Validate() error {
	if cfg.frames < 0 {
		return oops.Code(errutil.CodeConfigInvalid).With("frames", cfg.frames).Errorf("frames must not be negative")
	}
	if cfg.width <= 0 || cfg.height <= 0 {
		return oops.Code(errutil.CodeConfigInvalid).
			With("width", cfg.width).
			With("height", cfg.height).
			Errorf("frame size must be positive")
	}
	return nil
}

// NewFilterCmd creates the filter subcommand.
func NewFilterCmd(deps *HarnessDeps) *cobra.Command {
	cfg := &filterConfig{}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Run a video filter module over generated RGBA frames",
		Long: `Filter loads a video filter module, opens a filter instance for an RGBA
format, feeds it a gradient test pattern and reports how many frames the
module modified.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			hs, err := newHarness(cmd, deps)
			if err != nil {
				return err
			}
			defer hs.Close()
			return runFilter(cmd, hs, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.frames, "frames", 10, "number of frames to filter")
	cmd.Flags().IntVar(&cfg.width, "width", 64, "frame width in pixels")
	cmd.Flags().IntVar(&cfg.height, "height", 36, "frame height in pixels")

	return cmd
}

func runFilter(cmd *cobra.Command, hs *harness, cfg *filterConfig) error {
	lc, err := hs.resolve(cmd.Context(), plugin.CapabilityVideoFilter)
	if err != nil {
		return err
	}

	opts := []plugin.Option{plugin.WithLogger(hs.logger)}
	if hs.metrics != nil {
		opts = append(opts, plugin.WithFrameMetrics(hs.metrics.Frames))
	}
	vf := plugin.NewVideoFilterPlugin(hs.newLoader(lc, hs.deps.OpenerFactory(nil, hs.cfg.Module.CallTimeout, hs.logger)), hs.host, opts...)

	format := host.VideoFormat{
		Chroma: host.ChromaRGBA,
		Width:  uint32(cfg.width),  //nolint:gosec // validated positive
		Height: uint32(cfg.height), //nolint:gosec // validated positive
	}
	obj := hs.host.NewObject(hs.root, "video filter")
	f, err := vf.Open(obj, format)
	if f == nil {
		return errors.Join(err, vf.Shutdown())
	}
	if err != nil {
		// The filter passes frames through unchanged.
		errutil.LogError(hs.logger, "managed filter open failed", err)
	}
	hs.ready.Store(true)

	modified := 0
	for i := range cfg.frames {
		pic := testPattern(cfg.width, cfg.height, i)
		before := bytes.Clone(pic.Planes[0].Pixels)
		f.Process(pic)
		if !bytes.Equal(before, pic.Planes[0].Pixels) {
			modified++
		}
	}
	processed := f.Frames()
	initialized := f.Initialized()

	hs.ready.Store(false)
	vf.CloseFilter(f)
	shutdownErr := vf.Shutdown()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "format: %s %dx%d\n", format.Chroma, format.Width, format.Height)
	_, _ = fmt.Fprintf(out, "initialized: %t\n", initialized)
	_, _ = fmt.Fprintf(out, "frames: %d\n", cfg.frames)
	_, _ = fmt.Fprintf(out, "filtered: %d\n", processed)
	_, _ = fmt.Fprintf(out, "modified: %d\n", modified)

	return shutdownErr
}

// testPattern returns an RGBA frame with a horizontal red gradient, a
// vertical green gradient and blue set from n.
func testPattern(width, height, n int) *host.Picture {
	pitch := width * 4
	pixels := make([]byte, pitch*height)
	for y := range height {
		for x := range width {
			off := y*pitch + x*4
			pixels[off] = byte(x * 255 / max(width-1, 1))
			pixels[off+1] = byte(y * 255 / max(height-1, 1))
			pixels[off+2] = byte(n)
			pixels[off+3] = 0xff
		}
	}
	return &host.Picture{Planes: []host.Plane{{
		Pixels:       pixels,
		Pitch:        int32(pitch),  //nolint:gosec // bounded by flag validation
		Lines:        int32(height), //nolint:gosec // bounded by flag validation
		VisiblePitch: int32(pitch),  //nolint:gosec // bounded by flag validation
		VisibleLines: int32(height), //nolint:gosec // bounded by flag validation
	}}}
}

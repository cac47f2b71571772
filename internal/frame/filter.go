// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package frame hands decoded video frames to a managed filter.
//
// The pixel buffer of plane 0 is lent to the managed module for the duration
// of one call; the module may write into it. Nothing is copied or retained.
package frame

import (
	"log/slog"
	"sync"
	"unsafe"

	"github.com/samber/oops"

	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// DefaultLogInterval is how many frames pass between progress log lines.
const DefaultLogInterval = 100

// Filter is one video filter instance. A filter whose managed open failed
// stays usable and passes every frame through untouched.
//
// The host calls a filter instance from one thread at a time; Filter also
// serializes internally.
type Filter struct {
	obj         host.ObjectHandle
	format      host.VideoFormat
	entries     loader.EntryPoints
	logger      *slog.Logger
	metrics     *Metrics
	logInterval uint64

	mu           sync.Mutex
	initialized  bool
	closed       bool
	frames       uint64
	warnedOpaque bool
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) {
		f.logger = logger
	}
}

// WithMetrics enables frame metrics.
func WithMetrics(m *Metrics) Option {
	return func(f *Filter) {
		f.metrics = m
	}
}

// WithLogInterval sets how many frames pass between progress log lines.
// Zero disables them.
func WithLogInterval(n uint64) Option {
	return func(f *Filter) {
		f.logInterval = n
	}
}

// Open creates a filter for frames of format and calls the module's
// filter_open. The chroma description, if the host knows the chroma, is
// only logged.
//
// If filter_open reports failure the returned filter is in pass-through mode
// and the error carries MANAGED_OPEN_FAILED with the module's status. The
// caller may keep or discard the filter.
func Open(obj host.ObjectHandle, format host.VideoFormat, module *loader.Module, describer host.ChromaDescriber, opts ...Option) (*Filter, error) {
	if module == nil || module.Entries().FilterOpen == nil || module.Entries().FilterFrame == nil {
		return nil, errutil.Precondition("filter_open", errutil.ErrNotInitialized)
	}

	f := &Filter{
		obj:         obj,
		format:      format,
		entries:     module.Entries(),
		logger:      slog.Default(),
		logInterval: DefaultLogInterval,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("chroma", format.Chroma.String(), "width", format.Width, "height", format.Height)

	f.describeChroma(describer)

	status := f.entries.FilterOpen(uintptr(obj), int32(format.Width), int32(format.Height), uint32(format.Chroma))
	if status != 0 {
		f.logger.Error("managed filter open failed", "status", status)
		return f, oops.Code(errutil.CodeManagedOpenFailed).
			In("frame").
			With("operation", "filter_open").
			With("status", int(status)).
			Errorf("managed filter open returned %d", status)
	}

	f.initialized = true
	f.logger.Info("filter opened")
	return f, nil
}

func (f *Filter) describeChroma(describer host.ChromaDescriber) {
	if describer == nil {
		return
	}
	desc, ok := describer.DescribeChroma(f.format.Chroma)
	switch {
	case !ok:
		f.logger.Warn("unknown chroma, proceeding anyway")
	case desc.PlaneCount == 0:
		f.logger.Warn("chroma has no planes, proceeding anyway")
	default:
		f.logger.Info("chroma description",
			"planes", desc.PlaneCount,
			"pixel_size", desc.PixelSize,
			"pixel_bits", desc.PixelBits)
	}
}

// Initialized reports whether the managed filter opened successfully.
func (f *Filter) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized && !f.closed
}

// Frames returns the number of frames handed to the managed module.
func (f *Filter) Frames() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

// Process lets the managed module modify plane 0 of pic in place and returns
// pic. Frames are passed through untouched when the filter is not
// initialized, has no planes, or plane 0 is smaller than its geometry.
func (f *Filter) Process(pic *host.Picture) *host.Picture {
	if pic == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.initialized || f.closed {
		f.metrics.record("passthrough_uninitialized")
		return pic
	}

	if len(pic.Planes) == 0 {
		if !f.warnedOpaque {
			f.warnedOpaque = true
			f.logger.Warn("opaque picture format (0 planes), frames pass through")
		}
		f.metrics.record("passthrough_opaque")
		return pic
	}

	plane := pic.Planes[0]
	need := int(plane.Pitch) * int(plane.VisibleLines)
	if len(plane.Pixels) == 0 || plane.Pitch <= 0 || plane.VisibleLines <= 0 ||
		plane.VisiblePitch < 0 || plane.VisiblePitch > plane.Pitch || len(plane.Pixels) < need {
		f.metrics.record("passthrough_invalid")
		return pic
	}

	f.frames++
	if f.logInterval > 0 && f.frames%f.logInterval == 0 {
		f.logger.Info("frames processed", "frames", f.frames)
	}

	f.entries.FilterFrame(uintptr(f.obj),
		unsafe.Pointer(&plane.Pixels[0]),
		plane.Pitch,
		plane.VisiblePitch,
		plane.VisibleLines,
		uint32(f.format.Chroma))
	f.metrics.record("filtered")
	return pic
}

// Close calls the module's filter_close if the filter opened. The library
// stays loaded: other filter instances may share it. Close is idempotent.
func (f *Filter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true

	if f.initialized && f.entries.FilterClose != nil {
		f.entries.FilterClose(uintptr(f.obj))
	}
	f.logger.Info("filter closed", "frames", f.frames)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/mfkl/vlclr/internal/frame"
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// options holds settings shared by the entry points.
type options struct {
	logger       *slog.Logger
	teardown     []func() error
	frameMetrics *frame.Metrics
}

// Option configures an entry point.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTeardown registers fn to run after the managed close and before the
// library is unloaded. Teardown functions run in registration order.
func WithTeardown(fn func() error) Option {
	return func(o *options) {
		o.teardown = append(o.teardown, fn)
	}
}

// WithFrameMetrics enables frame metrics on filters opened by a
// VideoFilterPlugin.
func WithFrameMetrics(m *frame.Metrics) Option {
	return func(o *options) {
		o.frameMetrics = m
	}
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) runTeardown() error {
	var errs []error
	for _, fn := range o.teardown {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkVariant(m *loader.Module, want loader.Variant) error {
	if m.Variant() != want {
		return oops.Code(errutil.CodeLoadFailure).
			In("plugin").
			With("variant", m.Variant().String()).
			With("want", want.String()).
			Errorf("module loaded as %s, capability needs %s", m.Variant(), want)
	}
	return nil
}

// InterfacePlugin serves the host's interface capability.
type InterfacePlugin struct {
	loader *loader.Loader
	opts   options

	mu     sync.Mutex
	opened host.ObjectHandle
}

// NewInterfacePlugin creates an interface entry point backed by l.
func NewInterfacePlugin(l *loader.Loader, opts ...Option) *InterfacePlugin {
	return &InterfacePlugin{loader: l, opts: newOptions(opts)}
}

// Open loads the managed module and calls its open with obj. If open reports
// failure the module is unloaded and the error carries MANAGED_OPEN_FAILED
// with the module's status.
func (p *InterfacePlugin) Open(obj host.ObjectHandle) error {
	if obj.IsNull() {
		return errutil.Precondition("interface_open", errutil.ErrNullObject)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.loader.Initialize()
	if err != nil {
		p.opts.logger.Error("managed module load failed", "error", err)
		return err
	}
	if err := checkVariant(m, loader.VariantInterface); err != nil {
		p.cleanup()
		return err
	}

	status := m.Entries().Open(uintptr(obj))
	if status != 0 {
		p.opts.logger.Error("managed open failed", "status", status)
		if err := p.opts.runTeardown(); err != nil {
			p.opts.logger.Warn("teardown after failed open", "error", err)
		}
		p.cleanup()
		return oops.Code(errutil.CodeManagedOpenFailed).
			In("plugin").
			With("operation", "open").
			With("status", int(status)).
			Errorf("managed open returned %d", status)
	}

	p.opened = obj
	p.opts.logger.Info("interface opened", "module", m.Path())
	return nil
}

// Close calls the managed close, runs teardown functions and unloads the
// module. Calling Close when nothing is open is a no-op.
func (p *InterfacePlugin) Close(obj host.ObjectHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.loader.Module()
	if m == nil {
		return nil
	}
	if obj.IsNull() {
		obj = p.opened
	}
	if m.Entries().Close != nil {
		m.Entries().Close(uintptr(obj))
	}

	teardownErr := p.opts.runTeardown()
	if teardownErr != nil {
		p.opts.logger.Warn("teardown failed", "error", teardownErr)
	}
	p.opened = 0

	if err := p.loader.Cleanup(); err != nil {
		return errors.Join(teardownErr, err)
	}
	p.opts.logger.Info("interface closed")
	return teardownErr
}

// Pump runs player events a script module queued while the host held its
// locks and reports how many ran. The host calls it from its interface
// thread with no host lock held.
func (p *InterfacePlugin) Pump() int {
	m := p.loader.Module()
	if m == nil {
		return 0
	}
	return m.Pump()
}

func (p *InterfacePlugin) cleanup() {
	if err := p.loader.Cleanup(); err != nil {
		p.opts.logger.Warn("module cleanup failed", "error", err)
	}
}

// VideoFilterPlugin serves the host's video filter capability. The module
// stays loaded across filter instances until Shutdown.
type VideoFilterPlugin struct {
	loader    *loader.Loader
	describer host.ChromaDescriber
	opts      options

	mu      sync.Mutex
	filters map[*frame.Filter]struct{}
}

// NewVideoFilterPlugin creates a video filter entry point backed by l.
// describer may be nil.
func NewVideoFilterPlugin(l *loader.Loader, describer host.ChromaDescriber, opts ...Option) *VideoFilterPlugin {
	return &VideoFilterPlugin{
		loader:    l,
		describer: describer,
		opts:      newOptions(opts),
		filters:   make(map[*frame.Filter]struct{}),
	}
}

// Open loads the module if needed and opens a filter for obj. When the
// managed filter_open fails the pass-through filter is still returned along
// with the MANAGED_OPEN_FAILED error.
func (p *VideoFilterPlugin) Open(obj host.ObjectHandle, format host.VideoFormat) (*frame.Filter, error) {
	if obj.IsNull() {
		return nil, errutil.Precondition("filter_open", errutil.ErrNullObject)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.loader.Initialize()
	if err != nil {
		p.opts.logger.Error("managed module load failed", "error", err)
		return nil, err
	}
	if err := checkVariant(m, loader.VariantFilter); err != nil {
		if len(p.filters) == 0 {
			if cleanupErr := p.loader.Cleanup(); cleanupErr != nil {
				p.opts.logger.Warn("module cleanup failed", "error", cleanupErr)
			}
		}
		return nil, err
	}

	fopts := []frame.Option{frame.WithLogger(p.opts.logger)}
	if p.opts.frameMetrics != nil {
		fopts = append(fopts, frame.WithMetrics(p.opts.frameMetrics))
	}
	f, err := frame.Open(obj, format, m, p.describer, fopts...)
	if f != nil {
		p.filters[f] = struct{}{}
	}
	return f, err
}

// CloseFilter closes f and forgets it. The module stays loaded.
func (p *VideoFilterPlugin) CloseFilter(f *frame.Filter) {
	if f == nil {
		return
	}
	p.mu.Lock()
	delete(p.filters, f)
	p.mu.Unlock()
	f.Close()
}

// Filters returns the number of open filters.
func (p *VideoFilterPlugin) Filters() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.filters)
}

// Shutdown closes any filters still open, runs teardown functions and
// unloads the module.
func (p *VideoFilterPlugin) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for f := range p.filters {
		f.Close()
	}
	clear(p.filters)

	teardownErr := p.opts.runTeardown()
	return errors.Join(teardownErr, p.loader.Cleanup())
}

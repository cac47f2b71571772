// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mfkl/vlclr/internal/host"
)

// HostModule is the module name bridge records carry in the host log.
const HostModule = "vlclr"

// hostHandler renders records as a single line and hands them to the host
// log sink, tagged with an object and module name.
type hostHandler struct {
	sink   host.LogSink
	obj    host.ObjectHandle
	module string
	level  slog.Leveler
	prefix string
	attrs  []slog.Attr
}

// NewHostHandler returns a handler that forwards records at or above level to
// sink. A nil level forwards everything. Records are logged against obj with
// the given module name, HostModule when empty.
func NewHostHandler(sink host.LogSink, obj host.ObjectHandle, module string, level slog.Leveler) slog.Handler {
	if module == "" {
		module = HostModule
	}
	if level == nil {
		level = slog.LevelDebug
	}
	return &hostHandler{sink: sink, obj: obj, module: module, level: level}
}

// HostLogType maps a slog level to the host log type.
func HostLogType(level slog.Level) host.LogType {
	switch {
	case level >= slog.LevelError:
		return host.LogError
	case level >= slog.LevelWarn:
		return host.LogWarn
	case level >= slog.LevelInfo:
		return host.LogInfo
	default:
		return host.LogDebug
	}
}

// Enabled returns true if the level is enabled.
func (h *hostHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle renders the record as "msg key=value ..." and logs it.
func (h *hostHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	h.sink.Log(h.obj, HostLogType(r.Level), h.module, b.String())
	return nil
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	v := a.Value.String()
	if strings.ContainsAny(v, " \t\n\"=") {
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(v, `"`, `\"`))
		b.WriteByte('"')
		return
	}
	b.WriteString(v)
}

// WithAttrs returns a new handler with the given attributes.
func (h *hostHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

// WithGroup returns a new handler with the given group.
func (h *hostHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// teeHandler sends every record to each of its handlers.
type teeHandler []slog.Handler

// Tee returns a handler that fans records out to handlers.
func Tee(handlers ...slog.Handler) slog.Handler {
	return teeHandler(handlers)
}

// Enabled returns true if any handler is enabled.
func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of r to every enabled handler.
func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a new handler with the given attributes.
func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

// WithGroup returns a new handler with the given group.
func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package loader

import (
	"fmt"
	"unsafe"
)

// Variant selects which entry points a managed module must export.
type Variant int

// Module variants.
const (
	// VariantInterface modules export open and close.
	VariantInterface Variant = iota
	// VariantFilter modules export filter_open, filter_close and filter_frame.
	VariantFilter
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantInterface:
		return "interface"
	case VariantFilter:
		return "filter"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Entry point signatures. Handles are passed as raw addresses; the module
// treats them as opaque.
type (
	// OpenFunc activates the module on a host object. Zero means success.
	OpenFunc func(obj uintptr) int32
	// CloseFunc deactivates the module.
	CloseFunc func(obj uintptr)
	// FilterOpenFunc prepares a filter for frames of the given geometry.
	// Zero means success.
	FilterOpenFunc func(filter uintptr, width, height int32, chroma uint32) int32
	// FilterCloseFunc releases a filter.
	FilterCloseFunc func(filter uintptr)
	// FilterFrameFunc modifies plane 0 of a frame in place.
	FilterFrameFunc func(filter uintptr, pixels unsafe.Pointer, pitch, visiblePitch, visibleLines int32, chroma uint32)
)

// EntryPoints holds the bound functions of a module. Only the fields for the
// module's variant are set.
type EntryPoints struct {
	Open        OpenFunc
	Close       CloseFunc
	FilterOpen  FilterOpenFunc
	FilterClose FilterCloseFunc
	FilterFrame FilterFrameFunc
}

// Symbols names the exported entry points.
type Symbols struct {
	Open        string `koanf:"open" yaml:"open,omitempty" json:"open,omitempty"`
	Close       string `koanf:"close" yaml:"close,omitempty" json:"close,omitempty"`
	FilterOpen  string `koanf:"filter_open" yaml:"filter_open,omitempty" json:"filter_open,omitempty"`
	FilterClose string `koanf:"filter_close" yaml:"filter_close,omitempty" json:"filter_close,omitempty"`
	FilterFrame string `koanf:"filter_frame" yaml:"filter_frame,omitempty" json:"filter_frame,omitempty"`
}

// Default export names.
const (
	DefaultOpenSymbol        = "vlclr_plugin_open"
	DefaultCloseSymbol       = "vlclr_plugin_close"
	DefaultFilterOpenSymbol  = "vlclr_filter_open"
	DefaultFilterCloseSymbol = "vlclr_filter_close"
	DefaultFilterFrameSymbol = "vlclr_filter_frame"
)

// DefaultSymbols returns the default export names.
func DefaultSymbols() Symbols {
	return Symbols{
		Open:        DefaultOpenSymbol,
		Close:       DefaultCloseSymbol,
		FilterOpen:  DefaultFilterOpenSymbol,
		FilterClose: DefaultFilterCloseSymbol,
		FilterFrame: DefaultFilterFrameSymbol,
	}
}

// withDefaults fills empty names from DefaultSymbols.
func (s Symbols) withDefaults() Symbols {
	d := DefaultSymbols()
	if s.Open == "" {
		s.Open = d.Open
	}
	if s.Close == "" {
		s.Close = d.Close
	}
	if s.FilterOpen == "" {
		s.FilterOpen = d.FilterOpen
	}
	if s.FilterClose == "" {
		s.FilterClose = d.FilterClose
	}
	if s.FilterFrame == "" {
		s.FilterFrame = d.FilterFrame
	}
	return s
}

// binding pairs a symbol name with the function variable it fills.
type binding struct {
	symbol string
	fptr   any
}

// bindings lists the required entry points of variant, in binding order.
func (s Symbols) bindings(v Variant, ep *EntryPoints) []binding {
	if v == VariantFilter {
		return []binding{
			{s.FilterOpen, &ep.FilterOpen},
			{s.FilterClose, &ep.FilterClose},
			{s.FilterFrame, &ep.FilterFrame},
		}
	}
	return []binding{
		{s.Open, &ep.Open},
		{s.Close, &ep.Close},
	}
}

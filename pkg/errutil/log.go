// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError writes err at error level with the attributes from ErrorAttrs.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.LogAttrs(context.Background(), slog.LevelError, msg, ErrorAttrs(err)...)
}

// ErrorAttrs flattens err into log attributes. An oops error contributes its
// code, domain and context next to the message; any other error is logged as
// its string.
func ErrorAttrs(err error) []slog.Attr {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []slog.Attr{slog.Any("error", err)}
	}

	attrs := make([]slog.Attr, 0, 4)
	attrs = append(attrs, slog.String("error", oopsErr.Error()))
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, slog.Any("code", code))
	}
	if domain := oopsErr.Domain(); domain != "" {
		attrs = append(attrs, slog.String("domain", domain))
	}
	if fields := oopsErr.Context(); len(fields) > 0 {
		attrs = append(attrs, slog.Any("context", fields))
	}
	return attrs
}

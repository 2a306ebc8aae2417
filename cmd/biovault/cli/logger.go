// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger writing to w. Format
// "text" and "json" select the handler; "auto" uses slog.TextHandler
// when w is a terminal and slog.JSONHandler otherwise (CI, scripts,
// log collection).
func NewCommandLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	text := format == "text"
	if format == "auto" {
		if file, ok := w.(*os.File); ok {
			text = term.IsTerminal(int(file.Fd()))
		}
	}
	if text {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

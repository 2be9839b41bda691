// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestLogHandlerEnabled(t *testing.T) {
	t.Parallel()

	handler := NewLogHandler(slog.LevelWarn)
	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error not enabled at warn level")
	}
}

func TestLogHandlerWithoutProgramDrops(t *testing.T) {
	t.Parallel()

	handler := NewLogHandler(slog.LevelInfo)
	record := slog.NewRecord(time.Now(), slog.LevelWarn, "dropped", 0)
	if err := handler.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestLogHandlerSummary(t *testing.T) {
	t.Parallel()

	base := NewLogHandler(slog.LevelInfo)
	derived := base.WithAttrs([]slog.Attr{slog.String("model", "small")}).WithGroup("request").(*LogHandler)

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "retrying", 0)
	record.AddAttrs(slog.Int("status", 503))

	want := "retrying (model=small, request.status=503)"
	if got := derived.summarize(record); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
	if derived.program != base.program {
		t.Error("derived handler does not share the program pointer")
	}

	plain := slog.NewRecord(time.Now(), slog.LevelInfo, "ready", 0)
	if got := base.summarize(plain); got != "ready" {
		t.Errorf("summary = %q, want %q", got, "ready")
	}
}

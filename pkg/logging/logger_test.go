package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithReturnsChildLogger(t *testing.T) {
	logger := Default()
	child := logger.With("source", "zoom")
	if child == nil || child.Logger == nil {
		t.Fatal("expected non-nil child logger")
	}
	if child == logger {
		t.Fatal("expected a new logger instance")
	}
}

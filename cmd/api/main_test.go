package main

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"no credentials", "redis://localhost:6379/0", "redis://localhost:6379/0"},
		{"user and password", "postgres://postbox:s3cret@db:5432/postbox", "postgres://postbox@db:5432/postbox"},
		{"password only", "redis://:s3cret@cache:6379", "redis://redacted@cache:6379"},
		{"password in query", "postgres://db/postbox?password=s3cret", "postgres://db/postbox?password=redacted"},
		{"unparseable", "postgres://db:port/x\x7f", "[redacted]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactURL(tt.raw); got != tt.want {
				t.Errorf("redactURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://postbox:s3cret@db:5432/postbox"
	err := errors.New("dial " + dsn + ": connection refused (password=s3cret)")

	got := sanitizeError(err, dsn)
	if strings.Contains(got, "s3cret") {
		t.Errorf("secret leaked: %q", got)
	}
	if !strings.Contains(got, "postgres://postbox@db:5432/postbox") {
		t.Errorf("expected redacted DSN in %q", got)
	}
	if !strings.Contains(got, "password=redacted") {
		t.Errorf("expected password pattern redacted in %q", got)
	}

	if sanitizeError(nil, dsn) != "" {
		t.Error("nil error should render empty")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

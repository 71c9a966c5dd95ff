package main

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    slog.Level
		wantErr bool
	}{
		{name: "empty is debug", raw: "", want: slog.LevelDebug},
		{name: "info", raw: "info", want: slog.LevelInfo},
		{name: "upper case", raw: " WARN ", want: slog.LevelWarn},
		{name: "warning alias", raw: "warning", want: slog.LevelWarn},
		{name: "error", raw: "error", want: slog.LevelError},
		{name: "numeric", raw: "-4", want: slog.LevelDebug},
		{name: "invalid", raw: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse level: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSelectedLogLevel(t *testing.T) {
	tests := []struct {
		flag, env, config string
		wantRaw           string
		wantSource        logLevelSource
	}{
		{"debug", "error", "warn", "debug", levelFromFlag},
		{"", "warn", "info", "warn", levelFromEnv},
		{" ", "", "error", "error", levelFromConfig},
		{"", "", "", "", levelFromDefault},
	}
	for _, tt := range tests {
		raw, source := selectedLogLevel(tt.flag, tt.env, tt.config)
		if raw != tt.wantRaw || source != tt.wantSource {
			t.Fatalf("selectedLogLevel(%q, %q, %q) = %q/%s, want %q/%s", tt.flag, tt.env, tt.config, raw, source, tt.wantRaw, tt.wantSource)
		}
	}
}

func TestConfigureLoggerForCLI(t *testing.T) {
	t.Run("flag overrides invalid env", func(t *testing.T) {
		t.Setenv(logLevelEnvKey, "invalid")
		warning, err := configureLoggerForCLI("debug", "info")
		if err != nil {
			t.Fatalf("configure logger: %v", err)
		}
		if warning != "" {
			t.Fatalf("expected no warning, got %q", warning)
		}
	})

	t.Run("invalid flag returns error", func(t *testing.T) {
		t.Setenv(logLevelEnvKey, "")
		if _, err := configureLoggerForCLI("verbose", "info"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid env warns and falls back", func(t *testing.T) {
		t.Setenv(logLevelEnvKey, "verbose")
		warning, err := configureLoggerForCLI("", "debug")
		if err != nil {
			t.Fatalf("configure logger: %v", err)
		}
		if !strings.Contains(warning, logLevelEnvKey) || !strings.Contains(warning, "defaulting to info") {
			t.Fatalf("expected env fallback warning, got %q", warning)
		}
		if !slog.Default().Enabled(t.Context(), slog.LevelInfo) || slog.Default().Enabled(t.Context(), slog.LevelDebug) {
			t.Fatal("expected logger to fall back to info")
		}
	})

	t.Run("invalid config warns and falls back", func(t *testing.T) {
		t.Setenv(logLevelEnvKey, "")
		warning, err := configureLoggerForCLI("", "verbose")
		if err != nil {
			t.Fatalf("configure logger: %v", err)
		}
		if !strings.Contains(warning, "invalid log_level") {
			t.Fatalf("expected config warning, got %q", warning)
		}
	})
}

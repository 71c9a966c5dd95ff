package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"careercatalyst/internal/config"
)

const logLevelEnvKey = "CAREERCATALYST_LOG_LEVEL"

type logLevelSource string

const (
	levelFromFlag    logLevelSource = "flag"
	levelFromEnv     logLevelSource = "env"
	levelFromConfig  logLevelSource = "config"
	levelFromDefault logLevelSource = "default"
)

// configureLoggerForCLI installs the default slog logger. An invalid --log-level
// is an error; an invalid env or config level falls back to the default level
// and is reported as a warning line.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	envLevel := os.Getenv(logLevelEnvKey)
	raw, source := selectedLogLevel(flagLevel, envLevel, configLevel)
	level, err := parseLogLevel(raw)
	if err == nil {
		slog.SetDefault(newLogger(level))
		return "", nil
	}

	if source == levelFromFlag {
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	}
	fallback, _ := parseLogLevel(config.DefaultLogLevel)
	slog.SetDefault(newLogger(fallback))
	switch source {
	case levelFromEnv:
		return fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel), nil
	case levelFromConfig:
		return fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", configLevel, config.DefaultLogLevel), nil
	}
	return "", nil
}

// selectedLogLevel picks flag, then env, then config.
func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, logLevelSource) {
	for _, candidate := range []struct {
		value  string
		source logLevelSource
	}{
		{flagLevel, levelFromFlag},
		{envLevel, levelFromEnv},
		{configLevel, levelFromConfig},
	} {
		if strings.TrimSpace(candidate.value) != "" {
			return candidate.value, candidate.source
		}
	}
	return "", levelFromDefault
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return slog.LevelDebug, nil
	case "warning":
		value = "warn"
	}
	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelDebug, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func componentLogger(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

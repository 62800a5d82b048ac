package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	partychat "github.com/partychat/partychat-go"
)

// newLogger returns a tinted logger for dev/local and JSON otherwise. Logs go
// to stderr so they never interleave with command output.
func newLogger(env, level string) *slog.Logger {
	lvl := parseLevel(level)
	writer := os.Stderr
	if env == "dev" || env == "local" {
		handler := tint.NewHandler(writer, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		})
		return slog.New(handler)
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStorage opens the configured backend. The closer is always non-nil.
func openStorage(cfg *Config) (partychat.Storage, io.Closer, error) {
	path := cfg.Storage.Path
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return nil, nil, err
		}
		switch cfg.Storage.Backend {
		case "file":
			path = filepath.Join(dir, "store")
		case "pebble":
			path = filepath.Join(dir, "pebble")
		default:
			path = filepath.Join(dir, "partychat.db")
		}
	}

	switch cfg.Storage.Backend {
	case "memory":
		return partychat.NewMemoryStorage(), noClose{}, nil
	case "file":
		s, err := partychat.NewFileStorage(path)
		if err != nil {
			return nil, nil, err
		}
		return s, noClose{}, nil
	case "pebble":
		s, err := partychat.OpenPebbleStorage(path, nil)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "sqlite", "":
		s, err := partychat.OpenSQLiteStorage(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

type noClose struct{}

func (noClose) Close() error { return nil }

// mustConfig loads the config and checks that init has run.
func mustConfig() *Config {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Default.Username == "" || cfg.Default.ServerURL == "" {
		fmt.Fprintln(os.Stderr, "Not configured. Run 'partychat init <server-url> <username>' first.")
		os.Exit(1)
	}
	return cfg
}

// getClient creates an HTTP client for the configured server.
func getClient(cfg *Config) *partychat.Client {
	return partychat.NewClient(cfg.Default.Session, partychat.WithBaseURL(cfg.Default.ServerURL))
}

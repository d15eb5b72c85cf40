// Package logging builds the slog logger used by every node.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sweeney/radio-telemetry/internal/config"
)

// New logs to stdout: coloured text for dev builds, JSON otherwise.
func New(cfg config.LogConfig, version string, appName string) *slog.Logger {
	return NewWriter(os.Stdout, cfg, version, appName)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, cfg config.LogConfig, version string, appName string) *slog.Logger {
	if version == "dev" || cfg.Env == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.Value,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.Value,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.Env,
	)
}

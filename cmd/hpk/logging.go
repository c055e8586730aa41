package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// setupLogging installs the default logger: a tinted console handler on
// stderr, optionally fanned out to a JSON log file. Stdout stays
// reserved for command output.
func setupLogging(level, outputDir string) error {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return err
	}

	console := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	})

	handler := slog.Handler(console)
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		name := fmt.Sprintf("hpk_%s.log", time.Now().Format("20060102_150405"))
		f, err := os.OpenFile(filepath.Join(outputDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		handler = slogmulti.Fanout(
			console,
			slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl}),
		)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

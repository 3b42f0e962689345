package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level string
	// Format is "text" (default) or "json".
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Init builds the process logger, installs it as the slog default and routes
// the standard log package through it. The returned closer releases the log
// file, if any.
func Init(cfg Config) (*slog.Logger, io.Closer, error) {
	return initWith(cfg, os.Stdout)
}

func initWith(cfg Config, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(cfg.Level)
	writers := []io.Writer{stdout}

	var closer io.Closer = nopCloser{}
	if path := strings.TrimSpace(cfg.File); path != "" {
		rotating, err := NewRotatingWriter(path, cfg.MaxSizeMB, cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		closer = rotating
		writers = append(writers, rotating)
	}

	opts := &slog.HandlerOptions{Level: level}
	out := io.MultiWriter(writers...)
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	stdLogger := slog.NewLogLogger(handler, level)
	log.SetFlags(0)
	log.SetOutput(stdLogger.Writer())

	return logger, closer, nil
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

package slogx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Redacted replaces the value of any attribute whose key names a secret.
const Redacted = "[redacted]"

// secretKeys are attribute keys whose values never reach a log line.
var secretKeys = map[string]struct{}{
	"password":      {},
	"access":        {},
	"refresh":       {},
	"renewal":       {},
	"token":         {},
	"authorization": {},
}

type Config struct {
	Service string
	Version string
	Env     string    // e.g. "dev", "prod"
	Level   string    // e.g. "debug", "info", "warn", "error" (default: warn)
	Format  string    // "json" or "text" (default: json)
	Output  io.Writer // default: os.Stderr, stdout belongs to the CLI

	// Attrs are added to every record after service/version/env.
	Attrs []any
}

// New builds the process logger, installs it as slog's default and
// returns it. Secret-looking attributes are redacted at any nesting depth.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		AddSource:   cfg.Env == "dev",
		Level:       level,
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler).With("service", cfg.Service, "version", cfg.Version, "env", cfg.Env)
	if len(cfg.Attrs) > 0 {
		logger = logger.With(cfg.Attrs...)
	}

	slog.SetDefault(logger)
	return logger
}

// ParseLevel accepts the names slog understands (case-insensitive, with
// offsets like "info+2") plus "warning". Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelWarn, nil
	case "warning":
		return slog.LevelWarn, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("slogx: unknown log level %q", s)
	}
	return level, nil
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// Package logging owns the process logger. Components take a prefixed child
// with For at the point they log, so level changes made by Setup apply to
// them.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Config controls the process logger.
type Config struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Timestamps bool   `toml:"timestamps"`
	Caller     bool   `toml:"caller"`
}

// DefaultConfig logs info and above as text with timestamps.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "text", Timestamps: true}
}

var (
	mu   sync.RWMutex
	root = newLogger(os.Stderr, DefaultConfig())
)

func newLogger(w io.Writer, cfg Config) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Caller,
		ReportTimestamp: cfg.Timestamps,
		TimeFormat:      time.RFC3339,
		Prefix:          "drape",
	})
	switch cfg.Format {
	case "json":
		l.SetFormatter(log.JSONFormatter)
	case "logfmt":
		l.SetFormatter(log.LogfmtFormatter)
	}
	return l
}

// Setup replaces the process logger.
func Setup(w io.Writer, cfg Config) error {
	level := log.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	switch cfg.Format {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l := newLogger(w, cfg)
	l.SetLevel(level)

	mu.Lock()
	root = l
	mu.Unlock()
	return nil
}

// Logger returns the process logger.
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// For returns a child logger prefixed with the component name.
func For(component string) *log.Logger {
	return Logger().WithPrefix("drape/" + component)
}

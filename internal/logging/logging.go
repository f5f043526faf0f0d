// Package logging provides the structured slog.Logger every component binds
// a "component" field to, the structured counterpart of the teacher's plain
// log.Printf call sites (one line per significant state transition: request
// start/stop, task start/skip/fail, retry, webhook dispatch).
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	once sync.Once
	base *slog.Logger
)

// Init installs the process-wide base logger. Call once at startup; safe to
// call multiple times, only the first call takes effect.
func Init(level slog.Level, json bool) {
	once.Do(func() {
		opts := &slog.HandlerOptions{Level: level}
		var h slog.Handler
		if json {
			h = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			h = slog.NewTextHandler(os.Stderr, opts)
		}
		base = slog.New(h)
		slog.SetDefault(base)
	})
}

// New returns a logger scoped to component, e.g. logging.New("ingestion").
func New(component string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", component)
}

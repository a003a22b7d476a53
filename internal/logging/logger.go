package logging

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

// New builds a logger from cfg without installing it.
func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	ctx := zerolog.New(out).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger().Level(cfg.Level)
}

// Apply installs a logger built from cfg as the process logger.
func Apply(cfg Config) {
	lowerGlobalLevel(cfg.Level)
	l := New(cfg)
	current.Store(&l)
}

// lowerGlobalLevel keeps zerolog's global floor from hiding levels the process
// logger asks for.
func lowerGlobalLevel(lvl zerolog.Level) {
	if lvl < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(lvl)
	}
}

// Logger returns the process logger. Before Configure or Apply it is the
// runtime default.
func Logger() zerolog.Logger {
	if l := current.Load(); l != nil {
		return *l
	}
	l := New(DefaultConfig())
	current.CompareAndSwap(nil, &l)
	return *current.Load()
}

func Tracef(format string, args ...any) {
	l := Logger()
	l.Trace().Msgf(format, args...)
}

func Debugf(format string, args ...any) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

func Errf(format string, args ...any) {
	l := Logger()
	l.Error().Msgf(format, args...)
}

// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the corruption/error/info logging boundary. The host "say"
// facility that the original C source used (BRICK_ERR/BRICK_WRN/
// BRICK_INF) is out of scope for this module; only this contract is
// kept, so brickmem never forces a specific log backend on its callers.
type Logger interface {
	Error(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Info(msg string, fields ...any)
}

// zerologLogger adapts zerolog to the Logger interface. zerolog is a
// zero-allocation structured logger, a good fit for a library invoked
// from hot I/O paths where the common case (no corruption, no OOM) must
// not allocate.
type zerologLogger struct {
	log zerolog.Logger
}

func newDefaultLogger() Logger {
	return &zerologLogger{log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()}
}

func (z *zerologLogger) Error(msg string, fields ...any) { z.event(z.log.Error(), msg, fields) }
func (z *zerologLogger) Warn(msg string, fields ...any)  { z.event(z.log.Warn(), msg, fields) }
func (z *zerologLogger) Info(msg string, fields ...any)  { z.event(z.log.Info(), msg, fields) }

func (z *zerologLogger) event(ev *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, fields[i+1])
	}
	ev.Msg(msg)
}

// Config carries the build-time knobs spec.md describes as compile-time
// feature flags (DEBUG_MEM, MEM_RETRY, MEM_PREALLOC, ALLOW_DYNAMIC_RAISE)
// as runtime toggles instead. Go build tags cannot be flipped within a
// single test binary, and the testable properties in spec.md §8 require
// exercising both the debug and release code paths from the same
// process — see DESIGN.md's Open Questions for the full rationale.
type Config struct {
	// DebugMem enables guards, site arrays, and corruption checks.
	DebugMem bool
	// MemRetry enables indefinite retry-with-sleep on allocator
	// failure, instead of returning nil immediately.
	MemRetry bool
	// MemPrealloc enables the order freelist pool and Reserve.
	MemPrealloc bool
	// AllowDynamicRaise caps the allocation count under which a
	// pool's max is allowed to self-raise (spec.md §4.3 step 3).
	AllowDynamicRaise int
	// Logger receives corruption, OOM, and informational events.
	Logger Logger
}

// Option mutates a Config in place; see Configure.
type Option func(*Config)

// WithDebugMem toggles debug instrumentation (guards, site counters).
func WithDebugMem(enabled bool) Option { return func(c *Config) { c.DebugMem = enabled } }

// WithMemRetry toggles indefinite OOM retry on the allocator paths.
func WithMemRetry(enabled bool) Option { return func(c *Config) { c.MemRetry = enabled } }

// WithMemPrealloc toggles the order freelist pool and Reserve.
func WithMemPrealloc(enabled bool) Option { return func(c *Config) { c.MemPrealloc = enabled } }

// WithAllowDynamicRaise sets the dynamic-raise safety cap.
func WithAllowDynamicRaise(n int) Option { return func(c *Config) { c.AllowDynamicRaise = n } }

// WithLogger swaps the corruption/error logging sink.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

var (
	configMu sync.RWMutex
	config   = Config{
		DebugMem:          true,
		MemRetry:          false,
		MemPrealloc:       true,
		AllowDynamicRaise: 512,
		Logger:            newDefaultLogger(),
	}
)

// Configure applies options to the package-wide configuration. Safe to
// call concurrently with itself; callers must still avoid racing
// Configure against allocation traffic that depends on the flags being
// toggled (the flags are read with relaxed timing guarantees on the hot
// path, matching spec.md §5's treatment of allow_freelist).
func Configure(opts ...Option) {
	configMu.Lock()
	defer configMu.Unlock()
	for _, opt := range opts {
		opt(&config)
	}
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

func logger() Logger {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.Logger
}

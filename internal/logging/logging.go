// Package logging builds the zap loggers used across the bridge.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the logger.
type Config struct {
	// Level is the minimum level to output.
	Level zapcore.Level
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Name is the root logger name.
	Name string
	// JSON selects the JSON encoder instead of the console one.
	JSON bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  zapcore.InfoLevel,
		Output: os.Stderr,
		Name:   "editorbridge",
	}
}

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a logger with the given configuration.
func New(cfg Config) *zap.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(cfg.Output)), cfg.Level)
	l := zap.New(core)
	if cfg.Name != "" {
		l = l.Named(cfg.Name)
	}
	return l
}

var (
	global     *zap.Logger
	globalOnce sync.Once
	globalMu   sync.RWMutex
)

// L returns the process-wide logger. It is a no-op logger until Set is
// called.
func L() *zap.Logger {
	globalOnce.Do(func() {
		globalMu.Lock()
		if global == nil {
			global = zap.NewNop()
		}
		globalMu.Unlock()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Set replaces the process-wide logger. Should be called early in startup.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

// Package logger provides structured logging setup for PropertyHub.
package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Strob0t/PropertyHub/internal/config"
)

// Closer allows flushing and stopping the logger's output.
type Closer interface {
	Close()
}

type syncCloser struct {
	l   *zap.Logger
	buf *zapcore.BufferedWriteSyncer
}

func (c syncCloser) Close() {
	_ = c.l.Sync()
	if c.buf != nil {
		_ = c.buf.Stop()
	}
}

// New creates a *zap.Logger from the given Logging config.
// Output is JSON to stdout with "service" and "hostname" fields on every
// entry. When cfg.Async is true writes go through a buffered syncer that the
// returned Closer flushes.
func New(cfg config.Logging) (*zap.Logger, Closer) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	var (
		out zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
		buf *zapcore.BufferedWriteSyncer
	)
	if cfg.Async {
		buf = &zapcore.BufferedWriteSyncer{WS: out, FlushInterval: time.Second}
		out = buf
	}

	core := zapcore.NewCore(enc, out, zap.NewAtomicLevelAt(parseLevel(cfg.Level)))
	l := zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	if cfg.Service != "" {
		l = l.With(zap.String("service", cfg.Service))
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		l = l.With(zap.String("hostname", host))
	}
	return l, syncCloser{l: l, buf: buf}
}

// parseLevel converts a string log level to a zapcore.Level.
func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
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

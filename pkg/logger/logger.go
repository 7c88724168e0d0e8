// Package logger constructs the structured zap loggers used across the
// hydra storage engine. Components receive a *zap.SugaredLogger through
// their Config structs and log lifecycle events with key-value pairs.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a named sugared logger writing JSON to stdout.
// The service name is attached to every entry so multiple engine
// instances in one process remain distinguishable.
func New(service string) *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)

	return zap.New(core).Sugar().Named(service)
}

// NewNop returns a logger that discards everything. Handy for tests and
// for embedders that manage their own logging.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Package logutil builds the zap loggers used by the wirecodec command.
package logutil

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config mirrors the [log] table of the command's config file.
type Config struct {
	Level       string `toml:"level"`
	Format      string `toml:"format"`
	Development bool   `toml:"development"`
}

// New returns a logger writing to stderr. An empty level means "info"; an
// empty format picks console in development mode and json otherwise.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		l, err := zapcore.ParseLevel(s)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", s)
		}
		level = l
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	switch format := strings.ToLower(strings.TrimSpace(cfg.Format)); format {
	case "":
	case "json", "console":
		zc.Encoding = format
	default:
		return nil, errors.Newf("unknown log format %q", cfg.Format)
	}
	return zc.Build()
}

// Must is New for callers with a known-good config.
func Must(cfg Config) *zap.Logger {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.
package commons

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application-wide logging facade. Every component receives a
// Logger explicitly; there is no package-level global.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Benchmark records how long a named operation took.
	Benchmark(name string, elapsed time.Duration)

	Sync() error
}

// Option configures NewApplicationLogger.
type Option func(*loggerConfig)

type loggerConfig struct {
	name  string
	path  string
	level string
}

// Name sets the logger name, included in every entry.
func Name(name string) Option {
	return func(c *loggerConfig) { c.name = name }
}

// Path enables file logging (with rotation) under the given directory.
func Path(path string) Option {
	return func(c *loggerConfig) { c.path = path }
}

// Level sets the minimum level: debug, info, warn or error.
func Level(level string) Option {
	return func(c *loggerConfig) { c.level = level }
}

type applicationLogger struct {
	sugar *zap.SugaredLogger
}

// NewApplicationLogger builds a zap-backed Logger. Console output is always
// on; when a Path is given, entries are also written as JSON to a rotated
// file under that directory.
func NewApplicationLogger(opts ...Option) (Logger, error) {
	cfg := loggerConfig{
		name:  "vocalbridge",
		level: "info",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	level := zapcore.InfoLevel
	switch cfg.level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			level,
		),
	}

	if cfg.path != "" {
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.path, cfg.name+".log"),
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(rotated),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &applicationLogger{
		sugar: logger.Sugar().Named(cfg.name),
	}, nil
}

func (l *applicationLogger) Debug(args ...interface{})  { l.sugar.Debug(args...) }
func (l *applicationLogger) Info(args ...interface{})   { l.sugar.Info(args...) }
func (l *applicationLogger) Warn(args ...interface{})   { l.sugar.Warn(args...) }
func (l *applicationLogger) Error(args ...interface{})  { l.sugar.Error(args...) }

func (l *applicationLogger) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

func (l *applicationLogger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

func (l *applicationLogger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

func (l *applicationLogger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

func (l *applicationLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *applicationLogger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *applicationLogger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *applicationLogger) Benchmark(name string, elapsed time.Duration) {
	l.sugar.Debugw("benchmark", "operation", name, "elapsed", elapsed.String())
}

func (l *applicationLogger) Sync() error { return l.sugar.Sync() }

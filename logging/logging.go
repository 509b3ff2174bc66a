// Package logging contains the loggers used throughout the robot program. Loggers are thin
// wrappers around zap that add named subloggers and a runtime adjustable level.
package logging

import (
	"io"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewEncoderConfig returns the console encoder config shared by every logger. Stacktraces are
// left out and levels are colored.
func NewEncoderConfig(inUTC bool) zapcore.EncoderConfig {
	encodeTime := zapcore.ISO8601TimeEncoder
	if inUTC {
		encodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			zapcore.ISO8601TimeEncoder(t.UTC(), enc)
		}
	}
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     encodeTime,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewStdoutAppender returns an appender that writes every entry it is handed to stdout.
func NewStdoutAppender(inUTC bool) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(NewEncoderConfig(inUTC)),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)
}

// NewFileAppender returns an appender that writes JSON entries to path, rotating the file once
// it reaches maxSizeMB. The returned closer releases the file.
func NewFileAppender(path string, maxSizeMB, maxBackups int) (zapcore.Core, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	encoderConfig := NewEncoderConfig(true)
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zapcore.DebugLevel,
	), rotator
}

// NewLogger returns a new logger that outputs Info+ logs to stdout in UTC.
func NewLogger(name string) Logger {
	return newImpl(name, INFO, NewStdoutAppender(true))
}

// NewBlankLogger returns a new logger that outputs Debug+ logs in UTC, but without any
// pre-existing appenders/outputs.
func NewBlankLogger(name string) Logger {
	return newImpl(name, DEBUG)
}

// NewTestLogger returns a new logger that outputs Debug+ logs through the test object.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	testCore := zaptest.NewLogger(tb, zaptest.Level(zapcore.DebugLevel)).Core()
	return newImpl("", DEBUG, testCore, observerCore), observedLogs
}

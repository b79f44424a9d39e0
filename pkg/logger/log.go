/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type (
	alwaysLevel     struct{}
	loggerComposite struct {
		debug  *zap.Logger
		debugS *zap.SugaredLogger
		info   *zap.Logger
		infoS  *zap.SugaredLogger
		warn   *zap.Logger
		warnS  *zap.SugaredLogger
		error  *zap.Logger
		errorS *zap.SugaredLogger
		stat   *zap.Logger
	}
)

var (
	zapLogger    *loggerComposite
	DebugEnabled = false
)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:          "time",
	LevelKey:         "level",
	NameKey:          "logger",
	CallerKey:        "caller",
	MessageKey:       "msg",
	StacktraceKey:    "stacktrace",
	ConsoleSeparator: " ",
	LineEnding:       zapcore.DefaultLineEnding,
	EncodeLevel:      zapcore.LowercaseLevelEncoder,
	EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
	EncodeDuration:   zapcore.SecondsDurationEncoder,
}

// init initializes default loggers (to console)
func init() {
	newConsoleLogger := func() *zap.Logger {
		return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), alwaysLevel{}))
	}
	zapLogger = newComposite(newConsoleLogger(), newConsoleLogger(), newConsoleLogger(), newConsoleLogger(), newConsoleLogger())
}

func (a alwaysLevel) Enabled(level zapcore.Level) bool {
	return true
}

func newComposite(debug, info, warn, error, stat *zap.Logger) *loggerComposite {
	return &loggerComposite{
		debug:  debug,
		debugS: debug.Sugar(),
		info:   info,
		infoS:  info.Sugar(),
		warn:   warn,
		warnS:  warn.Sugar(),
		error:  error,
		errorS: error.Sugar(),
		stat:   stat,
	}
}

// SetupZapLogger switches loggers to rotating files under logDir, stat lines go to stat.log. Console output is kept so that
// container runtimes still see the logs. An empty logDir keeps the console-only loggers.
func SetupZapLogger(logDir string) {
	if logDir == "" {
		return
	}

	newFileLogger := func(name string) *zap.Logger {
		w := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, name),
			MaxSize:    1024,
			MaxBackups: 7,
			MaxAge:     7,
			LocalTime:  true,
		}
		fileEncoder := encoderConfig
		fileEncoder.EncodeLevel = nil
		return zap.New(
			zapcore.NewTee(
				zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), alwaysLevel{}),
				zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoder), zapcore.AddSync(w), alwaysLevel{}),
			),
		)
	}

	zapLogger = newComposite(
		newFileLogger("debug.log"),
		newFileLogger("info.log"),
		newFileLogger("warn.log"),
		newFileLogger("error.log"),
		newFileLogger("stat.log"),
	)
}

func Debugz(msg string, fields ...zap.Field) {
	if DebugEnabled {
		zapLogger.debug.Info(msg, fields...)
	}
}
func Infoz(msg string, fields ...zap.Field) {
	zapLogger.info.Info(msg, fields...)
}
func Warnz(msg string, fields ...zap.Field) {
	zapLogger.warn.Warn(msg, fields...)
}
func Errorz(msg string, fields ...zap.Field) {
	zapLogger.error.Error(msg, fields...)
}

func Debugf(msg string, args ...interface{}) {
	if DebugEnabled {
		zapLogger.debugS.Infof(msg, args...)
	}
}
func Infof(msg string, args ...interface{}) {
	zapLogger.infoS.Infof(msg, args...)
}
func Warnf(msg string, args ...interface{}) {
	zapLogger.warnS.Warnf(msg, args...)
}
func Errorf(msg string, args ...interface{}) {
	zapLogger.errorS.Errorf(msg, args...)
}

// Stat writes one line of periodic statistics.
func Stat(line string) {
	zapLogger.stat.Info(line)
}

func IsDebugEnabled() bool {
	return DebugEnabled
}

// Sync flushes buffered entries. Called once on shutdown.
func Sync() {
	for _, l := range []*zap.Logger{zapLogger.debug, zapLogger.info, zapLogger.warn, zapLogger.error, zapLogger.stat} {
		_ = l.Sync()
	}
}

// TestMode routes every logger to stdout with debug enabled.
func TestMode() {
	DebugEnabled = true
}

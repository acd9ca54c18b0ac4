package logger

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

type Logger interface {
	With(args ...interface{}) Logger

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})

	Debugln(args ...interface{})
	Infoln(args ...interface{})
	Warnln(args ...interface{})
	Errorln(args ...interface{})
	Fatalln(args ...interface{})

	Sync() error
}

type ZapLogger struct {
	logger *zap.SugaredLogger
}

type LogLevel int

const (
	Debug LogLevel = iota
	Info
	Warn
	Error
)

// ParseLevel maps a config value onto a LogLevel, unknown values fall back to Info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l LogLevel) zapLevel() zap.AtomicLevel {
	switch l {
	case Debug:
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case Warn:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case Error:
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

func NewZapLogger(level LogLevel) (*ZapLogger, func(), error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	cfg.Level = level.zapLevel()

	l, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("can't init loggger: %w", err)
	}

	logger := &ZapLogger{
		logger: l.Sugar(),
	}

	syncFunc := func() {
		if err := logger.Sync(); err != nil && (!errors.Is(err, syscall.EBADF) && !errors.Is(err, syscall.ENOTTY)) {
			logger.Errorf("%s: can't sync logger", err)
		}
	}

	return logger, syncFunc, nil
}

// NewNopLogger discards everything, used by tests and library callers without logging.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop().Sugar()}
}

func (l *ZapLogger) With(args ...interface{}) Logger {
	return &ZapLogger{
		logger: l.logger.With(args...),
	}
}

func (l *ZapLogger) Debugf(template string, args ...interface{}) {
	l.logger.Debugf(template, args...)
}

func (l *ZapLogger) Infof(template string, args ...interface{}) {
	l.logger.Infof(template, args...)
}

func (l *ZapLogger) Warnf(template string, args ...interface{}) {
	l.logger.Warnf(template, args...)
}

func (l *ZapLogger) Errorf(template string, args ...interface{}) {
	l.logger.Errorf(template, args...)
}

func (l *ZapLogger) Fatalf(template string, args ...interface{}) {
	l.logger.Fatalf(template, args...)
}

func (l *ZapLogger) Debugln(args ...interface{}) {
	l.logger.Debugln(args...)
}

func (l *ZapLogger) Infoln(args ...interface{}) {
	l.logger.Infoln(args...)
}

func (l *ZapLogger) Warnln(args ...interface{}) {
	l.logger.Warnln(args...)
}

func (l *ZapLogger) Errorln(args ...interface{}) {
	l.logger.Errorln(args...)
}

func (l *ZapLogger) Fatalln(args ...interface{}) {
	l.logger.Fatalln(args...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

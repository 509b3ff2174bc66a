package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"
)

// Logger is the logging interface handed to every component. It is a zap sugared logger that
// can also spawn named subloggers and change its level at runtime.
type Logger interface {
	utils.ZapCompatibleLogger

	Sublogger(subname string) Logger
	AddAppender(appender zapcore.Core)
	SetLevel(level Level)
	GetLevel() Level
}

type impl struct {
	*zap.SugaredLogger

	name      string
	level     zap.AtomicLevel
	appenders []zapcore.Core
}

var _ Logger = &impl{}

func newImpl(name string, level Level, appenders ...zapcore.Core) *impl {
	return buildImpl(name, zap.NewAtomicLevelAt(level.AsZap()), appenders)
}

func buildImpl(name string, level zap.AtomicLevel, appenders []zapcore.Core) *impl {
	// Appenders accept every level; the atomic level is the only gate.
	var core zapcore.Core = zapcore.NewTee(appenders...)
	if gated, err := zapcore.NewIncreaseLevelCore(core, level); err == nil {
		core = gated
	}
	sugared := zap.New(core, zap.AddCaller()).Sugar()
	if name != "" {
		sugared = sugared.Named(name)
	}
	return &impl{
		SugaredLogger: sugared,
		name:          name,
		level:         level,
		appenders:     appenders,
	}
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return buildImpl(newName, zap.NewAtomicLevelAt(imp.level.Level()), imp.appenders)
}

// AddAppender only affects this logger and subloggers created after the call.
func (imp *impl) AddAppender(appender zapcore.Core) {
	appenders := append(append([]zapcore.Core{}, imp.appenders...), appender)
	rebuilt := buildImpl(imp.name, imp.level, appenders)
	imp.SugaredLogger = rebuilt.SugaredLogger
	imp.appenders = appenders
}

func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	switch imp.level.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.InfoLevel:
		return INFO
	case zapcore.WarnLevel:
		return WARN
	default:
		return ERROR
	}
}

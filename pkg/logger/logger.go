package logger

import (
	"fmt"

	"go.uber.org/zap"
)

var base *zap.Logger

var serviceName = "pigeon_bot"

// Init installs the process logger. Call once from main before any module
// logs; without it lines are dropped (tests rely on that).
func Init(l *zap.Logger) {
	base = l
}

// NewProduction is the default zap setup for the bot binaries.
func NewProduction() (*zap.Logger, error) {
	return zap.NewProduction()
}

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName
	return oldName
}

func with() *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.With(zap.String("service", serviceName))
}

func Info(format string, args ...interface{}) {
	with().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	with().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	with().Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	with().Fatal(fmt.Sprintf(format, args...))
}

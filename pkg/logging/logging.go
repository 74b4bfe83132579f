package logging

import (
	"github.com/daoscope/govcollector/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func New() (*zap.Logger, error) {
	level := utils.Env("LOG_LEVEL", "info")
	encoding := utils.Env("LOG_ENCODING", "json")
	cfg := zap.NewProductionConfig()
	cfg.Encoding = encoding
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CronLogger adapts a zap logger to the cron.Logger interface.
type CronLogger struct {
	Sugar *zap.SugaredLogger
}

// NewCronLogger returns a cron logger writing through l.
func NewCronLogger(l *zap.Logger) CronLogger {
	return CronLogger{Sugar: l.Named("cron").Sugar()}
}

// Info is used by cron for scheduling chatter, which we only want at debug level.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.Sugar.Debugw(msg, keysAndValues...)
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

package logger

import (
	"context"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
)

type closeLog func() error

var baseLogger = zap.NewNop()

// Init builds the process logger with an ECS compatible encoder so records
// can be shipped to an Elastic stack as-is.
func Init(development bool) (closeLog, error) {
	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.EncoderConfig = ecszap.ECSCompatibleEncoderConfig(config.EncoderConfig)

	l, err := config.Build(ecszap.WrapCoreOption(), zap.AddCaller())
	if err != nil {
		return nil, err
	}
	baseLogger = l

	return func() error {
		return baseLogger.Sync()
	}, nil
}

func Log() *zap.Logger {
	return baseLogger
}

type loggerKey struct{}

func NewContext(parent context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(parent, loggerKey{}, logger)
}

func FromContext(ctx context.Context) *zap.Logger {
	log, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if ok {
		return log
	}
	return baseLogger
}

package logsvc

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/earnyourwings/wings/core"
)

// NewZapLogger builds the local logger: JSON in production, colored console output in debug mode.
// Logs go to stderr unless outputPaths are given.
func NewZapLogger(conf *core.Config, outputPaths ...string) (*zap.SugaredLogger, error) {
	zconf := zap.NewProductionConfig()
	if conf.Debug {
		zconf = zap.NewDevelopmentConfig()
		zconf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if conf.TestMode {
		zconf.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	if len(outputPaths) > 0 {
		zconf.OutputPaths = outputPaths
		zconf.ErrorOutputPaths = outputPaths
	}
	zl, err := zconf.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return zl.Sugar().With("app", conf.AppName, "env", conf.Env, "build", conf.Build), nil
}

package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/billybjork/pixel-toaster/internal/appdirs"
	"github.com/billybjork/pixel-toaster/internal/config"
)

// New builds the process logger. Verbose forces debug regardless of the
// configured level, mirroring the -v flag winning over the config file.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(level(cfg.Level, verbose))
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	if cfg.ToFile {
		if _, err := appdirs.EnsureStateDir(); err != nil {
			return nil, fmt.Errorf("could not prepare log directory: %w", err)
		}
		logPath, err := appdirs.LogFilePath()
		if err != nil {
			return nil, err
		}
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, logPath)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	return logger, nil
}

func level(configured string, verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	switch configured {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

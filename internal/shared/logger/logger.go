package logger

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
	once   sync.Once
)

// GetLogger returns zap.Logger instance, but using singleton pattern creates only one reusable instace.
// Packages grab it at init time, so the encoder is picked from LOG_FORMAT here ("console" for the
// development encoder, JSON otherwise) and the level stays adjustable through SetLevel.
func GetLogger() *zap.Logger {
	once.Do(func() {
		_ = godotenv.Load()

		var cfg zap.Config
		if os.Getenv("LOG_FORMAT") == "console" {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		if lvl, err := zapcore.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
			level.SetLevel(lvl)
		}
		cfg.Level = level

		var err error
		logger, err = cfg.Build()
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}

// SetLevel changes the level of every logger handed out by GetLogger.
func SetLevel(text string) error {
	lvl, err := zapcore.ParseLevel(text)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

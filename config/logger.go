package config

import (
	"github.com/sirupsen/logrus"
)

// InitLogger configures the process-wide logrus logger. JSON format is for
// log collectors; text for local runs.
func InitLogger(cfg LogConfig) *logrus.Logger {
	logger := logrus.StandardLogger()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

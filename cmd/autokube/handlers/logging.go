package handlers

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/autokube/provisioner/internal/config"
)

// newLogger builds the logrus logger described by cfg. The config was
// validated, so an unparsable level falls back to info.
func newLogger(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}
	return logger
}

package commands

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// logrusLogger adapts a logrus logger to hubspot.Logger.
type logrusLogger struct {
	logger *logrus.Logger
}

// newLogger logs to stderr in text form; --verbose lowers the level to debug.
func newLogger() hubspot.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)

	if viper.GetBool("verbose") {
		logger.SetLevel(logrus.DebugLevel)
	}

	return &logrusLogger{logger: logger}
}

func (l *logrusLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.WithFields(logrus.Fields(fields)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.WithFields(logrus.Fields(fields)).Error(msg)
}

package testutils

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a debug logger and the buffer that it will be written to
func NewLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return logger, &buf
}

// Package logging builds the logrus loggers shared by the server binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// New returns a logger writing to stderr in the given level and format.
// Unknown levels fall back to info; any format other than "text" is JSON.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stderr)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// FromConfig builds a logger from the logging section. Output is "stdout",
// "stderr" (the default) or a file path opened for appending.
func FromConfig(cfg domain.LoggingConfig) (*logrus.Logger, io.Closer, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		return NewWithOutput(cfg.Level, cfg.Format, os.Stderr), nopCloser{}, nil
	case "stdout":
		return NewWithOutput(cfg.Level, cfg.Format, os.Stdout), nopCloser{}, nil
	}

	file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewWithOutput(cfg.Level, cfg.Format, file), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

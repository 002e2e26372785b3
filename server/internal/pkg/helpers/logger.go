package helpers

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var root = newRootLogger()

func newRootLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	return log
}

// ConfigureLogging sets the level and format shared by every component
// logger. Unknown levels fall back to info.
func ConfigureLogging(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	root.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		root.Formatter = &logrus.JSONFormatter{}
	} else {
		root.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
}

// SetLogOutput redirects every component logger
func SetLogOutput(w io.Writer) {
	root.SetOutput(w)
}

// NewLogger creates a new logger tagged with a component name
func NewLogger(component string) *logrus.Entry {
	return root.WithField("component", component)
}

// NewDiscardLogger returns a logger that drops everything, for tests
func NewDiscardLogger() *logrus.Entry {
	log := logrus.New()
	log.Out = io.Discard
	return logrus.NewEntry(log)
}

// Package logging configures the single structured log stream every
// binary in this repo writes to: github.com/sirupsen/logrus with the
// console prefixed formatter.
//
// Every component that logs does so through a *logrus.Entry carrying
// at least a "component" field, and workers additionally a "run_id"
// and "agent_id" pair.
package logging

import (
	"fmt"
	"os"
	"strings"

	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
)

// Configure sets the package-level logrus logger's level and
// formatter. levelName is one of logrus's level strings
// (trace/debug/info/warn/error); an empty value defaults to "info",
// and an unknown value is an error.
func Configure(levelName string) error {
	level := logrus.InfoLevel
	if levelName != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(levelName))
		if err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		level = parsed
	}

	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return nil
}

// Component returns a logger entry scoped to one named component
// (e.g. "controller", "agent", "poller"), the base every call site
// builds further WithField calls from.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}

// Package lclog configures the structured logger lc-sim uses for
// operational logging and hands to its event emitter, the way cmd/get
// configures logrus before running.
package lclog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger with JSON output suited to a supervised
// process, level set from levelName ("debug", "info", "warn", "error";
// unrecognized values fall back to "info").
func New(levelName string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

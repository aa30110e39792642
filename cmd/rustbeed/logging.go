package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// parseLogLevel maps the --log-level flag's string values onto logrus
// levels, matching the teacher's configureLogger precedent.
func parseLogLevel(level string) (logrus.Level, error) {
	switch level {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
}

package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a configured logrus logger: JSON output in prod for log
// aggregation, human-readable text with timestamps everywhere else.
func New(env string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if env == "prod" {
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(logrus.InfoLevel)
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

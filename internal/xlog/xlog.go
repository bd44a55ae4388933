// Package xlog provides the shared structured logger (used by the
// game-state cache and the replay CLI; the engine packages themselves
// do not log). It exists so call sites can write xlog.L.WithField(...)
// against a single package-level *logrus.Logger.
package xlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// L is the package-wide logger. Tests may swap its output/level; the
// engine itself never mutates it mid-step.
var L logrus.FieldLogger = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetOutputDiscard silences the logger; used by tests that exercise
// error paths without wanting log noise.
func SetOutputDiscard() {
	if l, ok := L.(*logrus.Logger); ok {
		l.SetOutput(discardWriter{})
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

package testutil

import (
	"testing"

	"github.com/sirupsen/logrus"
)

// testLoggerAdapter routes log output through testing.T so it only shows
// for failed tests.
type testLoggerAdapter struct {
	t testing.TB
}

func (a *testLoggerAdapter) Write(d []byte) (int, error) {
	n := len(d)
	if n > 0 && d[n-1] == '\n' {
		d = d[:n-1]
	}
	a.t.Log(string(d))
	return n, nil
}

// NewTestLogger returns a debug-level logger writing to t.
func NewTestLogger(t testing.TB) *logrus.Logger {
	logger := logrus.New()
	logger.Out = &testLoggerAdapter{t: t}
	logger.Level = logrus.DebugLevel
	return logger
}

// NewTestEntry returns a prefixed entry of NewTestLogger.
func NewTestEntry(t testing.TB, prefix string) *logrus.Entry {
	return NewTestLogger(t).WithField("prefix", prefix)
}

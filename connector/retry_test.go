package connector

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observeLogs installs an observed logger and a counting sleep stub for
// the duration of the test.
func observeLogs(t *testing.T) (*observer.ObservedLogs, *int) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	prevLogger := logger
	SetLogger(zap.New(core))

	sleeps := 0
	prevSleep := sleep
	sleep = func(time.Duration) { sleeps++ }

	t.Cleanup(func() {
		logger = prevLogger
		sleep = prevSleep
	})
	return logs, &sleeps
}

func errorLines(logs *observer.ObservedLogs) int {
	n := 0
	for _, e := range logs.All() {
		if e.Level == zapcore.ErrorLevel {
			n++
		}
	}
	return n
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	logs, sleeps := observeLogs(t)

	calls := 0
	st := withRetry(opGet, "doc", func() error {
		calls++
		return nil
	})

	assert.Equal(t, StatusSuccess, st)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, *sleeps)
	assert.Equal(t, 0, errorLines(logs))
}

func TestWithRetryFailsOnceThenSucceeds(t *testing.T) {
	logs, sleeps := observeLogs(t)

	calls := 0
	st := withRetry(opSet, "doc", func() error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	assert.Equal(t, StatusSuccess, st)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, *sleeps, "exactly one sleep between the two attempts")
	assert.Equal(t, 1, errorLines(logs))
}

func TestWithRetryFailsTwice(t *testing.T) {
	logs, sleeps := observeLogs(t)

	calls := 0
	st := withRetry(opUpdate, "doc", func() error {
		calls++
		return errors.New("permanent")
	})

	assert.Equal(t, StatusError, st)
	assert.Equal(t, 2, calls, "no third attempt")
	assert.Equal(t, 1, *sleeps)
	assert.Equal(t, 2, errorLines(logs), "one error line per failed attempt")

	entries := logs.All()
	assert.Equal(t, true, entries[1].ContextMap()["retried"])
}

func TestSetLoggerNilRestoresNop(t *testing.T) {
	SetLogger(zap.NewExample())
	SetLogger(nil)
	assert.NotNil(t, logger)
}

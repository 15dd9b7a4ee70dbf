package connector

import (
	"time"

	"go.uber.org/zap"
)

// RetrySleep is the delay between the two attempts of a retried call.
// Every remote operation is attempted at most twice.
var RetrySleep = 5 * time.Second

var (
	logger = zap.NewNop()

	// Replaced in tests.
	sleep = time.Sleep
)

// SetLogger installs the logger used for retry and failure reporting.
// Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop()
		return
	}
	logger = l
}

// opCode numbers the façade operations in error logs. The numbering is
// stable because downstream log tooling filters on it.
type opCode int

const (
	opStream  opCode = 1
	opUpdate  opCode = 2
	opGet     opCode = 3
	opSet     opCode = 4
	opConnect opCode = 5
	opQuery   opCode = 6
)

func (c opCode) String() string {
	switch c {
	case opStream:
		return "stream"
	case opUpdate:
		return "update"
	case opGet:
		return "get"
	case opSet:
		return "set"
	case opConnect:
		return "connect"
	case opQuery:
		return "query"
	}
	return "unknown"
}

func (c opCode) errMessage() string {
	switch c {
	case opStream:
		return "failed to retrieve collection stream"
	case opUpdate:
		return "failed to update document"
	case opGet:
		return "failed to get document"
	case opSet:
		return "failed to create or merge document"
	case opConnect:
		return "failed to connect to firestore"
	case opQuery:
		return "failed to run query"
	}
	return "operation failed"
}

// withRetry runs fn once and, on failure, once more after RetrySleep.
// Each failed attempt logs one error line; the second carries a
// "retried" marker. The sentinel is the only failure signal returned.
func withRetry(code opCode, target string, fn func() error) Status {
	opAttempts.WithLabelValues(code.String()).Inc()

	err := fn()
	if err == nil {
		return StatusSuccess
	}

	logger.Error(code.errMessage(),
		zap.Int("code", int(code)),
		zap.String("target", target),
		zap.Bool("retrying", true),
		zap.Error(err),
	)
	opRetries.WithLabelValues(code.String()).Inc()
	sleep(RetrySleep)

	if err = fn(); err != nil {
		logger.Error(code.errMessage(),
			zap.Int("code", int(code)),
			zap.String("target", target),
			zap.Bool("retried", true),
			zap.Error(err),
		)
		opFailures.WithLabelValues(code.String()).Inc()
		return StatusError
	}
	return StatusSuccess
}

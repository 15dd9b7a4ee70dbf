package connector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fsconnector",
		Name:      "operations_total",
		Help:      "Façade operations attempted, by operation.",
	}, []string{"op"})

	opRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fsconnector",
		Name:      "retries_total",
		Help:      "Operations that failed once and were retried, by operation.",
	}, []string{"op"})

	opFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fsconnector",
		Name:      "failures_total",
		Help:      "Operations that failed after the retry, by operation.",
	}, []string{"op"})

	batchCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fsconnector",
		Name:      "batch_commits_total",
		Help:      "Batch commits, by result.",
	}, []string{"result"})
)

package validator

import (
	"sync"

	"github.com/bsv-blockchain/txhandler/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusHealth               prometheus.Counter
	prometheusEpochs               prometheus.Counter
	prometheusAcceptedTransactions prometheus.Counter
	prometheusRejectedTransactions *prometheus.CounterVec
	prometheusHandleTxs            prometheus.Histogram
	prometheusValidateTransaction  prometheus.Histogram
	prometheusHandleTxsCandidates  prometheus.Histogram
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusHealth = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "txhandler",
			Subsystem: "validator",
			Name:      "health",
			Help:      "Number of calls to the health endpoint",
		},
	)

	prometheusEpochs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "txhandler",
			Subsystem: "validator",
			Name:      "epochs",
			Help:      "Number of epochs handled by the validator",
		},
	)

	prometheusAcceptedTransactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "txhandler",
			Subsystem: "validator",
			Name:      "accepted_transactions",
			Help:      "Number of transactions accepted into the utxo pool",
		},
	)

	prometheusRejectedTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txhandler",
			Subsystem: "validator",
			Name:      "rejected_transactions",
			Help:      "Number of transactions rejected for an epoch",
		},
		[]string{
			"reason", // error code of the failed check
		},
	)

	prometheusHandleTxs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "txhandler",
			Subsystem: "validator",
			Name:      "handle_txs",
			Help:      "Histogram of epoch processing",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusValidateTransaction = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "txhandler",
			Subsystem: "validator",
			Name:      "validate_transaction",
			Help:      "Histogram of single transaction validation",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusHandleTxsCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "txhandler",
			Subsystem: "validator",
			Name:      "handle_txs_candidates",
			Help:      "Number of candidate transactions per epoch",
			Buckets:   util.MetricsBucketsSizeSmall,
		},
	)
}

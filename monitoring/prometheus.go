package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RecoveryFailureReason string

var (
	FailureStorageUnavailable RecoveryFailureReason = "storage_unavailable"
	FailureDeserialization    RecoveryFailureReason = "deserialization"
	FailureCorruptChainState  RecoveryFailureReason = "corrupt_chain_state"
	FailureFatalCopy          RecoveryFailureReason = "fatal_copy"
	FailureStateRootMismatch  RecoveryFailureReason = "state_root_mismatch"
	FailureUnknown            RecoveryFailureReason = "other"
)

type recoveryPromMetrics struct {
	recoveryStartUnixSeconds prometheus.Gauge
	recoveryDuration         prometheus.Histogram
	recoveryFailures         *prometheus.CounterVec
	txBlockHeight            prometheus.Gauge
	deltasApplied            prometheus.Counter
	deltasCopied             prometheus.Counter
	deltaGaps                prometheus.Counter
	bufferedDeltas           prometheus.Gauge
	linksReplayed            *prometheus.CounterVec
	trimmedBlocks            *prometheus.CounterVec
}

func newRecoveryPromMetrics() *recoveryPromMetrics {
	return &recoveryPromMetrics{
		recoveryStartUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mmn_recovery_start_timestamp_unix_seconds",
				Help: "Unix timestamp of the last recovery start",
			},
		),
		recoveryDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mmn_recovery_duration_seconds",
				Help:    "Duration in second of a full recovery pass",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		recoveryFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmn_recovery_failure_count",
				Help: "The total number of failed recovery passes",
			},
			[]string{"reason"},
		),
		txBlockHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mmn_recovery_tx_block_height",
				Help: "Number of the last tx block kept by recovery",
			},
		),
		deltasApplied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mmn_recovery_state_deltas_applied_count",
				Help: "The total number of state deltas applied to the account state",
			},
		),
		deltasCopied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mmn_recovery_state_deltas_copied_count",
				Help: "The total number of state deltas restored from the archive",
			},
		),
		deltaGaps: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mmn_recovery_state_delta_gap_count",
				Help: "Blocks inside the replay window without any state delta",
			},
		),
		bufferedDeltas: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mmn_recovery_buffered_state_deltas",
				Help: "State deltas of the incomplete trailing epoch buffered by the last pass",
			},
		),
		linksReplayed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmn_recovery_block_links_replayed_count",
				Help: "The total number of replayed block links",
			},
			[]string{"type"},
		),
		trimmedBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmn_recovery_trimmed_blocks_count",
				Help: "The total number of blocks removed from an incomplete epoch",
			},
			[]string{"type"},
		),
	}
}

var (
	recoveryMetrics *recoveryPromMetrics
	initOnce        sync.Once
)

// InitMetrics creates and registers the recovery metrics. Recorders are no-ops before it is called.
func InitMetrics() {
	initOnce.Do(func() {
		recoveryMetrics = newRecoveryPromMetrics()
	})
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("METRICS", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func MarkRecoveryStart() {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.recoveryStartUnixSeconds.SetToCurrentTime()
}

func RecordRecoveryDuration(duration time.Duration) {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.recoveryDuration.Observe(duration.Seconds())
}

func RecordRecoveryFailure(reason RecoveryFailureReason) {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.recoveryFailures.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func SetTxBlockHeight(height uint64) {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.txBlockHeight.Set(float64(height))
}

func IncDeltasApplied() {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.deltasApplied.Inc()
}

func IncDeltasCopied() {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.deltasCopied.Inc()
}

func IncDeltaGaps() {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.deltaGaps.Inc()
}

func SetBufferedDeltas(n int) {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.bufferedDeltas.Set(float64(n))
}

func IncLinksReplayed(blockType string) {
	if recoveryMetrics == nil {
		return
	}
	recoveryMetrics.linksReplayed.With(prometheus.Labels{
		"type": blockType,
	}).Inc()
}

func AddTrimmedBlocks(blockType string, n int) {
	if recoveryMetrics == nil || n <= 0 {
		return
	}
	recoveryMetrics.trimmedBlocks.With(prometheus.Labels{
		"type": blockType,
	}).Add(float64(n))
}

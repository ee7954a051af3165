package telemetry

import (
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/ryandielhenn/bytelru/pkg/kv"
)

var (
	Registry = prometheus.NewRegistry()

	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bytelru",
			Name:      "operations_total",
			Help:      "Total number of store operations by result.",
		},
		[]string{"op", "result"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bytelru",
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations, lock wait included.",
			// 100ns .. ~1.6ms
			Buckets: prometheus.ExponentialBuckets(1e-7, 2, 15),
		},
		[]string{"op"},
	)

	EvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bytelru",
			Name:      "evictions_total",
			Help:      "Entries dropped to make room for writes.",
		},
	)

	EvictedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bytelru",
			Name:      "evicted_bytes_total",
			Help:      "Key plus value bytes reclaimed by eviction.",
		},
	)

	// ---- Process / build info ----
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bytelru",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version and git_sha).",
		},
		[]string{"version", "git_sha"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "bytelru",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(OperationsTotal, OperationDuration, EvictionsTotal, EvictedBytesTotal, buildInfo, uptime)
}

// SetBuildInfo should be called once at startup, e.g. with ldflags-provided values.
func SetBuildInfo(version, gitSHA string) {
	buildInfo.WithLabelValues(version, gitSHA).Set(1)
}

// RecordEviction matches the kv.Store OnEvict signature.
func RecordEviction(key string, value []byte) {
	EvictionsTotal.Inc()
	EvictedBytesTotal.Add(float64(len(key) + len(value)))
}

// RegisterStore exposes size gauges read from e at scrape time. It registers
// on reg so callers owning several stores can keep them apart.
func RegisterStore(reg prometheus.Registerer, e kv.Engine) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bytelru",
			Name:      "used_bytes",
			Help:      "Key plus value bytes currently stored.",
		}, func() float64 { return float64(e.Used()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bytelru",
			Name:      "capacity_bytes",
			Help:      "Configured byte budget.",
		}, func() float64 { return float64(e.Capacity()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "bytelru",
			Name:      "items",
			Help:      "Number of stored entries.",
		}, func() float64 { return float64(e.Len()) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// WriteText dumps every metric family g gathers in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Result maps a store error to the "result" label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, kv.ErrNotFound):
		return "not_found"
	case errors.Is(err, kv.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, kv.ErrCapacityExceeded):
		return "capacity_exceeded"
	default:
		return "error"
	}
}

func observe(op string, start time.Time, err error) {
	OperationsTotal.WithLabelValues(op, Result(err)).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	poolActiveWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "workerd",
			Subsystem: "pool",
			Name:      "active_workers",
			Help:      "Workers currently registered",
		},
	)

	poolMemoryMB = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "workerd",
			Subsystem: "pool",
			Name:      "memory_mb",
			Help:      "Aggregate estimated worker memory in MB",
		},
	)

	poolWorkersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workerd",
			Subsystem: "pool",
			Name:      "workers_created_total",
			Help:      "Workers constructed, by backend",
		},
		[]string{"backend"},
	)

	poolEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "workerd",
			Subsystem: "pool",
			Name:      "evictions_total",
			Help:      "Idle workers evicted by the reaper",
		},
	)

	poolFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workerd",
			Subsystem: "pool",
			Name:      "fallbacks_total",
			Help:      "Construction retries on a fallback backend",
		},
		[]string{"from", "to"},
	)

	executorFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "workerd",
			Subsystem: "executor",
			Name:      "failures_total",
			Help:      "Executions that finished with success=false",
		},
	)

	executorPhaseSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "workerd",
			Subsystem: "executor",
			Name:      "phase_seconds",
			Help:      "Execution phase duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
		},
		[]string{"phase", "backend"},
	)
)

func init() {
	prometheus.MustRegister(poolActiveWorkers, poolMemoryMB, poolWorkersCreated, poolEvictions,
		poolFallbacks, executorFailures, executorPhaseSeconds)
}

// updateGaugesLocked mirrors registry accounting into the pool gauges.
// Caller holds m.mu.
func (m *Manager) updateGaugesLocked() {
	poolActiveWorkers.Set(float64(len(m.workers)))
	poolMemoryMB.Set(float64(m.usedMemMB))
}

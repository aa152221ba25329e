// Package telemetry exposes Terrastore's runtime metrics: routing
// latency, ParallelDispatcher fan-out size, EnsembleManager tick outcomes,
// and per-kind node operation counts.
//
// Grounded on cuemby-warren/pkg/metrics: package-level prometheus
// collectors registered once from an init func, with a Handler() wrapping
// promhttp.Handler() for the HTTP mux to mount. Series renamed from
// warren_* to terrastore_*.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RouteLookupDuration times Router.RouteToNodeFor/RouteToNodeForKey
	// calls, labeled by whether the lookup resolved or failed.
	RouteLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "terrastore_route_lookup_duration_seconds",
			Help:    "Duration of Router route lookups",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// DispatchFanout records how many sources a single ParallelDispatcher
	// call fanned out to.
	DispatchFanout = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "terrastore_dispatch_fanout_sources",
			Help:    "Number of sources a single Dispatch call fanned out to",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	// EnsembleTicksTotal counts EnsembleManager ticks by remote cluster and
	// outcome (ok, unreachable).
	EnsembleTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terrastore_ensemble_ticks_total",
			Help: "EnsembleManager ticks by remote cluster and outcome",
		},
		[]string{"cluster", "outcome"},
	)

	// NodeOpsTotal counts requests answered by node.Serve, by command kind
	// and outcome (ok, processing_error, communication_error,
	// validation_error, protocol_error, unknown_error).
	NodeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terrastore_node_ops_total",
			Help: "Requests answered by node.Serve by command kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// CoordinatorTransitionsTotal counts pause/flush/resume sequences by
	// outcome (resumed, watchdog_expired).
	CoordinatorTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "terrastore_coordinator_transitions_total",
			Help: "Coordinator pause/flush/resume sequences by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(RouteLookupDuration)
	prometheus.MustRegister(DispatchFanout)
	prometheus.MustRegister(EnsembleTicksTotal)
	prometheus.MustRegister(NodeOpsTotal)
	prometheus.MustRegister(CoordinatorTransitionsTotal)
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

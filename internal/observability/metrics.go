// Package observability holds the process-wide Prometheus metrics and the
// OpenTelemetry tracer used by the pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Plugin outcomes recorded in PluginRuns.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomePanicked = "panicked"
)

// Skip reasons recorded in PluginSkips.
const (
	SkipNotApplicable = "covers"
	SkipNothingNew    = "consumes"
)

var (
	PluginRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grafema_plugin_runs_total",
		Help: "Plugin executions by phase and outcome.",
	}, []string{"phase", "plugin", "outcome"})

	PluginSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grafema_plugin_skips_total",
		Help: "Plugins skipped by the applicability or selective-skip filter.",
	}, []string{"phase", "plugin", "reason"})

	PluginDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grafema_plugin_seconds",
		Help:    "Time spent in one plugin execution.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase", "plugin"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grafema_phase_seconds",
		Help:    "Wall time of a whole pipeline phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	Diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grafema_diagnostics_total",
		Help: "Diagnostics reported by plugins, by severity. Suppressed ones are counted separately.",
	}, []string{"severity", "suppressed"})

	UnitsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grafema_units_in_flight",
		Help: "Analysis units currently executing in a batch.",
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grafema_graph_nodes",
		Help: "Nodes in the graph after the last run.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grafema_graph_edges",
		Help: "Edges in the graph after the last run.",
	})

	WatcherEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grafema_watcher_events_total",
		Help: "File system events received by the watcher.",
	})

	StoreCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grafema_store_id_cache_total",
		Help: "Semantic id to row id cache lookups by result.",
	}, []string{"result"})
)

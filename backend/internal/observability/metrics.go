package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	BackendAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphwarehouse_backend_available",
		Help: "1 when the Neo4j backend was reachable at connect time, 0 in file-only mode.",
	})

	GraphStatementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphwarehouse_graph_statements_total",
		Help: "Graph statements by operation and outcome (applied, unavailable, skipped, failed).",
	}, []string{"operation", "outcome"})

	InteractionSinkWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphwarehouse_interaction_sink_writes_total",
		Help: "Interaction writes per sink (primary, local) and outcome.",
	}, []string{"sink", "outcome"})

	InteractionReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphwarehouse_interaction_reads_total",
		Help: "Interaction list reads by the sink that answered.",
	}, []string{"source"})

	RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graphwarehouse_rebuild_seconds",
		Help:    "Time spent rebuilding one namespace from a document.",
		Buckets: prometheus.DefBuckets,
	})

	RebuildEntitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphwarehouse_rebuild_entities_total",
		Help: "Entities processed by rebuilds, by kind (node, relationship) and outcome.",
	}, []string{"kind", "outcome"})

	DocumentReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphwarehouse_document_reloads_total",
		Help: "Source document reloads triggered by file changes, by result.",
	}, []string{"result"})
)

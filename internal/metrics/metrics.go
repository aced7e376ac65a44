package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paperatlas_sessions_active",
		Help: "Number of explorer sessions currently open.",
	})

	InputEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperatlas_input_events_total",
		Help: "Total number of input events delivered to sessions, labelled by type.",
	}, []string{"type"})

	SimulationTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperatlas_simulation_ticks_total",
		Help: "Total number of layout integration steps across all sessions.",
	})

	FramesRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperatlas_frames_rendered_total",
		Help: "Total number of frames rendered, labelled by output format.",
	}, []string{"format"})

	ExpansionsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperatlas_expansions_enqueued_total",
		Help: "Total number of expansion requests placed on the worker queue.",
	})

	ExpansionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperatlas_expansions_dropped_total",
		Help: "Total number of expansion requests rejected due to a full queue.",
	})

	ExpansionResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperatlas_expansion_results_total",
		Help: "Expansion outcomes, labelled by status (merged, stale, failed).",
	}, []string{"status"})

	ExpansionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paperatlas_expansion_duration_ms",
		Help:    "Time spent fetching one expansion subgraph in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	MergedNodes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperatlas_merged_nodes_total",
		Help: "Total number of nodes added to session graphs by merges.",
	})

	RejectedLinks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperatlas_rejected_links_total",
		Help: "Total number of incoming links refused by merges.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paperatlas_queue_utilization_ratio",
		Help: "Current expansion queue utilization (0–1).",
	})
)

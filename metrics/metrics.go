// Package metrics declares the build/query counters and latency
// histograms exposed for scraping, package-level promauto vars in the
// same style as the rest of this codebase's metrics packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var PartitionsWritten = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ridx_partitions_written_total",
		Help: "Partitions committed to a partitioned index file",
	},
	[]string{"region_type", "index_encoding"},
)

var RegionsRead = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ridx_regions_read_total",
		Help: "Stored regions fetched while answering a constraint",
	},
	[]string{"region_type"},
)

var ConstraintPlanChosen = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ridx_constraint_plan_chosen_total",
		Help: "Which region-math plan (direct or complement) a constraint evaluation chose",
	},
	[]string{"index_encoding", "plan"},
)

var BuildLatencyHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ridx_build_latency_seconds",
		Help:    "Time to build and re-encode one partition's index",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	},
	[]string{"region_type", "index_encoding"},
)

var QueryLatencyHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ridx_query_latency_seconds",
		Help:    "Time to evaluate a query against one partition",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	},
	[]string{"index_encoding"},
)

var AllocatorFinalizeFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ridx_allocator_finalize_failures_total",
		Help: "Client ranks that reported a failure during parallel allocator finalize",
	},
	[]string{},
)

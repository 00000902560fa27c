package ingest

import "github.com/prometheus/client_golang/prometheus"

var (
	upsertedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hmdb_rows_upserted_total",
			Help: "Total number of rows upserted per entity type.",
		},
		[]string{"entity"},
	)
	skippedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hmdb_records_skipped_total",
			Help: "Total number of source records skipped for missing natural keys.",
		},
	)
	unresolvedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hmdb_links_unresolved_total",
			Help: "Total number of relationship records dropped because the far side was unknown.",
		},
	)
	parseFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hmdb_parse_failures_total",
			Help: "Total number of files aborted due to unrecoverable XML errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(upsertedCounter, skippedCounter, unresolvedCounter, parseFailureCounter)
}

// Package metrics defines Prometheus metrics for the catalog sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catalogsync"

// Sync pass metrics.
var (
	SyncProductsProbed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_products_probed_total",
		Help:      "Total number of products probed during sync passes.",
	}, []string{"store"})

	SyncProbeUnknownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_probe_unknowns_total",
		Help:      "Total probes that could not be classified (no mutation applied).",
	}, []string{"store"})

	SyncPriceChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_price_changes_total",
		Help:      "Total accepted price transitions recorded in the ledger.",
	}, []string{"store"})

	SyncProductsPrunedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_products_pruned_total",
		Help:      "Total products deleted by the pruning policy.",
	}, []string{"store"})

	SyncChunkCommitFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_chunk_commit_failures_total",
		Help:      "Total chunk transactions that failed to commit.",
	})

	SyncPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_pass_duration_seconds",
		Help:      "Duration of full sync passes in seconds.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
)

// Harvest pass metrics.
var (
	HarvestListingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "harvest_listings_total",
		Help:      "Total listings upserted by the harvester.",
	}, []string{"store"})

	HarvestNewProductsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "harvest_new_products_total",
		Help:      "Total products first seen by the harvester.",
	}, []string{"store"})

	HarvestRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "harvest_retries_total",
		Help:      "Total harvest attempts retried after an adapter failure.",
	}, []string{"store"})

	HarvestPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "harvest_pass_duration_seconds",
		Help:      "Duration of full harvest passes in seconds.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
)

// Localization pass metrics.
var (
	LocalizeTitlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "localize_titles_total",
		Help:      "Total localized titles written.",
	}, []string{"store"})

	LocalizeSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "localize_skips_total",
		Help:      "Total products skipped because no localized title could be extracted.",
	}, []string{"store"})
)

// Store fetch metrics.
var (
	FetchCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_calls_total",
		Help:      "Total cumulative page fetches against external stores.",
	}, []string{"store"})

	FetchDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "fetch_daily_usage",
		Help:      "Current daily fetch count within the rolling 24-hour window.",
	})

	FetchDailyLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_daily_limit_hits_total",
		Help:      "Total number of times the daily fetch limit was reached.",
	})
)

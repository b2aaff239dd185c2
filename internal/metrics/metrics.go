package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_cache_downloads_total",
		Help: "Total number of download phase executions",
	})

	DownloadsSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_cache_downloads_success_total",
		Help: "Total number of successful downloads",
	})

	DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_cache_downloads_failed_total",
		Help: "Total number of failed downloads",
	})

	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_cache_download_bytes_total",
		Help: "Total bytes written to the cache",
	})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resource_cache_download_duration_seconds",
		Help:    "Download phase duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_cache_hits_total",
		Help: "Total number of resources served from a current cache entry",
	})

	EntriesRetired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_cache_entries_retired_total",
		Help: "Total number of cache entries marked for delete",
	})
)

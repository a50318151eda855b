package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000}

var (
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorwatch_cache_hits_total",
		Help: "FetchCache lookups served by an existing entry (complete or in flight)",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorwatch_cache_misses_total",
		Help: "FetchCache lookups that registered a new producer",
	}, []string{"cache"})
	CacheProducerFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorwatch_cache_producer_fail_total",
		Help: "FetchCache producer invocations that ended in an error",
	}, []string{"cache"})
	CacheEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorwatch_cache_evictions_total",
		Help: "FetchCache entries removed explicitly",
	}, []string{"cache"})

	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorwatch_api_requests_total",
		Help: "Remote API requests by endpoint",
	}, []string{"endpoint"})
	APIFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorwatch_api_fail_total",
		Help: "Remote API failures by endpoint and kind",
	}, []string{"endpoint", "kind"})
	APIDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sectorwatch_api_duration_ms",
		Help:    "Remote API call duration in milliseconds",
		Buckets: latencyBuckets,
	}, []string{"endpoint"})
	APIRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorwatch_api_retries_total",
		Help: "Remote API retries after transient failures",
	})

	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorwatch_redis_hits_total",
		Help: "Total redis hot cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorwatch_redis_misses_total",
		Help: "Total redis hot cache misses",
	})
	MirrorHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorwatch_mirror_hits_total",
		Help: "Total postgres mirror hits",
	})
	MirrorMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorwatch_mirror_misses_total",
		Help: "Total postgres mirror misses or stale rows",
	})

	IndexBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sectorwatch_index_build_duration_ms",
		Help:    "Sector index fetch and build duration in milliseconds",
		Buckets: latencyBuckets,
	})
	IndexSectors = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sectorwatch_index_sectors",
		Help:    "Number of sectors per built index",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	MapChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorwatch_map_changes_total",
		Help: "Map change notifications emitted",
	})
	SectorChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorwatch_sector_changes_total",
		Help: "Sector change notifications emitted",
	})
	SectorSuppressedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorwatch_sector_suppressed_total",
		Help: "Sector transitions recorded without a notification, by reason",
	}, []string{"reason"})
	NotifyFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorwatch_notify_fail_total",
		Help: "Notifier delivery failures by sink",
	}, []string{"sink"})
	OverlayClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sectorwatch_overlay_clients",
		Help: "Connected overlay websocket clients",
	})
)

func init() {
	prometheus.MustRegister(
		CacheHitsTotal,
		CacheMissesTotal,
		CacheProducerFailTotal,
		CacheEvictionsTotal,
		APIRequestsTotal,
		APIFailTotal,
		APIDurationMs,
		APIRetriesTotal,
		RedisHitsTotal,
		RedisMissesTotal,
		MirrorHitsTotal,
		MirrorMissesTotal,
		IndexBuildDurationMs,
		IndexSectors,
		MapChangesTotal,
		SectorChangesTotal,
		SectorSuppressedTotal,
		NotifyFailTotal,
		OverlayClients,
	)
}

// 文档注释：返回 Prometheus 指标处理器，在 HTTP 路由中挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }

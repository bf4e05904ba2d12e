package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every series the service exports.  A nil *AppMetrics is
// valid and records nothing.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Resolution
	ResolutionsTotal   CounterVec
	ResolutionDuration HistogramVec
	BatchSize          HistogramVec

	// Index & snapshot
	IndexKeys          GaugeVec
	IndexCollisions    CounterVec
	SnapshotGeneration GaugeVec
	ReloadsTotal       CounterVec
	ReloadDuration     HistogramVec

	// Store
	EntitiesTotal GaugeVec
	LoadsTotal    CounterVec

	// Infrastructure
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	EventsTotal      CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultResolveBuckets        = []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .5, 1}
	DefaultReloadDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 300}
	DefaultBatchSizeBuckets      = []float64{1, 5, 10, 50, 100, 500, 1000}
)

// NewAppMetrics registers the service metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.ResolutionsTotal = collector.RegisterCounter("resolutions_total", "Resolutions by winning tier (none for misses)", "match_type")
	m.ResolutionDuration = collector.RegisterHistogram("resolution_duration_seconds", "Resolution latency", DefaultResolveBuckets, "operation")
	m.BatchSize = collector.RegisterHistogram("resolution_batch_size", "Texts per batch resolution", DefaultBatchSizeBuckets)

	m.IndexKeys = collector.RegisterGauge("index_keys", "Keys in the exact index of the serving snapshot", "kind")
	m.IndexCollisions = collector.RegisterCounter("index_collisions_total", "Ambiguous keys dropped while building the exact index")
	m.SnapshotGeneration = collector.RegisterGauge("snapshot_generation", "Generation of the serving snapshot")
	m.ReloadsTotal = collector.RegisterCounter("reloads_total", "Snapshot reloads", "trigger", "status")
	m.ReloadDuration = collector.RegisterHistogram("reload_duration_seconds", "Snapshot build duration", DefaultReloadDurationBuckets)

	m.EntitiesTotal = collector.RegisterGauge("entities", "Entities in the serving snapshot", "type")
	m.LoadsTotal = collector.RegisterCounter("loads_total", "Bulk loads", "status")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.EventsTotal = collector.RegisterCounter("events_total", "Reload events", "source", "direction")

	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordResolution counts one resolution; matchType is empty for a miss.
func (m *AppMetrics) RecordResolution(matchType string) {
	if m == nil {
		return
	}
	if matchType == "" {
		matchType = "none"
	}
	m.ResolutionsTotal.WithLabelValues(matchType).Inc()
}

func (m *AppMetrics) ObserveResolution(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *AppMetrics) ObserveBatch(n int) {
	if m == nil {
		return
	}
	m.BatchSize.WithLabelValues().Observe(float64(n))
}

// RecordSnapshot publishes the shape of a freshly swapped snapshot.
func (m *AppMetrics) RecordSnapshot(generation uint64, canonicalKeys, aliasKeys, collisions int, entitiesByType map[string]int64) {
	if m == nil {
		return
	}
	m.SnapshotGeneration.WithLabelValues().Set(float64(generation))
	m.IndexKeys.WithLabelValues("canonical").Set(float64(canonicalKeys))
	m.IndexKeys.WithLabelValues("alias").Set(float64(aliasKeys))
	m.IndexCollisions.WithLabelValues().Add(float64(collisions))
	for t, n := range entitiesByType {
		m.EntitiesTotal.WithLabelValues(t).Set(float64(n))
	}
}

func (m *AppMetrics) RecordReload(trigger string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ReloadsTotal.WithLabelValues(trigger, status(err)).Inc()
	if err == nil {
		m.ReloadDuration.WithLabelValues().Observe(d.Seconds())
	}
}

func (m *AppMetrics) RecordLoad(err error) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(status(err)).Inc()
}

func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordEvent counts a reload event; direction is "published" or "consumed".
func (m *AppMetrics) RecordEvent(source, direction string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(source, direction).Inc()
}

//Personal.AI order the ending

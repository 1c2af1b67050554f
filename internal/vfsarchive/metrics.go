package vfsarchive

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides low-cardinality Prometheus metrics for the mount engine.
type Metrics struct {
	contextsInitialized   prometheus.Counter
	contextsReinitialized prometheus.Counter

	nestedMountsTotal *prometheus.CounterVec // label: mode={copy,stream}

	tempFilesCreated prometheus.Counter
	tempFilesReused  prometheus.Counter
	tempFilesEvicted prometheus.Counter

	zipCacheOpen       prometheus.Gauge
	zipCacheEvictions  prometheus.Counter
	zipIntegrityPassed prometheus.Counter
	zipIntegrityFailed prometheus.Counter

	entryCacheHits      prometheus.Counter
	entryCacheMisses    prometheus.Counter
	entryCacheEvictions prometheus.Counter
	entryCacheBytes     prometheus.Gauge
	entryCacheItems     prometheus.Gauge

	partialPathResolutions prometheus.Counter

	errorsTotal *prometheus.CounterVec // label: kind
}

// NewMetrics constructs and registers the engine's metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		contextsInitialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "contexts_initialized_total",
			Help:      "Total number of archive contexts (re-)initialized.",
		}),
		contextsReinitialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "contexts_reinitialized_total",
			Help:      "Total number of archive contexts re-initialized after a detected modification.",
		}),
		nestedMountsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "nested_mounts_total",
			Help:      "Total number of nested archive mounts, by policy.",
		}, []string{"mode"}),
		tempFilesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "temp_files_created_total",
			Help:      "Total number of temp files created extracting nested archives.",
		}),
		tempFilesReused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "temp_files_reused_total",
			Help:      "Total number of extracted-nested-archive temp file reuses.",
		}),
		tempFilesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "temp_files_evicted_total",
			Help:      "Total number of temp files evicted from the temp store LRU.",
		}),
		zipCacheOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vfsarchive",
			Name:      "zip_cache_open",
			Help:      "Current number of open zip parts held by the zip part cache.",
		}),
		zipCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "zip_cache_evictions_total",
			Help:      "Total number of zip part cache evictions.",
		}),
		zipIntegrityPassed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "zip_integrity_passed_total",
			Help:      "Total number of zip parts that passed structural integrity checks.",
		}),
		zipIntegrityFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "zip_integrity_failed_total",
			Help:      "Total number of zip parts that failed structural integrity checks.",
		}),
		entryCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "entry_cache_hits_total",
			Help:      "Total number of decompressed entry content cache hits.",
		}),
		entryCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "entry_cache_misses_total",
			Help:      "Total number of decompressed entry content cache misses.",
		}),
		entryCacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "entry_cache_evictions_total",
			Help:      "Total number of decompressed entry content cache evictions.",
		}),
		entryCacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vfsarchive",
			Name:      "entry_cache_bytes",
			Help:      "Current number of bytes held by the decompressed entry content cache.",
		}),
		entryCacheItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vfsarchive",
			Name:      "entry_cache_items",
			Help:      "Current number of items held by the decompressed entry content cache.",
		}),
		partialPathResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "partial_path_resolutions_total",
			Help:      "Total number of partial path search resolutions performed.",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vfsarchive",
			Name:      "errors_total",
			Help:      "Total number of errors, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.contextsInitialized,
		m.contextsReinitialized,
		m.nestedMountsTotal,
		m.tempFilesCreated,
		m.tempFilesReused,
		m.tempFilesEvicted,
		m.zipCacheOpen,
		m.zipCacheEvictions,
		m.zipIntegrityPassed,
		m.zipIntegrityFailed,
		m.entryCacheHits,
		m.entryCacheMisses,
		m.entryCacheEvictions,
		m.entryCacheBytes,
		m.entryCacheItems,
		m.partialPathResolutions,
		m.errorsTotal,
	)

	return m
}

func (m *Metrics) IncContextsInitialized() {
	if m == nil {
		return
	}
	m.contextsInitialized.Inc()
}

func (m *Metrics) IncContextsReinitialized() {
	if m == nil {
		return
	}
	m.contextsReinitialized.Inc()
}

func (m *Metrics) IncNestedMounts(mode string) {
	if m == nil {
		return
	}
	m.nestedMountsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncTempFilesCreated() {
	if m == nil {
		return
	}
	m.tempFilesCreated.Inc()
}

func (m *Metrics) IncTempFilesReused() {
	if m == nil {
		return
	}
	m.tempFilesReused.Inc()
}

func (m *Metrics) IncTempFilesEvicted() {
	if m == nil {
		return
	}
	m.tempFilesEvicted.Inc()
}

func (m *Metrics) SetZipCacheOpen(n int) {
	if m == nil {
		return
	}
	m.zipCacheOpen.Set(float64(n))
}

func (m *Metrics) IncZipCacheEvictions() {
	if m == nil {
		return
	}
	m.zipCacheEvictions.Inc()
}

func (m *Metrics) IncZipIntegrityPassed() {
	if m == nil {
		return
	}
	m.zipIntegrityPassed.Inc()
}

func (m *Metrics) IncZipIntegrityFailed() {
	if m == nil {
		return
	}
	m.zipIntegrityFailed.Inc()
}

func (m *Metrics) IncEntryCacheHits() {
	if m == nil {
		return
	}
	m.entryCacheHits.Inc()
}

func (m *Metrics) IncEntryCacheMisses() {
	if m == nil {
		return
	}
	m.entryCacheMisses.Inc()
}

func (m *Metrics) SetEntryCacheBytes(n int64) {
	if m == nil {
		return
	}
	m.entryCacheBytes.Set(float64(n))
}

func (m *Metrics) SetEntryCacheItems(n int) {
	if m == nil {
		return
	}
	m.entryCacheItems.Set(float64(n))
}

func (m *Metrics) IncEntryCacheEvictions() {
	if m == nil {
		return
	}
	m.entryCacheEvictions.Inc()
}

func (m *Metrics) IncPartialPathResolutions() {
	if m == nil {
		return
	}
	m.partialPathResolutions.Inc()
}

func (m *Metrics) IncErrors(kind string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(kind).Inc()
}

package vfsarchive

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsNilReceiverMethodsAreNoops(t *testing.T) {
	t.Parallel()

	var m *Metrics
	// None of these must panic on a nil *Metrics -- every ArchiveContext,
	// FileSource, and cache holds a possibly-nil *Metrics when the caller
	// opted out of metrics collection.
	m.IncContextsInitialized()
	m.IncContextsReinitialized()
	m.IncNestedMounts("copy")
	m.IncTempFilesCreated()
	m.IncTempFilesReused()
	m.IncTempFilesEvicted()
	m.SetZipCacheOpen(3)
	m.IncZipCacheEvictions()
	m.IncZipIntegrityPassed()
	m.IncZipIntegrityFailed()
	m.IncEntryCacheHits()
	m.IncEntryCacheMisses()
	m.SetEntryCacheBytes(10)
	m.SetEntryCacheItems(1)
	m.IncEntryCacheEvictions()
	m.IncPartialPathResolutions()
	m.IncErrors("nested_mount")
}

func TestMetricsIncrementsAreObservable(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.IncContextsInitialized()
	m.IncContextsInitialized()
	m.IncNestedMounts("stream")
	m.IncErrors("nested_mount")

	if got := testutil.ToFloat64(m.contextsInitialized); got != 2 {
		t.Fatalf("contextsInitialized = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.nestedMountsTotal.WithLabelValues("stream")); got != 1 {
		t.Fatalf("nestedMountsTotal{mode=stream} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues("nested_mount")); got != 1 {
		t.Fatalf("errorsTotal{kind=nested_mount} = %v, want 1", got)
	}
}

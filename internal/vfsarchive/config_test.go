package vfsarchive

import (
	"testing"
	"time"
)

func TestConfigFromMapDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := configFromMap(nil)
	if err != nil {
		t.Fatalf("configFromMap(nil): %v", err)
	}

	want := Config{
		ReaperGrace:           30 * time.Second,
		ZipPartCacheMaxOpen:   256,
		EntryCacheMaxBytes:    64 << 20,
		MaxConcurrentZipOpens: 64,
		TempStoreMaxEntries:   512,
		ZipIntegrityFailTTL:   5 * time.Minute,
	}
	if cfg != want {
		t.Fatalf("configFromMap(nil) = %+v, want %+v", cfg, want)
	}
}

func TestConfigFromMapOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := configFromMap(map[string]string{
		"VFSARCHIVE_FORCE_COPY":               "true",
		"VFSARCHIVE_FORCE_NO_REAPER":          "1",
		"VFSARCHIVE_FORCE_CASE_SENSITIVE":     "false",
		"VFSARCHIVE_FORCE_VFS_JAR":            "true",
		"VFSARCHIVE_REAPER_GRACE":             "5s",
		"VFSARCHIVE_ZIP_PART_CACHE_MAX_OPEN":  "128",
		"VFSARCHIVE_ENTRY_CACHE_MAX_BYTES":    "1024",
		"VFSARCHIVE_MAX_CONCURRENT_ZIP_OPENS": "8",
		"VFSARCHIVE_TEMP_DIR":                 "/var/tmp/x",
		"VFSARCHIVE_TEMP_STORE_MAX_ENTRIES":   "10",
		"VFSARCHIVE_ZIP_INTEGRITY_FAIL_TTL":   "1m",
	})
	if err != nil {
		t.Fatalf("configFromMap: %v", err)
	}

	want := Config{
		ForceCopy:             true,
		ForceNoReaper:         true,
		ForceCaseSensitive:    false,
		ForceVfsJar:           true,
		ReaperGrace:           5 * time.Second,
		ZipPartCacheMaxOpen:   128,
		EntryCacheMaxBytes:    1024,
		MaxConcurrentZipOpens: 8,
		TempDir:               "/var/tmp/x",
		TempStoreMaxEntries:   10,
		ZipIntegrityFailTTL:   time.Minute,
	}
	if cfg != want {
		t.Fatalf("configFromMap = %+v, want %+v", cfg, want)
	}
}

func TestConfigFromMapInvalidValues(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"VFSARCHIVE_FORCE_COPY":               "not-a-bool",
		"VFSARCHIVE_REAPER_GRACE":             "not-a-duration",
		"VFSARCHIVE_ZIP_PART_CACHE_MAX_OPEN":  "not-an-int",
		"VFSARCHIVE_ENTRY_CACHE_MAX_BYTES":    "not-an-int",
		"VFSARCHIVE_MAX_CONCURRENT_ZIP_OPENS": "not-an-int",
		"VFSARCHIVE_TEMP_STORE_MAX_ENTRIES":   "not-an-int",
		"VFSARCHIVE_ZIP_INTEGRITY_FAIL_TTL":   "not-a-duration",
	}

	for key, val := range cases {
		key, val := key, val
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			if _, err := configFromMap(map[string]string{key: val}); err == nil {
				t.Fatalf("configFromMap with %s=%q: expected error, got nil", key, val)
			}
		})
	}
}

func TestConfigFromMapRejectsNonPositiveValues(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"VFSARCHIVE_REAPER_GRACE":             "0s",
		"VFSARCHIVE_ZIP_PART_CACHE_MAX_OPEN":  "0",
		"VFSARCHIVE_ENTRY_CACHE_MAX_BYTES":    "-1",
		"VFSARCHIVE_MAX_CONCURRENT_ZIP_OPENS": "0",
		"VFSARCHIVE_TEMP_STORE_MAX_ENTRIES":   "0",
		"VFSARCHIVE_ZIP_INTEGRITY_FAIL_TTL":   "0s",
	}

	for key, val := range cases {
		key, val := key, val
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			if _, err := configFromMap(map[string]string{key: val}); err == nil {
				t.Fatalf("configFromMap with %s=%q: expected error, got nil", key, val)
			}
		})
	}
}

package vfsarchive

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the engine's process-wide configuration, loaded from
// environment variables (spec.md §6 "process-wide options").
type Config struct {
	ForceCopy          bool
	ForceNoReaper      bool
	ForceCaseSensitive bool
	ForceVfsJar        bool

	ReaperGrace           time.Duration
	ZipPartCacheMaxOpen   int
	EntryCacheMaxBytes    int64
	MaxConcurrentZipOpens int
	TempDir               string
	TempStoreMaxEntries   int
	ZipIntegrityFailTTL   time.Duration
}

type envLookup func(key string) (string, bool)

// LoadConfig loads configuration from the process environment.
//
// Usage pattern:
//
//	cfg, err := vfsarchive.LoadConfig()
//	if err != nil {
//		log.Fatalf("failed to load configuration: %v", err)
//	}
//
// For testing, use configFromMap instead to provide explicit values without
// touching real environment variables.
func LoadConfig() (Config, error) {
	return parseConfigFromLookup(os.LookupEnv)
}

func configFromMap(env map[string]string) (Config, error) {
	return parseConfigFromLookup(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
}

func parseConfigFromLookup(lookup envLookup) (Config, error) {
	cfg := Config{
		ReaperGrace:           30 * time.Second,
		ZipPartCacheMaxOpen:   256,
		EntryCacheMaxBytes:    64 << 20,
		MaxConcurrentZipOpens: 64,
		TempDir:               "",
		TempStoreMaxEntries:   512,
		ZipIntegrityFailTTL:   5 * time.Minute,
	}

	if v, ok := lookup("VFSARCHIVE_FORCE_COPY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_FORCE_COPY: %w", err)
		}
		cfg.ForceCopy = b
	}

	if v, ok := lookup("VFSARCHIVE_FORCE_NO_REAPER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_FORCE_NO_REAPER: %w", err)
		}
		cfg.ForceNoReaper = b
	}

	if v, ok := lookup("VFSARCHIVE_FORCE_CASE_SENSITIVE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_FORCE_CASE_SENSITIVE: %w", err)
		}
		cfg.ForceCaseSensitive = b
	}

	if v, ok := lookup("VFSARCHIVE_FORCE_VFS_JAR"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_FORCE_VFS_JAR: %w", err)
		}
		cfg.ForceVfsJar = b
	}

	if v, ok := lookup("VFSARCHIVE_REAPER_GRACE"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_REAPER_GRACE: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("VFSARCHIVE_REAPER_GRACE: must be > 0")
		}
		cfg.ReaperGrace = d
	}

	if v, ok := lookup("VFSARCHIVE_ZIP_PART_CACHE_MAX_OPEN"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_ZIP_PART_CACHE_MAX_OPEN: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("VFSARCHIVE_ZIP_PART_CACHE_MAX_OPEN: must be > 0")
		}
		cfg.ZipPartCacheMaxOpen = n
	}

	if v, ok := lookup("VFSARCHIVE_ENTRY_CACHE_MAX_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_ENTRY_CACHE_MAX_BYTES: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("VFSARCHIVE_ENTRY_CACHE_MAX_BYTES: must be > 0")
		}
		cfg.EntryCacheMaxBytes = n
	}

	if v, ok := lookup("VFSARCHIVE_MAX_CONCURRENT_ZIP_OPENS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_MAX_CONCURRENT_ZIP_OPENS: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("VFSARCHIVE_MAX_CONCURRENT_ZIP_OPENS: must be > 0")
		}
		cfg.MaxConcurrentZipOpens = n
	}

	if v, ok := lookup("VFSARCHIVE_TEMP_DIR"); ok && v != "" {
		cfg.TempDir = v
	}

	if v, ok := lookup("VFSARCHIVE_TEMP_STORE_MAX_ENTRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_TEMP_STORE_MAX_ENTRIES: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("VFSARCHIVE_TEMP_STORE_MAX_ENTRIES: must be > 0")
		}
		cfg.TempStoreMaxEntries = n
	}

	if v, ok := lookup("VFSARCHIVE_ZIP_INTEGRITY_FAIL_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("VFSARCHIVE_ZIP_INTEGRITY_FAIL_TTL: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("VFSARCHIVE_ZIP_INTEGRITY_FAIL_TTL: must be > 0")
		}
		cfg.ZipIntegrityFailTTL = d
	}

	return cfg, nil
}

// Package config loads annlite's runtime configuration from environment
// variables and an optional YAML overlay file, the same
// env-first/file-overlay shape the reference pkg/config package uses,
// narrowed to the knobs a vector index actually has: storage, index
// construction defaults, the block cache, metrics, and Go runtime
// tuning. The Neo4j-compatibility surface (NEO4J_* variable names,
// auth, compliance/GDPR controls, Bolt/HTTP server settings) belongs to
// the surrounding graph-database product this library was extracted
// from and is out of scope here.
package config

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/annlite/index"
	"github.com/orneryd/annlite/metric"
)

// Config holds all annlite configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Index   IndexConfig   `yaml:"index"`
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`
	Runtime RuntimeConfig `yaml:"runtime"`
}

// StorageConfig controls where and how index segments are persisted.
type StorageConfig struct {
	// Backend selects the storage.Store implementation: "memory",
	// "file", or "badger".
	Backend string `yaml:"backend"`
	// DataDir is the directory badger/file backends write under.
	DataDir string `yaml:"data_dir"`
	// BlockSize is the buffer pool's block granularity in bytes.
	BlockSize uint32 `yaml:"block_size"`
	// PoolCapacity is the buffer pool's total buffer capacity in bytes.
	PoolCapacity int `yaml:"pool_capacity"`
}

// IndexConfig controls default index construction parameters.
type IndexConfig struct {
	// Kind selects the default index.Kind ("flat", "hnsw" or
	// "hnsw_rabitq") new
	// indexes are built with absent an explicit override.
	Kind string `yaml:"kind"`
	// Metric names the default metric.Name.
	Metric string `yaml:"metric"`
	// Encoding names the default metric.Encoding.
	Encoding string `yaml:"encoding"`
	// M is the HNSW per-node neighbor budget above level 0.
	M int `yaml:"m"`
	// EfConstruction is the HNSW build-time beam width.
	EfConstruction int `yaml:"ef_construction"`
	// EfSearch is the HNSW query-time beam width.
	EfSearch int `yaml:"ef_search"`
	// Workers sizes the index.Threads pool each opened Context gets.
	Workers int `yaml:"workers"`
	// ScratchPoolEnabled toggles index.ScratchPool reuse.
	ScratchPoolEnabled bool `yaml:"scratch_pool_enabled"`
}

// CacheConfig controls the metric handle cache.
type CacheConfig struct {
	// HandleCacheSize caps the number of resolved metric.IndexMetric
	// handles kept warm in the metric.HandleCache LRU.
	HandleCacheSize int `yaml:"handle_cache_size"`
}

// MetricsConfig controls telemetry emission.
type MetricsConfig struct {
	// Enabled toggles otel/metric instrument recording.
	Enabled bool `yaml:"enabled"`
	// MeterName is the otel meter name instruments register under.
	MeterName string `yaml:"meter_name"`
}

// RuntimeConfig controls Go runtime tuning, applied via
// ApplyRuntimeMemory.
type RuntimeConfig struct {
	// MemoryLimitStr is the human-readable soft memory limit
	// (e.g. "2GB"); "0" or "unlimited" disables the limit.
	MemoryLimitStr string `yaml:"memory_limit"`
	// GCPercent controls GOGC; 100 is the Go default.
	GCPercent int `yaml:"gc_percent"`
}

// Defaults returns a Config populated with the values annlite ships
// with when neither an environment variable nor a YAML file overrides
// them.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{
			Backend:      "memory",
			DataDir:      "./data",
			BlockSize:    4096,
			PoolCapacity: 1024,
		},
		Index: IndexConfig{
			Kind:               "hnsw",
			Metric:             string(metric.SquaredEuclidean),
			Encoding:           "fp32",
			M:                  16,
			EfConstruction:     200,
			EfSearch:           64,
			Workers:            4,
			ScratchPoolEnabled: true,
		},
		Cache: CacheConfig{HandleCacheSize: 64},
		Metrics: MetricsConfig{
			Enabled:   true,
			MeterName: "annlite",
		},
		Runtime: RuntimeConfig{MemoryLimitStr: "0", GCPercent: 100},
	}
}

// Load builds a Config starting from Defaults, then applying a YAML
// file at path (if path is non-empty and the file exists) and finally
// environment variables, matching layered
// file-then-env precedence for NornicDB-specific settings. Environment
// variables win over the file, which wins over defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Storage.Backend = getEnv("ANNLITE_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.DataDir = getEnv("ANNLITE_DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.BlockSize = uint32(getEnvInt("ANNLITE_BLOCK_SIZE", int(cfg.Storage.BlockSize)))
	cfg.Storage.PoolCapacity = getEnvInt("ANNLITE_POOL_CAPACITY", cfg.Storage.PoolCapacity)

	cfg.Index.Kind = getEnv("ANNLITE_INDEX_KIND", cfg.Index.Kind)
	cfg.Index.Metric = getEnv("ANNLITE_INDEX_METRIC", cfg.Index.Metric)
	cfg.Index.Encoding = getEnv("ANNLITE_INDEX_ENCODING", cfg.Index.Encoding)
	cfg.Index.M = getEnvInt("ANNLITE_INDEX_M", cfg.Index.M)
	cfg.Index.EfConstruction = getEnvInt("ANNLITE_INDEX_EF_CONSTRUCTION", cfg.Index.EfConstruction)
	cfg.Index.EfSearch = getEnvInt("ANNLITE_INDEX_EF_SEARCH", cfg.Index.EfSearch)
	cfg.Index.Workers = getEnvInt("ANNLITE_INDEX_WORKERS", cfg.Index.Workers)
	cfg.Index.ScratchPoolEnabled = getEnvBool("ANNLITE_SCRATCH_POOL_ENABLED", cfg.Index.ScratchPoolEnabled)

	cfg.Cache.HandleCacheSize = getEnvInt("ANNLITE_HANDLE_CACHE_SIZE", cfg.Cache.HandleCacheSize)

	cfg.Metrics.Enabled = getEnvBool("ANNLITE_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.MeterName = getEnv("ANNLITE_METRICS_METER_NAME", cfg.Metrics.MeterName)

	cfg.Runtime.MemoryLimitStr = getEnv("ANNLITE_MEMORY_LIMIT", cfg.Runtime.MemoryLimitStr)
	cfg.Runtime.GCPercent = getEnvInt("ANNLITE_GC_PERCENT", cfg.Runtime.GCPercent)
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "file", "badger":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	switch index.Kind(c.Index.Kind) {
	case index.KindFlat, index.KindHNSW, index.KindHNSWRaBitQ:
	default:
		return fmt.Errorf("config: unknown index kind %q", c.Index.Kind)
	}
	if c.Storage.BlockSize == 0 {
		return fmt.Errorf("config: block size must be positive")
	}
	if c.Index.M <= 0 {
		return fmt.Errorf("config: index.m must be positive")
	}
	if c.Index.EfSearch <= 0 || c.Index.EfConstruction <= 0 {
		return fmt.Errorf("config: ef_search and ef_construction must be positive")
	}
	return nil
}

// ApplyRuntimeMemory applies the runtime memory settings to the Go
// runtime. Call early in main() before heavy allocations.
func (c *RuntimeConfig) ApplyRuntimeMemory() {
	limit := parseMemorySize(c.MemoryLimitStr)
	if limit > 0 {
		debug.SetMemoryLimit(limit)
	}
	if c.GCPercent != 100 && c.GCPercent > 0 {
		debug.SetGCPercent(c.GCPercent)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

// parseMemorySize parses a human-readable memory size string.
// Supports "1024", "1KB", "1MB", "1GB", "1TB", "0", "unlimited".
func parseMemorySize(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" || s == "UNLIMITED" {
		return 0
	}
	s = strings.TrimSuffix(s, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "T")
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return val * multiplier
}

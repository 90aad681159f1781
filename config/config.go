package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"groupbuy/detailworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Memory tier: "lru" (per process) or "memcache" (shared)
	MemoBackend string
	MemoSize    int

	// Listing store
	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	// Detail cache windows
	FetchTimeout    time.Duration
	MemoryTTL       time.Duration
	FreshnessWindow time.Duration

	// Background refresh
	RefreshInterval    time.Duration
	RefreshBatch       int
	RefreshConcurrency int
	RefreshRPS         float64

	// Headless browser assist
	HeadlessEnabled bool
	BrowserMode     string
	ChromeDBAddr    string
	BrowserTimeout  time.Duration

	// Egress proxies (host:port, comma separated)
	ProxyAddrs []string

	MetricsAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	memoSize, _ := strconv.Atoi(getEnv("MEMO_SIZE", "4096"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_MS", "3500"))
	memoryTTL, _ := strconv.Atoi(getEnv("MEMORY_TTL_SECONDS", "300"))
	freshness, _ := strconv.Atoi(getEnv("FRESHNESS_HOURS", "24"))
	refreshInterval, _ := strconv.Atoi(getEnv("REFRESH_INTERVAL_SECONDS", "300"))
	refreshBatch, _ := strconv.Atoi(getEnv("REFRESH_BATCH", "50"))
	refreshConcurrency, _ := strconv.Atoi(getEnv("REFRESH_CONCURRENCY", "4"))
	refreshRPS, _ := strconv.ParseFloat(getEnv("REFRESH_RPS", "2"), 64)
	headless, _ := strconv.ParseBool(getEnv("HEADLESS_ENABLED", "false"))
	browserTimeout, _ := strconv.Atoi(getEnv("BROWSER_TIMEOUT_SECONDS", "45"))

	return &Config{
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "product_details"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLength,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		MemoBackend:          getEnv("MEMO_BACKEND", "lru"),
		MemoSize:             memoSize,
		StoreDriver:          getEnv("STORE_DRIVER", "sqlite"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		SQLitePath:           getEnv("SQLITE_PATH", "detailworker.db"),
		FetchTimeout:         time.Duration(fetchTimeout) * time.Millisecond,
		MemoryTTL:            time.Duration(memoryTTL) * time.Second,
		FreshnessWindow:      time.Duration(freshness) * time.Hour,
		RefreshInterval:      time.Duration(refreshInterval) * time.Second,
		RefreshBatch:         refreshBatch,
		RefreshConcurrency:   refreshConcurrency,
		RefreshRPS:           refreshRPS,
		HeadlessEnabled:      headless,
		BrowserMode:          getEnv("BROWSER_MODE", "chromedb"),
		ChromeDBAddr:         getEnv("CHROMEDB_ADDR", "http://localhost:3000"),
		BrowserTimeout:       time.Duration(browserTimeout) * time.Second,
		ProxyAddrs:           splitList(getEnv("PROXY_ADDRS", "")),
		MetricsAddr:          getEnv("METRICS_ADDR", ":9102"),
		Environment:          getEnv("DETAIL_ENVIRONMENT", "development"),
	}
}

// Validate checks that the loaded values can run the worker
func (c *Config) Validate() error {
	if c.RedisStreamCount <= 0 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be positive", nil)
	}
	if c.MemoryTTL <= 0 {
		return errors.NewConfiguration("MEMORY_TTL_SECONDS must be positive", nil)
	}
	if c.FreshnessWindow < c.MemoryTTL {
		return errors.NewConfiguration(
			fmt.Sprintf("freshness window (%s) cannot be shorter than memory TTL (%s)", c.FreshnessWindow, c.MemoryTTL), nil)
	}
	if c.FetchTimeout <= 0 {
		return errors.NewConfiguration("FETCH_TIMEOUT_MS must be positive", nil)
	}
	switch c.MemoBackend {
	case "lru":
		if c.MemoSize <= 0 {
			return errors.NewConfiguration("MEMO_SIZE must be positive", nil)
		}
	case "memcache":
		if c.MemcacheAddr == "" {
			return errors.NewConfiguration("MEMCACHE_ADDR is required for memcache memo", nil)
		}
	default:
		return errors.NewConfiguration(fmt.Sprintf("unknown MEMO_BACKEND %q", c.MemoBackend), nil)
	}
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.NewConfiguration("DATABASE_URL is required for postgres store", nil)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.NewConfiguration("SQLITE_PATH is required for sqlite store", nil)
		}
	default:
		return errors.NewConfiguration(fmt.Sprintf("unknown STORE_DRIVER %q", c.StoreDriver), nil)
	}
	if c.RefreshBatch <= 0 || c.RefreshConcurrency <= 0 {
		return errors.NewConfiguration("REFRESH_BATCH and REFRESH_CONCURRENCY must be positive", nil)
	}
	if c.RefreshRPS <= 0 {
		return errors.NewConfiguration("REFRESH_RPS must be positive", nil)
	}
	if c.HeadlessEnabled && c.BrowserMode != "chromedb" && c.BrowserMode != "rod" {
		return errors.NewConfiguration(fmt.Sprintf("unknown BROWSER_MODE %q", c.BrowserMode), nil)
	}
	return nil
}

// IsProduction reports whether the worker runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hitoshi/quakewatch/internal/model"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Feed
	FeedBaseURL  string
	FetchTimeout time.Duration
	FetchMaxSize int64

	// Refresh
	RefreshInterval time.Duration

	// Region（固定クエリ領域）
	RegionMinLat float64
	RegionMaxLat float64
	RegionMinLon float64
	RegionMaxLon float64

	// Alert
	AlertThreshold  float64
	AlertWebhookURL string

	// Default criteria
	DefaultTimeRange    string
	DefaultMinMagnitude float64

	// Rate Limit（req/min/クライアント）
	RateLimitGeneral int
	RateLimitRefresh int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// すべての項目にデフォルト値があり、未設定でも起動できる。
// 領域境界など値の整合性が取れない場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.FeedBaseURL = getEnvString("FEED_BASE_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query")
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)

	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 5*time.Minute)

	defaults := model.DefaultRegionBounds()
	cfg.RegionMinLat = getEnvFloat("REGION_MIN_LAT", defaults.MinLat)
	cfg.RegionMaxLat = getEnvFloat("REGION_MAX_LAT", defaults.MaxLat)
	cfg.RegionMinLon = getEnvFloat("REGION_MIN_LON", defaults.MinLon)
	cfg.RegionMaxLon = getEnvFloat("REGION_MAX_LON", defaults.MaxLon)

	cfg.AlertThreshold = getEnvFloat("ALERT_THRESHOLD", 5.5)
	cfg.AlertWebhookURL = getEnvString("ALERT_WEBHOOK_URL", "")

	cfg.DefaultTimeRange = getEnvString("DEFAULT_TIME_RANGE", "week")
	cfg.DefaultMinMagnitude = getEnvFloat("DEFAULT_MIN_MAGNITUDE", 0)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitRefresh = getEnvInt("RATE_LIMIT_REFRESH", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	if !cfg.RegionBounds().Valid() {
		return nil, fmt.Errorf("invalid region bounds: lat [%g, %g], lon [%g, %g]",
			cfg.RegionMinLat, cfg.RegionMaxLat, cfg.RegionMinLon, cfg.RegionMaxLon)
	}
	if !model.TimeRange(cfg.DefaultTimeRange).Valid() {
		return nil, fmt.Errorf("invalid DEFAULT_TIME_RANGE: %q", cfg.DefaultTimeRange)
	}
	if cfg.DefaultMinMagnitude < 0 {
		return nil, fmt.Errorf("DEFAULT_MIN_MAGNITUDE must be non-negative: %g", cfg.DefaultMinMagnitude)
	}

	return cfg, nil
}

// RegionBounds は設定された固定クエリ領域を返す。
func (c *Config) RegionBounds() model.RegionBounds {
	return model.RegionBounds{
		MinLat: c.RegionMinLat,
		MaxLat: c.RegionMaxLat,
		MinLon: c.RegionMinLon,
		MaxLon: c.RegionMaxLon,
	}
}

// DefaultCriteria は設定に基づく起動時の検索条件を返す。
func (c *Config) DefaultCriteria() model.QueryCriteria {
	criteria := model.DefaultQueryCriteria()
	criteria.TimeRange = model.TimeRange(c.DefaultTimeRange)
	criteria.MinMagnitude = c.DefaultMinMagnitude
	return criteria
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

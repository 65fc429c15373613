package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

const envPrefix = "PI_"

type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	History  HistoryConfig  `yaml:"history" json:"history"`
	Cache    CacheConfig    `yaml:"cache" json:"cache"`
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
}

type ServerConfig struct {
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	GRPCPort     int           `yaml:"grpc_port" json:"grpc_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	MaxBodySize  int64         `yaml:"max_body_size" json:"max_body_size"`
}

// HistoryConfig controls the badger-backed comparison history.
type HistoryConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	DataPath   string        `yaml:"data_path" json:"data_path"`
	InMemory   bool          `yaml:"in_memory" json:"in_memory"`
	SyncWrites bool          `yaml:"sync_writes" json:"sync_writes"`
	Retention  time.Duration `yaml:"retention" json:"retention"` // 0 keeps records forever
	ValueLogGC bool          `yaml:"value_log_gc" json:"value_log_gc"`
	GCInterval time.Duration `yaml:"gc_interval" json:"gc_interval"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"` // Records kept in memory, 0 disables
	CacheTTL   time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Backend         string        `yaml:"backend" json:"backend"` // memory or redis
	Size            int           `yaml:"size" json:"size"`       // Maximum number of results held in memory
	TTL             time.Duration `yaml:"ttl" json:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	RedisAddr       string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password" json:"-"`
	RedisDB         int           `yaml:"redis_db" json:"redis_db"`
	KeyPrefix       string        `yaml:"key_prefix" json:"key_prefix"`
}

// AnalysisConfig tunes the comparison pipeline.
type AnalysisConfig struct {
	// DefaultMaxMetrics truncates displayed diffs when a request does not
	// ask for a size. 0 disables truncation.
	DefaultMaxMetrics int `yaml:"default_max_metrics" json:"default_max_metrics"`
	// MaxMaxMetrics caps what a request may ask for.
	MaxMaxMetrics int                 `yaml:"max_max_metrics" json:"max_max_metrics"`
	Thresholds    insights.Thresholds `yaml:"thresholds" json:"thresholds"`
}

type LoggingConfig struct {
	Level                string `yaml:"level" json:"level"`
	Format               string `yaml:"format" json:"format"`
	Output               string `yaml:"output" json:"output"`
	EnableRequestTracing bool   `yaml:"enable_request_tracing" json:"enable_request_tracing"`
	EnableCorrelationIDs bool   `yaml:"enable_correlation_ids" json:"enable_correlation_ids"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

type TracingConfig struct {
	Enabled        bool              `yaml:"enabled" json:"enabled"`
	ServiceName    string            `yaml:"service_name" json:"service_name"`
	ServiceVersion string            `yaml:"service_version" json:"service_version"`
	Environment    string            `yaml:"environment" json:"environment"`
	ExporterType   string            `yaml:"exporter_type" json:"exporter_type"`
	OTLPEndpoint   string            `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	OTLPHeaders    map[string]string `yaml:"otlp_headers" json:"otlp_headers"`
	SamplingRatio  float64           `yaml:"sampling_ratio" json:"sampling_ratio"`
}

func Load(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8080,
			GRPCPort:     9090,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			MaxBodySize:  5 * 1024 * 1024, // 5MB per request, two reports
		},
		History: HistoryConfig{
			Enabled:    true,
			DataPath:   "./data/history",
			InMemory:   false,
			SyncWrites: false,
			Retention:  30 * 24 * time.Hour,
			ValueLogGC: true,
			GCInterval: 10 * time.Minute,
			CacheSize:  256,
			CacheTTL:   10 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:         true,
			Backend:         "memory",
			Size:            1000,
			TTL:             15 * time.Minute,
			CleanupInterval: 5 * time.Minute,
			RedisAddr:       "localhost:6379",
			RedisDB:         0,
			KeyPrefix:       "perf-insights:",
		},
		Analysis: AnalysisConfig{
			DefaultMaxMetrics: 0,
			MaxMaxMetrics:     500,
			Thresholds:        insights.DefaultThresholds(),
		},
		Logging: LoggingConfig{
			Level:                "info",
			Format:               "json",
			Output:               "stdout",
			EnableRequestTracing: true,
			EnableCorrelationIDs: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:        false,
			ServiceName:    "performance-insights",
			ServiceVersion: "1.0.0",
			Environment:    "development",
			ExporterType:   "console",
			OTLPEndpoint:   "http://localhost:4318",
			OTLPHeaders:    make(map[string]string),
			SamplingRatio:  1.0,
		},
	}
}

func loadFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return nil
}

// LoadThresholds reads an impact threshold table from a YAML file. Sections
// left out of the file keep their defaults.
func LoadThresholds(path string) (insights.Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return insights.Thresholds{}, fmt.Errorf("failed to read thresholds file: %w", err)
	}
	var t insights.Thresholds
	if err := yaml.Unmarshal(data, &t); err != nil {
		return insights.Thresholds{}, fmt.Errorf("failed to unmarshal thresholds: %w", err)
	}
	return t.WithDefaults(), nil
}

func getenv(key string) string {
	return os.Getenv(envPrefix + key)
}

func envInt(key string, dst *int) {
	if v := getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envString(key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func loadFromEnvironment(config *Config) {
	// Server configuration
	envString("SERVER_HOST", &config.Server.Host)
	envInt("SERVER_PORT", &config.Server.Port)
	envInt("SERVER_GRPC_PORT", &config.Server.GRPCPort)

	// History configuration
	envBool("HISTORY_ENABLED", &config.History.Enabled)
	envString("HISTORY_DATA_PATH", &config.History.DataPath)
	envBool("HISTORY_IN_MEMORY", &config.History.InMemory)
	envBool("HISTORY_SYNC_WRITES", &config.History.SyncWrites)
	envDuration("HISTORY_RETENTION", &config.History.Retention)

	// Cache configuration
	envBool("CACHE_ENABLED", &config.Cache.Enabled)
	envString("CACHE_BACKEND", &config.Cache.Backend)
	envInt("CACHE_SIZE", &config.Cache.Size)
	envDuration("CACHE_TTL", &config.Cache.TTL)
	envString("CACHE_REDIS_ADDR", &config.Cache.RedisAddr)
	envString("CACHE_REDIS_PASSWORD", &config.Cache.RedisPassword)
	envInt("CACHE_REDIS_DB", &config.Cache.RedisDB)

	// Analysis configuration
	envInt("ANALYSIS_DEFAULT_MAX_METRICS", &config.Analysis.DefaultMaxMetrics)
	envInt("ANALYSIS_MAX_MAX_METRICS", &config.Analysis.MaxMaxMetrics)

	// Logging configuration
	envString("LOG_LEVEL", &config.Logging.Level)
	envString("LOG_FORMAT", &config.Logging.Format)
	envString("LOG_OUTPUT", &config.Logging.Output)

	// Metrics configuration
	envBool("METRICS_ENABLED", &config.Metrics.Enabled)
	envString("METRICS_PATH", &config.Metrics.Path)

	// Tracing configuration
	envBool("TRACING_ENABLED", &config.Tracing.Enabled)
	envString("TRACING_EXPORTER", &config.Tracing.ExporterType)
	envString("TRACING_OTLP_ENDPOINT", &config.Tracing.OTLPEndpoint)
	if v := getenv("TRACING_SAMPLING_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Tracing.SamplingRatio = f
		}
	}
}

func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.Port == c.Server.GRPCPort {
		return fmt.Errorf("server port and gRPC port cannot be the same: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.Server.MaxBodySize <= 0 {
		return fmt.Errorf("max body size must be positive")
	}

	// History validation
	if c.History.Enabled {
		if !c.History.InMemory && c.History.DataPath == "" {
			return fmt.Errorf("history data path cannot be empty when not using in-memory storage")
		}
		if c.History.Retention < 0 {
			return fmt.Errorf("history retention cannot be negative")
		}
		if c.History.ValueLogGC && c.History.GCInterval <= 0 {
			return fmt.Errorf("GC interval must be positive")
		}
	}

	// Cache validation
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "memory":
			if c.Cache.Size <= 0 {
				return fmt.Errorf("cache size must be positive")
			}
		case "redis":
			if c.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address cannot be empty when the redis cache backend is used")
			}
		default:
			return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
	}

	// Analysis validation
	if c.Analysis.DefaultMaxMetrics < 0 {
		return fmt.Errorf("default max metrics cannot be negative")
	}
	if c.Analysis.MaxMaxMetrics < 0 {
		return fmt.Errorf("max max metrics cannot be negative")
	}
	if c.Analysis.MaxMaxMetrics > 0 && c.Analysis.DefaultMaxMetrics > c.Analysis.MaxMaxMetrics {
		return fmt.Errorf("default max metrics %d exceeds the limit %d", c.Analysis.DefaultMaxMetrics, c.Analysis.MaxMaxMetrics)
	}
	for i, band := range c.Analysis.Thresholds.RevenueRisk {
		if band.Level == "" {
			return fmt.Errorf("revenue risk band %d has no level", i)
		}
	}

	// Logging validation
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{
		"json": true, "text": true, "console": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Metrics validation
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", c.Metrics.Path)
	}

	// Tracing validation
	if c.Tracing.Enabled {
		switch c.Tracing.ExporterType {
		case "console", "otlp":
		default:
			return fmt.Errorf("invalid tracing exporter: %s", c.Tracing.ExporterType)
		}
		if c.Tracing.SamplingRatio < 0 || c.Tracing.SamplingRatio > 1 {
			return fmt.Errorf("sampling ratio must be between 0 and 1: %v", c.Tracing.SamplingRatio)
		}
	}

	return nil
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	Client    ClientConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64 // JSON routes
	MaxUploadSize    int64 // multipart document upload
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// Storage drivers
const (
	StorageDriverFilesystem = "filesystem"
	StorageDriverS3         = "s3"
	StorageDriverSQL        = "sql"
	StorageDriverMemory     = "memory"
)

// StorageConfig holds the shard backend settings of the site data store
type StorageConfig struct {
	Driver string // filesystem, s3, sql, memory

	// filesystem
	DataDir string

	// s3 (any S3-compatible service: AWS S3, MinIO, RustFS)
	Bucket            string
	Prefix            string
	AccessKey         string
	SecretKey         string
	Region            string
	Endpoint          string
	UsePathStyle      bool
	UseSSL            bool
	PresignExpiration time.Duration

	// sql
	SQLDriver       string // sqlite, postgres
	SQLDSN          string
	SQLLogLevel     string // silent, error, warn, info
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
}

// ClientConfig holds settings of the admin console's connection to the site data API
type ClientConfig struct {
	APIBaseURL             string // empty means static deployment without a server
	Timeout                time.Duration
	LargeDocumentThreshold int64 // documents above this size are sent as a file upload
	AsyncSync              bool  // push writes to the server in the background
}

// Cache drivers
const (
	CacheDriverFile   = "file"
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

// CacheConfig holds the admin console's local cache settings
type CacheConfig struct {
	Driver    string // file, redis, memory
	Dir       string
	MaxBytes  int64 // 0 = unlimited
	KeyPrefix string
	Redis     RedisConfig
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	LogsEnabled       bool // Also export zap records over OTLP
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SITE_ prefix (e.g., SITE_STORAGE_DRIVER)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			MaxUploadSize:    v.GetInt64("http.max_upload_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Driver:            v.GetString("storage.driver"),
			DataDir:           v.GetString("storage.data_dir"),
			Bucket:            v.GetString("storage.bucket"),
			Prefix:            v.GetString("storage.prefix"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			Region:            v.GetString("storage.region"),
			Endpoint:          v.GetString("storage.endpoint"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			SQLDriver:         v.GetString("storage.sql_driver"),
			SQLDSN:            v.GetString("storage.sql_dsn"),
			SQLLogLevel:       v.GetString("storage.sql_log_level"),
			MaxOpenConns:      v.GetInt("storage.max_open_conns"),
			MaxIdleConns:      v.GetInt("storage.max_idle_conns"),
			ConnMaxLifetime:   v.GetInt("storage.conn_max_lifetime"),
		},
		Client: ClientConfig{
			APIBaseURL:             v.GetString("client.api_base_url"),
			Timeout:                v.GetDuration("client.timeout"),
			LargeDocumentThreshold: v.GetInt64("client.large_document_threshold"),
			AsyncSync:              v.GetBool("client.async_sync"),
		},
		Cache: CacheConfig{
			Driver:    v.GetString("cache.driver"),
			Dir:       v.GetString("cache.dir"),
			MaxBytes:  v.GetInt64("cache.max_bytes"),
			KeyPrefix: v.GetString("cache.key_prefix"),
			Redis: RedisConfig{
				Host:     v.GetString("cache.redis.host"),
				Port:     v.GetInt("cache.redis.port"),
				Password: v.GetString("cache.redis.password"),
				DB:       v.GetInt("cache.redis.db"),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "catalog-site"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 4 << 20 // 4MB
	}
	if cfg.HTTP.MaxUploadSize == 0 {
		cfg.HTTP.MaxUploadSize = 32 << 20 // 32MB
	}
	// NOTE: CORS origins have no "*" fallback. An empty list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageDriverFilesystem
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data/site"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "site-data"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 5 * time.Minute
	}
	if cfg.Storage.SQLDriver == "" {
		cfg.Storage.SQLDriver = "sqlite"
	}
	if cfg.Storage.SQLDSN == "" && cfg.Storage.SQLDriver == "sqlite" {
		cfg.Storage.SQLDSN = "file:site.db?_busy_timeout=5000"
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = 10
	}
	if cfg.Storage.MaxIdleConns == 0 {
		cfg.Storage.MaxIdleConns = 2
	}
	if cfg.Storage.ConnMaxLifetime == 0 {
		cfg.Storage.ConnMaxLifetime = 60
	}

	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 30 * time.Second
	}
	if cfg.Client.LargeDocumentThreshold == 0 {
		cfg.Client.LargeDocumentThreshold = 1 << 20 // 1MB
	}

	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = CacheDriverFile
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "./data/cache"
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "catalog:"
	}
	if cfg.Cache.Redis.Host == "" {
		cfg.Cache.Redis.Host = "localhost"
	}
	if cfg.Cache.Redis.Port == 0 {
		cfg.Cache.Redis.Port = 6379
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverFilesystem, StorageDriverMemory:
	case StorageDriverS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 driver")
		}
	case StorageDriverSQL:
		if c.Storage.SQLDriver != "sqlite" && c.Storage.SQLDriver != "postgres" {
			return fmt.Errorf("storage.sql_driver must be sqlite or postgres, got %q", c.Storage.SQLDriver)
		}
		if c.Storage.SQLDSN == "" {
			return fmt.Errorf("storage.sql_dsn is required for the %s driver", c.Storage.SQLDriver)
		}
	default:
		return fmt.Errorf("storage.driver must be one of filesystem, s3, sql, memory, got %q", c.Storage.Driver)
	}
	if c.Storage.MaxIdleConns > c.Storage.MaxOpenConns {
		return fmt.Errorf("storage.max_idle_conns (%d) cannot exceed storage.max_open_conns (%d)",
			c.Storage.MaxIdleConns, c.Storage.MaxOpenConns)
	}

	switch c.Cache.Driver {
	case CacheDriverFile, CacheDriverRedis, CacheDriverMemory:
	default:
		return fmt.Errorf("cache.driver must be one of file, redis, memory, got %q", c.Cache.Driver)
	}
	if c.Cache.MaxBytes < 0 {
		return fmt.Errorf("cache.max_bytes cannot be negative")
	}

	if c.Client.APIBaseURL != "" {
		u, err := url.Parse(c.Client.APIBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("client.api_base_url must be an absolute URL, got %q", c.Client.APIBaseURL)
		}
	}
	if c.HTTP.MaxUploadSize < c.HTTP.MaxBodySize {
		return fmt.Errorf("http.max_upload_size (%d) cannot be smaller than http.max_body_size (%d)",
			c.HTTP.MaxUploadSize, c.HTTP.MaxBodySize)
	}

	if c.App.Env == "production" {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Storage.Driver == StorageDriverMemory {
			return fmt.Errorf("storage.driver=memory loses all data on restart and is not allowed in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

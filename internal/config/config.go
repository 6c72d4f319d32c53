// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database, object storage, external API
// credentials, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS" envDefault:"false"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" envDefault:"4320h"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"harvest-hub"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1.0"`
}

// DBConfig selects and locates the relational database.
type DBConfig struct {
	Driver      string `env:"DB_DRIVER" envDefault:"sqlite"` // sqlite|postgres
	Path        string `env:"DB_PATH" envDefault:"harvest.db"`
	URL         string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// StorageConfig selects the object storage backend. Buckets are logical
// prefixes inside one S3 bucket or one local directory.
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" envDefault:"local"` // local|s3

	LocalPath    string `env:"STORAGE_LOCAL_PATH" envDefault:"uploads"`
	LocalBaseURL string `env:"STORAGE_LOCAL_BASE_URL" envDefault:"/files"`

	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3AccessKeyID   string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey     string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle  bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

// AuthConfig controls bearer token verification.
type AuthConfig struct {
	Enabled   bool   `env:"AUTH_ENABLED" envDefault:"false"`
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWKSURL   string `env:"AUTH_JWKS_URL"`
	Issuer    string `env:"AUTH_ISSUER"`
	Audience  string `env:"AUTH_AUDIENCE"`
}

// WeatherConfig configures the Agromonitoring and Nominatim clients.
type WeatherConfig struct {
	APIKey       string        `env:"WEATHER_API_KEY"`
	BaseURL      string        `env:"WEATHER_BASE_URL" envDefault:"https://api.agromonitoring.com/agro/1.0"`
	GeocodeURL   string        `env:"GEOCODE_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
	UserAgent    string        `env:"GEOCODE_USER_AGENT" envDefault:"harvest-hub/1.0"`
	Timeout      time.Duration `env:"WEATHER_TIMEOUT" envDefault:"10s"`
	CacheTTL     time.Duration `env:"WEATHER_CACHE_TTL" envDefault:"1h"`
	CacheBackend string        `env:"WEATHER_CACHE" envDefault:"memory"` // memory|redis|noop
	CacheSize    int           `env:"WEATHER_CACHE_SIZE" envDefault:"512"`
	RedisURL     string        `env:"REDIS_URL"`
	PolygonKm    float64       `env:"WEATHER_POLYGON_KM" envDefault:"1.0"`
	UTCOffset    int           `env:"WEATHER_UTC_OFFSET_HOURS" envDefault:"8"` // daily forecast day boundary
}

// CropHealthConfig configures the crop diagnosis client.
type CropHealthConfig struct {
	APIKey  string        `env:"CROP_HEALTH_API_KEY"`
	BaseURL string        `env:"CROP_HEALTH_BASE_URL" envDefault:"https://crop.kindwise.com/api/v1"`
	Timeout time.Duration `env:"CROP_HEALTH_TIMEOUT" envDefault:"30s"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" envDefault:"1048576"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"6291456"`
	GinMode           string        `env:"GIN_MODE" envDefault:"release"` // debug|release|test

	// Logging / Docs
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"` // debug|info|warn|error|fatal|panic
	LogPretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED" envDefault:"false"`
	APIBasePath    string `env:"API_BASE_PATH" envDefault:"/api/v1"`

	// Chat
	MaxMessageRunes int `env:"MAX_MESSAGE_RUNES" envDefault:"4000"`

	// Rate limiting
	RateRPS   float64 `env:"RATE_RPS" envDefault:"10"`
	RateBurst int     `env:"RATE_BURST" envDefault:"20"`

	// Idempotency
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	DB         DBConfig
	Storage    StorageConfig
	Auth       AuthConfig
	Weather    WeatherConfig
	CropHealth CropHealthConfig
	CORS       CORSConfig
	Security   SecurityConfig
	OTEL       OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	// --- normalization ---
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.GinMode = strings.ToLower(strings.TrimSpace(cfg.GinMode))
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.APIBasePath = normalizeBasePath(cfg.APIBasePath)
	cfg.CORS.AllowedOrigins = cleanList(cfg.CORS.AllowedOrigins)
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Weather.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.Weather.CacheBackend))
	cfg.Storage.LocalBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Storage.LocalBaseURL), "/")
	cfg.Storage.S3PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Storage.S3PublicBaseURL), "/")

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	if cfg.MaxMessageRunes <= 0 {
		return errors.New("MAX_MESSAGE_RUNES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}

	switch cfg.Storage.Backend {
	case "local":
		if strings.TrimSpace(cfg.Storage.LocalPath) == "" {
			return errors.New("STORAGE_LOCAL_PATH must not be empty")
		}
	case "s3":
		if strings.TrimSpace(cfg.Storage.S3Bucket) == "" {
			return errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return errors.New("STORAGE_BACKEND must be one of: local, s3")
	}

	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.JWTSecret) == "" && strings.TrimSpace(cfg.Auth.JWKSURL) == "" {
		return errors.New("AUTH_JWT_SECRET or AUTH_JWKS_URL is required when AUTH_ENABLED=true")
	}

	switch cfg.Weather.CacheBackend {
	case "memory", "noop":
	case "redis":
		if strings.TrimSpace(cfg.Weather.RedisURL) == "" {
			return errors.New("REDIS_URL is required when WEATHER_CACHE=redis")
		}
	default:
		return errors.New("WEATHER_CACHE must be one of: memory, redis, noop")
	}
	if cfg.Weather.CacheTTL <= 0 || cfg.Weather.Timeout <= 0 || cfg.CropHealth.Timeout <= 0 {
		return errors.New("external API timeouts and cache TTL must be positive")
	}
	if cfg.Weather.CacheSize < 1 {
		return errors.New("WEATHER_CACHE_SIZE must be >= 1")
	}
	if cfg.Weather.UTCOffset < -12 || cfg.Weather.UTCOffset > 14 {
		return errors.New("WEATHER_UTC_OFFSET_HOURS must be in [-12,14]")
	}
	if cfg.Weather.PolygonKm <= 0 || cfg.Weather.PolygonKm > 20 {
		return errors.New("WEATHER_POLYGON_KM must be in (0,20]")
	}
	return nil
}

// WeatherEnabled reports whether the weather endpoints have credentials.
func (cfg Config) WeatherEnabled() bool { return strings.TrimSpace(cfg.Weather.APIKey) != "" }

// CropHealthEnabled reports whether the diagnosis endpoints have credentials.
func (cfg Config) CropHealthEnabled() bool { return strings.TrimSpace(cfg.CropHealth.APIKey) != "" }

func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}

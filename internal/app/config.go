package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yungbote/trainforge-backend/internal/data/db"
	"github.com/yungbote/trainforge-backend/internal/data/scormcache"
	"github.com/yungbote/trainforge-backend/internal/modules/training/authoring"
	"github.com/yungbote/trainforge-backend/internal/modules/training/scorm"
	"github.com/yungbote/trainforge-backend/internal/observability"
	"github.com/yungbote/trainforge-backend/internal/platform/gcp"
)

type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	LogMode     string   `env:"LOG_MODE" envDefault:"development"`
	LogLevel    string   `env:"LOG_LEVEL"`
	LogRedact   bool     `env:"LOG_REDACT" envDefault:"false"`
	LogHashSalt string   `env:"LOG_HASH_SALT"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	DB      DBConfig
	Redis   RedisConfig
	Storage StorageConfig
	Auth    AuthConfig
	Upload  UploadConfig
	Scorm   ScormConfig
	Editor  EditorConfig
	Otel    OtelConfig
}

type DBConfig struct {
	Driver       string `env:"DB_DRIVER" envDefault:"postgres"`
	Host         string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         string `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password     string `env:"POSTGRES_PASSWORD"`
	Name         string `env:"POSTGRES_NAME" envDefault:"trainforge"`
	SSLMode      string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	SQLitePath   string `env:"SQLITE_PATH"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
}

// RedisConfig fronts SCORM attempts with a cache. Empty Addr runs without one.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	Prefix   string        `env:"REDIS_SCORM_PREFIX" envDefault:"scorm"`
	TTL      time.Duration `env:"SCORM_CACHE_TTL" envDefault:"30m"`
}

// StorageConfig is optional. Without MediaBucket uploads are disabled.
type StorageConfig struct {
	Mode          string `env:"OBJECT_STORAGE_MODE"`
	EmulatorHost  string `env:"STORAGE_EMULATOR_HOST"`
	Credentials   string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	MediaBucket   string `env:"MEDIA_GCS_BUCKET_NAME"`
	MediaCDN      string `env:"MEDIA_CDN_DOMAIN"`
	ScormBucket   string `env:"SCORM_GCS_BUCKET_NAME"`
	ScormCDN      string `env:"SCORM_CDN_DOMAIN"`
	PublicBaseURL string `env:"OBJECT_STORAGE_PUBLIC_BASE_URL"`
}

type AuthConfig struct {
	JWTSecretKey   string        `env:"JWT_SECRET_KEY" envDefault:"defaultsecret"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
}

type UploadConfig struct {
	MaxBytes       int64 `env:"UPLOAD_MAX_BYTES" envDefault:"2147483648"`
	VerifyManifest bool  `env:"SCORM_VERIFY_MANIFEST" envDefault:"false"`
}

type ScormConfig struct {
	CommitRetries   int           `env:"SCORM_COMMIT_RETRIES" envDefault:"3"`
	BackoffBase     time.Duration `env:"SCORM_COMMIT_BACKOFF" envDefault:"250ms"`
	BackoffMax      time.Duration `env:"SCORM_COMMIT_BACKOFF_MAX" envDefault:"5s"`
	CommitTimeout   time.Duration `env:"SCORM_COMMIT_TIMEOUT" envDefault:"30s"`
	SessionIdle     time.Duration `env:"SCORM_SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SessionReapTick time.Duration `env:"SCORM_SESSION_REAP_INTERVAL" envDefault:"1m"`
}

type EditorConfig struct {
	SavePolicy string `env:"SAVE_POLICY" envDefault:"queue"`
	// AdapterSpecPath overrides the embedded adapter table.
	AdapterSpecPath string `env:"CONTENT_ADAPTER_SPEC"`
}

type OtelConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"trainforge"`
	Environment string  `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	Version     string  `env:"SERVICE_VERSION"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers     string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1"`
}

// LoadConfig parses the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %s or %s, got %q", db.DriverPostgres, db.DriverSQLite, c.DB.Driver)
	}
	if c.Upload.MaxBytes < 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must not be negative")
	}
	if c.Scorm.CommitRetries < 1 {
		return fmt.Errorf("SCORM_COMMIT_RETRIES must be at least 1")
	}
	if strings.TrimSpace(c.Auth.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY must be set")
	}
	return nil
}

func (c Config) dbConfig() db.Config {
	return db.Config{
		Driver:       c.DB.Driver,
		Host:         c.DB.Host,
		Port:         c.DB.Port,
		User:         c.DB.User,
		Password:     c.DB.Password,
		Name:         c.DB.Name,
		SSLMode:      c.DB.SSLMode,
		SQLitePath:   c.DB.SQLitePath,
		MaxOpenConns: c.DB.MaxOpenConns,
		MaxIdleConns: c.DB.MaxIdleConns,
	}
}

func (c Config) cacheConfig() scormcache.Config {
	return scormcache.Config{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Prefix:   c.Redis.Prefix,
		TTL:      c.Redis.TTL,
	}
}

func (c Config) bucketConfig() (gcp.BucketConfig, error) {
	storageCfg, err := gcp.ResolveObjectStorageConfig(c.Storage.Mode, c.Storage.EmulatorHost)
	if err != nil {
		return gcp.BucketConfig{}, err
	}
	return gcp.BucketConfig{
		Storage:       storageCfg,
		Credentials:   c.Storage.Credentials,
		MediaBucket:   c.Storage.MediaBucket,
		MediaCDN:      c.Storage.MediaCDN,
		ScormBucket:   c.Storage.ScormBucket,
		ScormCDN:      c.Storage.ScormCDN,
		PublicBaseURL: c.Storage.PublicBaseURL,
	}, nil
}

func (c Config) retryPolicy() scorm.RetryPolicy {
	return scorm.RetryPolicy{
		Attempts:  c.Scorm.CommitRetries,
		BaseDelay: c.Scorm.BackoffBase,
		MaxDelay:  c.Scorm.BackoffMax,
		Timeout:   c.Scorm.CommitTimeout,
	}
}

func (c Config) editorOptions() authoring.Options {
	return authoring.Options{Policy: authoring.ParseSavePolicy(c.Editor.SavePolicy)}
}

func (c Config) otelConfig() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Otel.Environment,
		Version:     c.Otel.Version,
		Endpoint:    c.Otel.Endpoint,
		Headers:     c.Otel.Headers,
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}

// Package config loads process bootstrap configuration: a YAML file merged
// with environment variable overrides via spf13/viper. This is the static,
// restart-required layer; internal/settings is the mutable, DB-backed
// runtime layer described in §4.11.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration tree, following the teacher's
// `cfg.VectorDatabase.Driver`-shaped nested-struct convention.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Queue       QueueConfig
	Push        PushConfig
	RateLimit   RateLimitConfig
	LLM         LLMConfig
	Telegram    TelegramConfig
	OTel        OTelConfig
	Security    SecurityConfig
	LogLevel    string
}

// SecurityConfig holds process-level secrets that never live in the
// DB-backed settings layer (§4.10/§4.11: bot tokens are encrypted at rest
// with a key that must survive a settings-table wipe).
type SecurityConfig struct {
	BotTokenEncryptionKey string // exactly 32 bytes, AES-256-GCM (internal/repository.NewBotRepository)
}

type ServerConfig struct {
	Addr     string // e.g. ":8080"
	APIToken string // §6 X-API-Token / Authorization: Bearer
}

type DatabaseConfig struct {
	DSN             string
	MigrationsPath  string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Backend       string // "local" | "minio"
	LocalRoot     string
	PublicBaseURL string
	MinioEndpoint string
	MinioAccessKeyID     string
	MinioSecretAccessKey string
	MinioBucket   string
	MinioUseSSL   bool

	EnableArchiveMediaProcessing bool
	ArchiveImageWebPQuality      int
	ArchiveImageMaxCount         int
}

type QueueConfig struct {
	Concurrency int // parse-worker bounded concurrency, default 4
	LeaseTTL    time.Duration
}

type PushConfig struct {
	PollInterval  time.Duration // default 30s
	BatchSize     int
	LeaseTTL      time.Duration
	TransportTimeout time.Duration
}

type RateLimitConfig struct {
	DefaultLimit  int
	DefaultWindow time.Duration
}

type LLMConfig struct {
	TextAPIKey   string
	TextBaseURL  string
	TextModel    string
	VisionAPIKey string
	VisionBaseURL string
	VisionModel  string
}

type TelegramConfig struct {
	AdminIDs []int64
}

type OTelConfig struct {
	ServiceName    string
	OTLPEndpoint   string // empty => stdout exporter
}

// Load reads config.yaml (if present) from path, then overlays environment
// variables, then applies compile-time defaults (the same three-tier
// resolution order as internal/settings, for the process-level keys).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:     v.GetString("server.addr"),
			APIToken: v.GetString("api_token"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MigrationsPath:  v.GetString("database.migrations_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Backend:                      v.GetString("storage_backend"),
			LocalRoot:                    v.GetString("storage_local_root"),
			PublicBaseURL:                v.GetString("storage_public_base_url"),
			MinioEndpoint:                v.GetString("minio_endpoint"),
			MinioAccessKeyID:             v.GetString("minio_access_key_id"),
			MinioSecretAccessKey:         v.GetString("minio_secret_access_key"),
			MinioBucket:                  v.GetString("minio_bucket"),
			MinioUseSSL:                  v.GetBool("minio_use_ssl"),
			EnableArchiveMediaProcessing: v.GetBool("enable_archive_media_processing"),
			ArchiveImageWebPQuality:      v.GetInt("archive_image_webp_quality"),
			ArchiveImageMaxCount:         v.GetInt("archive_image_max_count"),
		},
		Queue: QueueConfig{
			Concurrency: v.GetInt("queue.concurrency"),
			LeaseTTL:    v.GetDuration("queue.lease_ttl"),
		},
		Push: PushConfig{
			PollInterval:     v.GetDuration("push.poll_interval"),
			BatchSize:        v.GetInt("push.batch_size"),
			LeaseTTL:         v.GetDuration("push.lease_ttl"),
			TransportTimeout: v.GetDuration("push.transport_timeout"),
		},
		RateLimit: RateLimitConfig{
			DefaultLimit:  v.GetInt("rate_limit.default_limit"),
			DefaultWindow: v.GetDuration("rate_limit.default_window"),
		},
		LLM: LLMConfig{
			TextAPIKey:    v.GetString("text_llm_api_key"),
			TextBaseURL:   v.GetString("text_llm_api_base"),
			TextModel:     v.GetString("text_llm_api_model"),
			VisionAPIKey:  v.GetString("vision_llm_api_key"),
			VisionBaseURL: v.GetString("vision_llm_api_base"),
			VisionModel:   v.GetString("vision_llm_api_model"),
		},
		OTel: OTelConfig{
			ServiceName:  v.GetString("otel.service_name"),
			OTLPEndpoint: v.GetString("otel_exporter_otlp_endpoint"),
		},
		Security: SecurityConfig{
			BotTokenEncryptionKey: v.GetString("security.bot_token_encryption_key"),
		},
		LogLevel: v.GetString("log_level"),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.migrations_path", "internal/migrations/sql")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("storage_backend", "local")
	v.SetDefault("storage_local_root", "data/media")
	v.SetDefault("storage_public_base_url", "/media")
	v.SetDefault("minio_bucket", "vaultstream")
	v.SetDefault("enable_archive_media_processing", true)
	v.SetDefault("archive_image_webp_quality", 80)
	v.SetDefault("archive_image_max_count", 20)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.lease_ttl", "10m")
	v.SetDefault("push.poll_interval", "30s")
	v.SetDefault("push.batch_size", 20)
	v.SetDefault("push.lease_ttl", "5m")
	v.SetDefault("push.transport_timeout", "60s")
	v.SetDefault("rate_limit.default_limit", 10)
	v.SetDefault("rate_limit.default_window", "1h")
	v.SetDefault("otel.service_name", "vaultstream")
	v.SetDefault("log_level", "info")
}

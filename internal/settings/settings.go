// Package settings implements the mutable, DB-backed runtime configuration
// layer (§4.11, C11): a value resolves DB -> environment variable ->
// compile-time default, and resolved values are memoized with a TTL so a hot
// read path never round-trips to Postgres.
package settings

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/vaultstream/vaultstream/internal/logger"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// Definition declares one setting's env var name and compile-time default,
// plus whether its value must be masked when surfaced through the API.
type Definition struct {
	Key          string
	EnvVar       string
	Default      string
	Secret       bool
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Service is the three-tier settings resolver.
type Service struct {
	store interfaces.SettingsStore
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	defs map[string]Definition
}

// New builds a Service with the given memoization TTL (§4.11 default: 30s).
func New(store interfaces.SettingsStore, ttl time.Duration, defs []Definition) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	defMap := make(map[string]Definition, len(defs))
	for _, d := range defs {
		defMap[d.Key] = d
	}
	return &Service{store: store, ttl: ttl, cache: make(map[string]cacheEntry), defs: defMap}
}

// Get resolves key through DB -> env -> default, masking secrets in the
// returned value only when mask is true (API responses set mask=true;
// internal callers that need the real value set mask=false).
func (s *Service) Get(ctx context.Context, key string, mask bool) string {
	if v, ok := s.fromCache(key); ok {
		return s.maybeMask(key, v, mask)
	}

	v := s.resolve(ctx, key)
	s.mu.Lock()
	s.cache[key] = cacheEntry{value: v, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return s.maybeMask(key, v, mask)
}

func (s *Service) resolve(ctx context.Context, key string) string {
	if s.store != nil {
		if v, found, err := s.store.Get(ctx, key); err != nil {
			logger.Warnf(ctx, "settings: db lookup for %q failed, falling back: %v", key, err)
		} else if found {
			return v
		}
	}
	def, ok := s.defs[key]
	if !ok {
		return ""
	}
	if def.EnvVar != "" {
		if v, ok := os.LookupEnv(def.EnvVar); ok {
			return v
		}
	}
	return def.Default
}

func (s *Service) fromCache(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.cache[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (s *Service) maybeMask(key, v string, mask bool) string {
	if !mask {
		return v
	}
	if def, ok := s.defs[key]; ok && def.Secret {
		return maskSecret(v)
	}
	return v
}

func maskSecret(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}

// GetInt resolves key and parses it as an integer, returning fallback on
// parse failure.
func (s *Service) GetInt(ctx context.Context, key string, fallback int) int {
	v := s.Get(ctx, key, false)
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetBool resolves key and parses it as a boolean, returning fallback on
// parse failure.
func (s *Service) GetBool(ctx context.Context, key string, fallback bool) bool {
	v := s.Get(ctx, key, false)
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Set persists an override to the DB tier and invalidates the cache entry.
func (s *Service) Set(ctx context.Context, key, value string) error {
	def := s.defs[key]
	if err := s.store.Set(ctx, key, value, def.Secret); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

// All returns every defined key resolved and masked as appropriate, for the
// settings admin API (§6).
func (s *Service) All(ctx context.Context) map[string]string {
	out := make(map[string]string, len(s.defs))
	for key := range s.defs {
		out[key] = s.Get(ctx, key, true)
	}
	return out
}

// DefaultDefinitions lists the settings §4.11 and §6 call out explicitly.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Key: "api_token", EnvVar: "API_TOKEN", Secret: true},
		{Key: "storage_backend", EnvVar: "STORAGE_BACKEND", Default: "local"},
		{Key: "storage_local_root", EnvVar: "STORAGE_LOCAL_ROOT", Default: "data/media"},
		{Key: "storage_public_base_url", EnvVar: "STORAGE_PUBLIC_BASE_URL", Default: "/media"},
		{Key: "enable_archive_media_processing", EnvVar: "ENABLE_ARCHIVE_MEDIA_PROCESSING", Default: "true"},
		{Key: "archive_image_webp_quality", EnvVar: "ARCHIVE_IMAGE_WEBP_QUALITY", Default: "80"},
		{Key: "archive_image_max_count", EnvVar: "ARCHIVE_IMAGE_MAX_COUNT", Default: "20"},
		{Key: "telegram_admin_ids", EnvVar: "TELEGRAM_ADMIN_IDS", Default: ""},
		{Key: "text_llm_api_key", EnvVar: "TEXT_LLM_API_KEY", Secret: true},
		{Key: "text_llm_api_base", EnvVar: "TEXT_LLM_API_BASE", Default: ""},
		{Key: "text_llm_api_model", EnvVar: "TEXT_LLM_API_MODEL", Default: ""},
		{Key: "vision_llm_api_key", EnvVar: "VISION_LLM_API_KEY", Secret: true},
		{Key: "vision_llm_api_base", EnvVar: "VISION_LLM_API_BASE", Default: ""},
		{Key: "vision_llm_api_model", EnvVar: "VISION_LLM_API_MODEL", Default: ""},
	}
}

package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySiteURL          = "site.url"
	keyManifestURL      = "site.manifest_url"
	keySkipURLs         = "site.skip_urls"
	keyContentSelectors = "site.content_selectors"
	keyDefaultCategory  = "site.default_category"

	keyFetchTimeout       = "crawl.fetch_timeout"
	keyUserAgent          = "crawl.user_agent"
	keyInsecureSkipVerify = "crawl.insecure_skip_verify"
	keyBatchSize          = "crawl.batch_size"
	keyThrottle           = "crawl.throttle"
	keyRescheduleDelay    = "crawl.reschedule_delay"
	keyLeaseTTL           = "crawl.lease_ttl"
	keyMaxFailures        = "crawl.max_failures"
	keyChunkSize          = "crawl.chunk_size"

	keyTopK             = "retrieval.top_k"
	keyCandidateLimit   = "retrieval.candidate_limit"
	keyMinCosine        = "retrieval.min_cosine"
	keySnippetLength    = "retrieval.snippet_length"
	keyCategoryPriority = "retrieval.category_priority"
	keySynonymsPrefix   = "retrieval.category_synonyms."
	keyFallbackAnswer   = "retrieval.fallback_answer"

	keyCacheSimilarity     = "cache.similarity"
	keyCacheLengthWindow   = "cache.length_window"
	keyCacheCandidateLimit = "cache.candidate_limit"

	keySchedulerEnabled   = "scheduler.enabled"
	keySchedulerTick      = "scheduler.tick"
	keyFullReindexEnabled = "scheduler.full_reindex.enabled"
	keyFullReindexCron    = "scheduler.full_reindex.cron"
	keyFullReindexEvery   = "scheduler.full_reindex.interval"

	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"

	keyDataDir       = "storage.data_dir"
	keyKVBackend     = "storage.kv_backend"
	keyRedisAddr     = "redis.addr"
	keyRedisPassword = "redis.password"
	keyRedisDB       = "redis.db"
	keyRedisPrefix   = "redis.prefix"
	keyServerAddr    = "server.addr"
	keyServerToken   = "server.token"
)

// Environment overrides for secrets and deployment-specific addresses.
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvRedisAddr    = "SERCHA_SITE_REDIS_ADDR"
	EnvAPIToken     = "SERCHA_SITE_API_TOKEN"
)

// SettingsService resolves configuration into the immutable values the
// services and adapters are built from.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Settings returns the engine settings with defaults applied.
func (s *SettingsService) Settings() domain.Settings {
	cs := s.configStore
	settings := domain.Settings{
		SiteURL:             cs.GetString(keySiteURL),
		ManifestURL:         cs.GetString(keyManifestURL),
		SkipURLs:            cs.GetStringSlice(keySkipURLs),
		ContentSelectors:    cs.GetStringSlice(keyContentSelectors),
		InsecureSkipVerify:  cs.GetBool(keyInsecureSkipVerify),
		FetchTimeout:        cs.GetDuration(keyFetchTimeout),
		UserAgent:           cs.GetString(keyUserAgent),
		BatchSize:           cs.GetInt(keyBatchSize),
		ThrottleDelay:       cs.GetDuration(keyThrottle),
		RescheduleDelay:     cs.GetDuration(keyRescheduleDelay),
		LeaseTTL:            cs.GetDuration(keyLeaseTTL),
		ChunkSize:           cs.GetInt(keyChunkSize),
		TopK:                cs.GetInt(keyTopK),
		CandidateLimit:      cs.GetInt(keyCandidateLimit),
		MinCosine:           cs.GetFloat(keyMinCosine),
		SnippetLength:       cs.GetInt(keySnippetLength),
		CategoryPriority:    cs.GetStringSlice(keyCategoryPriority),
		CategorySynonyms:    s.categorySynonyms(),
		DefaultCategory:     cs.GetString(keyDefaultCategory),
		FallbackAnswer:      cs.GetString(keyFallbackAnswer),
		CacheSimilarity:     cs.GetFloat(keyCacheSimilarity),
		CacheLengthWindow:   cs.GetInt(keyCacheLengthWindow),
		CacheCandidateLimit: cs.GetInt(keyCacheCandidateLimit),
		MaxFailures:         cs.GetInt(keyMaxFailures),
	}
	return settings.WithDefaults()
}

// SchedulerConfig returns the scheduler configuration over the built-in defaults.
func (s *SettingsService) SchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.getBool(keySchedulerEnabled, cfg.Enabled)
	if tick := s.configStore.GetDuration(keySchedulerTick); tick > 0 {
		cfg.TickInterval = tick
	}

	task := cfg.GetTaskConfig(domain.TaskIDFullReindex)
	task.Enabled = s.getBool(keyFullReindexEnabled, task.Enabled)
	if every := s.configStore.GetDuration(keyFullReindexEvery); every > 0 {
		task.Interval = every
		task.Cron = ""
	}
	if cron := s.configStore.GetString(keyFullReindexCron); cron != "" {
		task.Cron = cron
	}
	cfg.TaskConfigs[domain.TaskIDFullReindex] = task
	return cfg
}

// Embedding returns the embedding backend configuration.
func (s *SettingsService) Embedding() domain.AIConfig {
	cfg := domain.AIConfig{
		Provider:   s.getProvider(keyEmbedProvider),
		Model:      s.getString(keyEmbedModel, domain.DefaultEmbeddingModel),
		BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
		APIKey:     s.configStore.GetString(keyEmbedAPIKey),
		Dimensions: s.configStore.GetInt(keyEmbedDimensions),
	}
	return s.withEnvKey(cfg)
}

// LLM returns the answer generator configuration.
func (s *SettingsService) LLM() domain.AIConfig {
	cfg := domain.AIConfig{
		Provider: s.getProvider(keyLLMProvider),
		Model:    s.getString(keyLLMModel, domain.DefaultLLMModel),
		BaseURL:  s.configStore.GetString(keyLLMBaseURL),
		APIKey:   s.configStore.GetString(keyLLMAPIKey),
	}
	return s.withEnvKey(cfg)
}

// Storage returns where data lives and which key-value backend holds crawl state.
// The Redis backend is selected implicitly when a Redis address is configured.
func (s *SettingsService) Storage() domain.StorageConfig {
	backend := strings.ToLower(s.configStore.GetString(keyKVBackend))
	if backend == "" {
		backend = domain.KVBackendSQLite
		if s.Redis().Addr != "" {
			backend = domain.KVBackendRedis
		}
	}
	return domain.StorageConfig{
		DataDir:   s.configStore.GetString(keyDataDir),
		KVBackend: backend,
	}
}

// Redis returns the Redis connection settings.
func (s *SettingsService) Redis() domain.RedisConfig {
	addr := s.configStore.GetString(keyRedisAddr)
	if env := s.getenv(EnvRedisAddr); env != "" {
		addr = env
	}
	return domain.RedisConfig{
		Addr:     addr,
		Password: s.configStore.GetString(keyRedisPassword),
		DB:       s.configStore.GetInt(keyRedisDB),
		Prefix:   s.configStore.GetString(keyRedisPrefix),
	}
}

// Server returns the HTTP API configuration. The token environment
// variable overrides the configured token.
func (s *SettingsService) Server() domain.ServerConfig {
	token := s.configStore.GetString(keyServerToken)
	if env := s.getenv(EnvAPIToken); env != "" {
		token = env
	}
	return domain.ServerConfig{
		Addr:  s.getString(keyServerAddr, domain.DefaultServerAddr),
		Token: token,
	}
}

// Validate reports configuration that cannot work at all.
func (s *SettingsService) Validate() error {
	settings := s.Settings()
	if settings.SiteURL == "" && settings.ManifestURL == "" {
		return fmt.Errorf("%w: %s or %s must be set", domain.ErrInvalidInput, keySiteURL, keyManifestURL)
	}
	for _, key := range []string{keyEmbedProvider, keyLLMProvider} {
		if raw := s.configStore.GetString(key); raw != "" && !domain.AIProvider(raw).IsValid() {
			return fmt.Errorf("%w: unknown provider %q for %s", domain.ErrInvalidInput, raw, key)
		}
	}
	switch s.Storage().KVBackend {
	case domain.KVBackendSQLite:
	case domain.KVBackendRedis:
		if s.Redis().Addr == "" {
			return fmt.Errorf("%w: %s requires %s", domain.ErrInvalidInput, keyKVBackend, keyRedisAddr)
		}
	default:
		return fmt.Errorf("%w: unknown %s %q", domain.ErrInvalidInput, keyKVBackend, s.Storage().KVBackend)
	}
	return nil
}

// Defaults returns the keys written by "config init".
func Defaults(siteURL string) map[string]any {
	d := domain.Settings{SiteURL: siteURL}.WithDefaults()
	return map[string]any{
		keySiteURL:             d.SiteURL,
		keyManifestURL:         d.ManifestURL,
		keySkipURLs:            []string{},
		keyContentSelectors:    d.ContentSelectors,
		keyBatchSize:           d.BatchSize,
		keyThrottle:            d.ThrottleDelay.String(),
		keyRescheduleDelay:     d.RescheduleDelay.String(),
		keyLeaseTTL:            d.LeaseTTL.String(),
		keyFetchTimeout:        d.FetchTimeout.String(),
		keyChunkSize:           d.ChunkSize,
		keyTopK:                d.TopK,
		keyMinCosine:           d.MinCosine,
		keyCacheSimilarity:     d.CacheSimilarity,
		keyEmbedProvider:       string(domain.ProviderOpenAI),
		keyEmbedModel:          domain.DefaultEmbeddingModel,
		keyLLMProvider:         string(domain.ProviderOpenAI),
		keyLLMModel:            domain.DefaultLLMModel,
		keyKVBackend:           domain.KVBackendSQLite,
		keyServerAddr:          domain.DefaultServerAddr,
		keyFullReindexCron:     domain.DefaultSchedulerConfig().GetTaskConfig(domain.TaskIDFullReindex).Cron,
		keySchedulerTick:       domain.DefaultSchedulerConfig().TickInterval.String(),
		keyCacheLengthWindow:   d.CacheLengthWindow,
		keyCacheCandidateLimit: d.CacheCandidateLimit,
	}
}

// categorySynonyms reads [retrieval.category_synonyms]; nil keeps the built-in table.
func (s *SettingsService) categorySynonyms() map[string][]string {
	keys := s.configStore.Keys(keySynonymsPrefix)
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	out := make(map[string][]string, len(keys))
	for _, key := range keys {
		category := strings.TrimPrefix(key, keySynonymsPrefix)
		if category == "" || strings.Contains(category, ".") {
			continue
		}
		out[category] = s.configStore.GetStringSlice(key)
	}
	return out
}

func (s *SettingsService) withEnvKey(cfg domain.AIConfig) domain.AIConfig {
	if cfg.APIKey == "" && cfg.Provider == domain.ProviderOpenAI {
		cfg.APIKey = s.getenv(EnvOpenAIAPIKey)
	}
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string) domain.AIProvider {
	provider := domain.AIProvider(strings.ToLower(s.configStore.GetString(key)))
	if !provider.IsValid() {
		return domain.ProviderOpenAI
	}
	return provider
}

package domain

// AIProvider identifies a remote model provider.
type AIProvider string

// Supported providers.
const (
	ProviderOpenAI AIProvider = "openai"
	ProviderOllama AIProvider = "ollama"
)

// IsValid reports whether p is a supported provider.
func (p AIProvider) IsValid() bool {
	return p == ProviderOpenAI || p == ProviderOllama
}

// AIConfig configures an embedding or generation backend.
type AIConfig struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Dimensions is the expected vector size. Embedding only; 0 means the model default.
	Dimensions int
}

// Storage backends for the key-value store.
const (
	KVBackendSQLite = "sqlite"
	KVBackendRedis  = "redis"
)

// StorageConfig locates the database and selects the crawl state backend.
type StorageConfig struct {
	// DataDir holds the SQLite database. Empty means ~/.sercha-site/data.
	DataDir string

	// KVBackend is KVBackendSQLite or KVBackendRedis.
	KVBackend string
}

// RedisConfig configures the Redis key-value backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string

	// Token, when set, is required as a bearer token on API routes.
	Token string
}

// Default adapter settings.
const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultServerAddr     = "127.0.0.1:8080"
)

package driven

import "time"

// ConfigStore reads and writes dotted keys such as "crawl.batch_size".
// Typed getters return the zero value for a missing key or a value of
// the wrong kind, so callers fall back to their own defaults.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	// GetFloat also accepts integers.
	GetFloat(key string) float64
	// GetDuration parses strings like "30s".
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string

	// Keys lists keys under prefix, sorted.
	Keys(prefix string) []string

	// Set may persist at once. Save writes everything out.
	Set(key string, value any) error
	Save() error
	Load() error

	// Path is where Save writes.
	Path() string
}

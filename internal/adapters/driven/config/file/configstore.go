package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// DefaultDirName is created under the user's home directory.
const DefaultDirName = ".sercha-site"

// ConfigStore reads and writes config.toml. TOML tables become dotted keys,
// so "[crawl] batch_size = 5" is "crawl.batch_size". Values keep the kinds
// go-toml decodes: int64, float64, bool, string and []any.
type ConfigStore struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// DefaultDir returns ~/.sercha-site.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// NewConfigStore opens dir/config.toml, or ~/.sercha-site/config.toml
// when dir is empty.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	return OpenConfigFile(filepath.Join(dir, "config.toml"))
}

// OpenConfigFile opens an explicit file, creating its directory. A file
// that does not exist yet is an empty config.
func OpenConfigFile(path string) (*ConfigStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("config directory: %w", err)
	}
	s := &ConfigStore{path: path, values: make(map[string]any)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the decoded value under key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	return typed[string](s, key)
}

func (s *ConfigStore) GetBool(key string) bool {
	return typed[bool](s, key)
}

// GetInt reads TOML integers. Floats and strings are not converted.
func (s *ConfigStore) GetInt(key string) int {
	switch v := s.raw(key).(type) {
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// GetFloat reads TOML floats and integers.
func (s *ConfigStore) GetFloat(key string) float64 {
	switch v := s.raw(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// GetDuration parses strings such as "250ms" or "5m". TOML has no
// duration type.
func (s *ConfigStore) GetDuration(key string) time.Duration {
	switch v := s.raw(key).(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 0
}

// GetStringSlice drops non-string array elements.
func (s *ConfigStore) GetStringSlice(key string) []string {
	switch v := s.raw(key).(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Keys returns the dotted keys starting with prefix, sorted.
func (s *ConfigStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Set stores value and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.writeLocked()
}

// Save rewrites the file.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked()
}

// Load replaces the in-memory values with the file contents.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	flat := make(map[string]any)
	flatten(flat, "", tree)

	s.mu.Lock()
	s.values = flat
	s.mu.Unlock()
	return nil
}

// Path returns the TOML file path.
func (s *ConfigStore) Path() string {
	return s.path
}

func (s *ConfigStore) raw(key string) any {
	v, _ := s.Get(key)
	return v
}

func typed[T any](s *ConfigStore, key string) T {
	v, _ := s.raw(key).(T)
	return v
}

// writeLocked needs s.mu held. The file may carry API keys, hence 0600.
func (s *ConfigStore) writeLocked() error {
	data, err := toml.Marshal(nest(s.values))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// flatten copies tree into dst under dotted keys.
func flatten(dst map[string]any, prefix string, tree map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(dst, k, sub)
			continue
		}
		dst[k] = v
	}
}

// nest rebuilds tables from dotted keys. A key that collides with a table
// or a value on its path is written with its full dotted name instead.
func nest(flat map[string]any) map[string]any {
	root := make(map[string]any)
	for _, key := range slices.Sorted(maps.Keys(flat)) {
		parts := strings.Split(key, ".")
		if table, ok := descend(root, parts[:len(parts)-1]); ok {
			leaf := parts[len(parts)-1]
			if _, taken := table[leaf]; !taken {
				table[leaf] = flat[key]
				continue
			}
		}
		root[key] = flat[key]
	}
	return root
}

// descend walks or creates the tables named by path.
func descend(root map[string]any, path []string) (map[string]any, bool) {
	node := root
	for _, part := range path {
		child, exists := node[part]
		if !exists {
			next := make(map[string]any)
			node[part] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return nil, false
		}
		node = next
	}
	return node, true
}

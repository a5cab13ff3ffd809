package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/admissions-kb/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// EnvPrefix starts the environment variables that override file values:
// storage.backend is read from ADMKB_STORAGE_BACKEND first.
const EnvPrefix = "ADMKB_"

const configFilename = "config.toml"

// ConfigStore keeps settings in a TOML file with one table per section,
// addressed by dotted keys ("embedding.model"). Values from the
// environment take precedence over the file and are never written back.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
	getenv   func(string) string
}

// NewConfigStore opens the config file in configDir, creating the
// directory if needed. If configDir is empty, it defaults to ~/.admkb.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".admkb")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, configFilename),
		data:     make(map[string]any),
		getenv:   os.Getenv,
	}
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.filePath, err)
	}
	return s, nil
}

// Get returns the environment override for key, else the file value.
func (s *ConfigStore) Get(key string) (any, bool) {
	if raw := s.getenv(envName(key)); raw != "" {
		return parseScalar(raw), true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// GetString returns a string value, or "" when absent or not a string.
func (s *ConfigStore) GetString(key string) string {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case string:
		return v
	case int64, float64, bool:
		// An override like ADMKB_SERVER_ADDR=8080 parses as a number.
		if _, fromEnv := s.lookupEnv(key); fromEnv {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// GetInt returns an integer value. TOML integers decode as int64.
func (s *ConfigStore) GetInt(key string) int {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetFloat returns a number. Integers are widened, so "weight = 1"
// reads as 1.0.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetBool returns a boolean value, or false.
func (s *ConfigStore) GetBool(key string) bool {
	val, _ := s.Get(key)
	b, _ := val.(bool)
	return b
}

// GetStringSlice returns a string list. An environment override is split
// on commas.
func (s *ConfigStore) GetStringSlice(key string) []string {
	if raw, ok := s.lookupEnv(key); ok {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}

	val, _ := s.Get(key)
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Set stores a value and writes the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save writes the file.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save replaces the file atomically so a reader never sees a partial
// write. The caller must hold the lock.
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(nest(s.data))
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), configFilename+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}

// Load reads the file. A missing file is an empty configuration.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = make(map[string]any)
		return nil
	}
	if err != nil {
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}
	s.data = flatten(loaded, "")
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

func (s *ConfigStore) lookupEnv(key string) (string, bool) {
	raw := s.getenv(envName(key))
	return raw, raw != ""
}

// envName maps "embedding.api_key" to ADMKB_EMBEDDING_API_KEY.
func envName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// parseScalar types an environment value the way TOML would.
func parseScalar(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// flatten turns {"a": {"b": 1}} into {"a.b": 1}.
func flatten(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any, len(m))
	for key, value := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flatten(nested, key) {
				result[k] = v
			}
			continue
		}
		result[key] = value
	}
	return result
}

// nest is the inverse of flatten, so the file has one table per section.
// A key that is both a value and a table prefix keeps the value.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// Shorter keys first so scalar values win over deeper tables.
	sort.Slice(keys, func(i, j int) bool {
		return strings.Count(keys[i], ".") < strings.Count(keys[j], ".")
	})

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		node := root
		ok := true
		for _, p := range parts[:len(parts)-1] {
			child, exists := node[p]
			if !exists {
				next := make(map[string]any)
				node[p] = next
				node = next
				continue
			}
			table, isTable := child.(map[string]any)
			if !isTable {
				ok = false
				break
			}
			node = table
		}
		if ok {
			node[parts[len(parts)-1]] = flat[key]
		}
	}
	return root
}

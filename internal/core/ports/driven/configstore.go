package driven

// ConfigStore holds admkb settings under dotted keys such as
// "embedding.model" or "retrieval.keyword_weight". The settings service
// reads it into domain.AppSettings; nothing else should.
//
// Typed getters never fail: a missing key or a value of another type
// reads as the zero value, and the settings service applies defaults.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string

	// GetInt accepts any integer representation the backend produces.
	GetInt(key string) int

	// GetFloat widens integers, so "keyword_weight = 1" reads as 1.0.
	GetFloat(key string) float64

	GetBool(key string) bool

	GetStringSlice(key string) []string

	// Set stores a value and persists it before returning.
	Set(key string, value any) error

	// Save persists all values.
	Save() error

	// Load replaces in-memory values with the persisted ones.
	Load() error

	// Path returns where values are persisted, or "" for none.
	Path() string
}

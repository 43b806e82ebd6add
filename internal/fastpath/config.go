// Package fastpath implements the configuration-driven synonym matcher used
// as a fast, explainable alternative to AI/ML classification.
package fastpath

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Config mirrors intents_config.json: synonym phrase lists per intent plus an
// ordered priority list used for tie-breaking.
type Config struct {
	Synonyms      map[string][]string `json:"synonyms"`
	PriorityOrder []string            `json:"priority_order"`
}

// Matcher matches email text against the configured synonym table. The
// configuration is loaded lazily on first use and cached for the life of the
// process; edits require a restart.
type Matcher struct {
	path string

	once sync.Once
	cfg  *Config
	err  error
}

// NewMatcher constructs a matcher reading its configuration from path.
func NewMatcher(path string) *Matcher {
	return &Matcher{path: path}
}

func (m *Matcher) config() (*Config, error) {
	m.once.Do(func() {
		data, err := os.ReadFile(filepath.Clean(m.path))
		if err != nil {
			m.err = fmt.Errorf("read intent config: %w", err)
			return
		}
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			m.err = fmt.Errorf("unmarshal intent config: %w", err)
			return
		}
		m.cfg = &cfg
	})
	return m.cfg, m.err
}

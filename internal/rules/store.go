package rules

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prasadk/complyscan/internal/model"
)

//go:embed data/*_rules.json
var embedded embed.FS

// Store holds the loaded rule sets. It is built once at startup and
// read-only afterwards; callers receive copies of the rule slices.
type Store struct {
	frameworks map[string][]model.Rule
}

// Load builds a store from the embedded default rule packs, then overlays
// any <framework>_rules.json files found in dir. A framework present in dir
// fully replaces its embedded counterpart.
func Load(dir string) (*Store, error) {
	s := &Store{frameworks: make(map[string][]model.Rule)}

	entries, err := embedded.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("read embedded rules: %w", err)
	}
	for _, entry := range entries {
		data, err := embedded.ReadFile("data/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded rule pack %s: %w", entry.Name(), err)
		}
		if err := s.addPack(entry.Name(), data); err != nil {
			return nil, err
		}
	}

	if dir != "" {
		matches, err := filepath.Glob(filepath.Join(dir, "*_rules.json"))
		if err != nil {
			return nil, fmt.Errorf("scan rules dir: %w", err)
		}
		for _, path := range matches {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read rule pack %s: %w", path, err)
			}
			if err := s.addPack(filepath.Base(path), data); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

// addPack parses one rule pack file and registers it under the framework
// derived from the file name (ind_as_rules.json -> ind_as).
func (s *Store) addPack(filename string, data []byte) error {
	framework := strings.TrimSuffix(filename, "_rules.json")

	var rules []model.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("parse rule pack %s: %w", filename, err)
	}

	seen := make(map[string]bool, len(rules))
	for i := range rules {
		r := &rules[i]
		if r.ID == "" {
			return fmt.Errorf("rule pack %s: rule %d has no id", filename, i)
		}
		if seen[r.ID] {
			return fmt.Errorf("rule pack %s: duplicate rule id %q", filename, r.ID)
		}
		seen[r.ID] = true
		if !r.Severity.Valid() {
			return fmt.Errorf("rule pack %s: rule %s has invalid severity %q", filename, r.ID, r.Severity)
		}
		r.Framework = framework
	}

	s.frameworks[framework] = rules
	return nil
}

// Rules returns the ordered rule set for a framework. The returned slice is
// a copy; the store itself is immutable.
func (s *Store) Rules(framework string) ([]model.Rule, bool) {
	rules, ok := s.frameworks[framework]
	if !ok {
		return nil, false
	}
	out := make([]model.Rule, len(rules))
	copy(out, rules)
	return out, true
}

// Frameworks returns the sorted list of known framework names
func (s *Store) Frameworks() []string {
	names := make([]string, 0, len(s.frameworks))
	for name := range s.frameworks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

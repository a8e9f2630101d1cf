package extract

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/lexharvest/internal/model"
)

//go:embed canonical_ids.yaml
var canonicalIDsYAML []byte

// CanonicalEntry is a known document with a published identifier
type CanonicalEntry struct {
	ID          string `yaml:"id"`
	ShortName   string `yaml:"short_name"`
	Description string `yaml:"description"`
}

var (
	builtinOnce    sync.Once
	builtinEntries map[string]CanonicalEntry
	builtinErr     error
)

func loadBuiltin() (map[string]CanonicalEntry, error) {
	builtinOnce.Do(func() {
		var entries map[string]CanonicalEntry
		if err := yaml.Unmarshal(canonicalIDsYAML, &entries); err != nil {
			builtinErr = fmt.Errorf("parse canonical ids: %w", err)
			return
		}
		builtinEntries = make(map[string]CanonicalEntry, len(entries))
		for path, entry := range entries {
			builtinEntries[model.WorkPath(path)] = entry
		}
	})
	return builtinEntries, builtinErr
}

// IDTable maps work paths to canonical entries
type IDTable struct {
	entries map[string]CanonicalEntry
}

// NewIDTable merges the built-in table with overrides (work path -> id).
// An override replaces the id of a built-in entry and keeps its other fields.
func NewIDTable(overrides map[string]string) (*IDTable, error) {
	builtin, err := loadBuiltin()
	if err != nil {
		return nil, err
	}

	entries := make(map[string]CanonicalEntry, len(builtin)+len(overrides))
	for path, entry := range builtin {
		entries[path] = entry
	}
	for path, id := range overrides {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		key := model.WorkPath(path)
		entry := entries[key]
		entry.ID = id
		entries[key] = entry
	}

	return &IDTable{entries: entries}, nil
}

// Lookup finds the entry for a page or work path
func (t *IDTable) Lookup(path string) (CanonicalEntry, bool) {
	if t == nil {
		return CanonicalEntry{}, false
	}
	entry, ok := t.entries[model.WorkPath(path)]
	return entry, ok
}

// Resolve returns the document id for a path: the table entry when present,
// else SlugID. The result depends only on the work path.
func (t *IDTable) Resolve(path string) string {
	if entry, ok := t.Lookup(path); ok && entry.ID != "" {
		return entry.ID
	}
	return SlugID(path)
}

// Len reports the number of known entries
func (t *IDTable) Len() int {
	return len(t.entries)
}

// SlugID derives an id from the work path: the segments after "akn" with the
// "act" doc-type segment dropped ("/akn/rw/act/law/2018/68" -> "rw-law-2018-68")
func SlugID(path string) string {
	segments := strings.Split(strings.Trim(model.WorkPath(path), "/"), "/")

	start := 0
	for i, seg := range segments {
		if seg == "akn" {
			start = i + 1
			break
		}
	}

	parts := make([]string, 0, len(segments))
	for i, seg := range segments[start:] {
		if i == 1 && seg == "act" {
			continue
		}
		if s := Slug(seg); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

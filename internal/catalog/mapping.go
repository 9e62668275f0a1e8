package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultTable []byte

type tableFile struct {
	Categories []struct {
		Name    string   `yaml:"name"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"categories"`
}

// Mapping normalises free-text category names to canonical ones.
type Mapping struct {
	canonical []string
	byKey     map[string]string
}

// Default returns the mapping compiled into the binary.
func Default() *Mapping {
	m, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded category table: %v", err))
	}
	return m
}

// Parse builds a Mapping from YAML.
func Parse(data []byte) (*Mapping, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode category table: %w", err)
	}
	m := &Mapping{byKey: make(map[string]string)}
	for _, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("category with empty name")
		}
		m.canonical = append(m.canonical, name)
		m.byKey[key(name)] = name
		for _, a := range c.Aliases {
			k := key(a)
			if prev, ok := m.byKey[k]; ok && prev != name {
				return nil, fmt.Errorf("alias %q maps to both %q and %q", a, prev, name)
			}
			m.byKey[k] = name
		}
	}
	sort.Strings(m.canonical)
	return m, nil
}

// Normalize returns the canonical name for raw. Unknown values are returned
// trimmed, with their original casing.
func (m *Mapping) Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if name, ok := m.byKey[key(trimmed)]; ok {
		return name
	}
	return trimmed
}

// Names lists canonical categories in alphabetical order.
func (m *Mapping) Names() []string {
	out := make([]string, len(m.canonical))
	copy(out, m.canonical)
	return out
}

// Slug turns a category name into a URL-friendly key.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func key(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

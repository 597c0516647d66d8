package services

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog_default.yaml
var defaultCatalog []byte

// CatalogEntry is one statement of an item catalogue file.
type CatalogEntry struct {
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
}

type catalogFile struct {
	Items []CatalogEntry `yaml:"items"`
}

// ParseCatalog reads a YAML catalogue. Every entry needs text and a known
// category; texts must be unique.
func ParseCatalog(r io.Reader) ([]CatalogEntry, error) {
	var cf catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := map[string]bool{}
	for i, e := range cf.Items {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return nil, fmt.Errorf("catalog entry %d: text required", i+1)
		}
		if _, ok := ParseCategory(e.Category); !ok {
			return nil, fmt.Errorf("catalog entry %d: unknown category %q", i+1, e.Category)
		}
		if seen[text] {
			return nil, fmt.Errorf("catalog entry %d: duplicate text %q", i+1, text)
		}
		seen[text] = true
		cf.Items[i].Text = text
	}
	return cf.Items, nil
}

// DefaultCatalog returns the built-in questionnaire.
func DefaultCatalog() []CatalogEntry {
	entries, err := ParseCatalog(strings.NewReader(string(defaultCatalog)))
	if err != nil {
		panic(err)
	}
	return entries
}

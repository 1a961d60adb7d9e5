// Package catalog holds the static list of services offered in the quotation flow.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed services.yaml
var defaultCatalog []byte

// Entry is one offered service
type Entry struct {
	ID            int      `yaml:"id" json:"id"`
	Title         string   `yaml:"title" json:"title"`
	Icon          string   `yaml:"icon" json:"icon"`
	Description   string   `yaml:"description" json:"description"`
	PriceUSD      string   `yaml:"price_usd" json:"price_usd"`
	PriceMXN      string   `yaml:"price_mxn" json:"price_mxn"`
	EstimatedTime string   `yaml:"estimated_time" json:"estimated_time"`
	Features      []string `yaml:"features" json:"features"`
}

type catalogFile struct {
	Services []Entry `yaml:"services"`
}

// Catalog is an immutable lookup table keyed by service id (1..N)
type Catalog struct {
	entries []Entry
	byID    map[int]Entry
}

// Default returns the catalog embedded in the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file. An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML. Ids must be unique and cover 1..N.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("catalog has no services")
	}

	c := &Catalog{byID: make(map[int]Entry, len(file.Services))}
	for _, e := range file.Services {
		if e.Title == "" {
			return nil, fmt.Errorf("catalog service %d has no title", e.ID)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %d", e.ID)
		}
		c.byID[e.ID] = e
	}

	for id := 1; id <= len(file.Services); id++ {
		if _, ok := c.byID[id]; !ok {
			return nil, fmt.Errorf("catalog ids must be 1..%d, missing %d", len(file.Services), id)
		}
	}

	c.entries = make([]Entry, 0, len(c.byID))
	for _, e := range c.byID {
		c.entries = append(c.entries, e)
	}
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].ID < c.entries[j].ID })

	return c, nil
}

// Lookup returns the entry for id
func (c *Catalog) Lookup(id int) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Entries returns all entries ordered by id
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len is the number of services (N)
func (c *Catalog) Len() int {
	return len(c.entries)
}

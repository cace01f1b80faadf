package pipeline

import (
	"context"
	"fmt"
)

// CatalogSource loads the ordered list of available algorithms.
type CatalogSource interface {
	ListAlgorithms(ctx context.Context) ([]Algorithm, error)
}

// Catalog is a read-only, ordered index over a set of algorithms.
type Catalog struct {
	list []Algorithm
	byID map[string]int
}

// NewCatalog indexes algs. Later duplicates of an id are dropped.
func NewCatalog(algs []Algorithm) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(algs))}
	for _, a := range algs {
		if _, dup := c.byID[a.ID]; dup {
			continue
		}
		c.byID[a.ID] = len(c.list)
		c.list = append(c.list, a)
	}
	return c
}

// LoadCatalog fetches the catalog once from src and validates every schema.
func LoadCatalog(ctx context.Context, src CatalogSource) (*Catalog, error) {
	algs, err := src.ListAlgorithms(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load catalog: %w", err)
	}
	for _, a := range algs {
		if _, err := a.Schema(); err != nil {
			return nil, fmt.Errorf("pipeline: algorithm %q: %w", a.ID, err)
		}
	}
	return NewCatalog(algs), nil
}

// All returns the algorithms in catalog order.
func (c *Catalog) All() []Algorithm {
	out := make([]Algorithm, len(c.list))
	copy(out, c.list)
	return out
}

// Lookup returns the algorithm with the given id.
func (c *Catalog) Lookup(id string) (Algorithm, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Algorithm{}, false
	}
	return c.list[i], true
}

// Len reports the number of algorithms.
func (c *Catalog) Len() int {
	return len(c.list)
}

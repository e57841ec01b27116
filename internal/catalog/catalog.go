// Package catalog holds the fixed list of water-saving activities users can log.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/h2overflow/apiserver/types"
)

// ErrNotFound is returned when an activity id is not in the catalog.
var ErrNotFound = errors.New("activity not found")

// Default is the built-in catalog.
var Default = []types.ActivityDefinition{
	{ID: 1, Slug: "plumbing", Name: "Fixed plumbing", SavedWater: 2},
	{ID: 2, Slug: "shower", Name: "Shower under 5 min", SavedWater: 5},
	{ID: 3, Slug: "dishwasher", Name: "Filled dishwasher before using it", SavedWater: 3},
	{ID: 4, Slug: "tap", Name: "Turn off water tap", SavedWater: 6},
	{ID: 5, Slug: "dishes", Name: "Cleaned the dishes while not letting the water run", SavedWater: 1.5},
	{ID: 6, Slug: "hands", Name: "Washed hands in little time without letting water run", SavedWater: 0.5},
}

// Catalog is an immutable, id-ordered set of activity definitions.
type Catalog struct {
	items []types.ActivityDefinition
	byID  map[int]types.ActivityDefinition
}

// New validates defs and builds a Catalog from them.
func New(defs []types.ActivityDefinition) (*Catalog, error) {
	items := make([]types.ActivityDefinition, len(defs))
	copy(items, defs)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	byID := make(map[int]types.ActivityDefinition, len(items))
	for _, def := range items {
		if def.ID < 1 {
			return nil, fmt.Errorf("activity %q: id must be positive", def.Name)
		}
		if strings.TrimSpace(def.Name) == "" {
			return nil, fmt.Errorf("activity %d: name is required", def.ID)
		}
		if def.SavedWater <= 0 {
			return nil, fmt.Errorf("activity %d: saved water must be positive", def.ID)
		}
		if _, dup := byID[def.ID]; dup {
			return nil, fmt.Errorf("activity %d: duplicate id", def.ID)
		}
		byID[def.ID] = def
	}

	return &Catalog{items: items, byID: byID}, nil
}

// MustDefault returns the built-in catalog.
func MustDefault() *Catalog {
	c, err := New(Default)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns the definitions ordered by id.
func (c *Catalog) List() []types.ActivityDefinition {
	out := make([]types.ActivityDefinition, len(c.items))
	copy(out, c.items)
	return out
}

// Get looks up a definition by id.
func (c *Catalog) Get(id int) (types.ActivityDefinition, error) {
	def, ok := c.byID[id]
	if !ok {
		return types.ActivityDefinition{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return def, nil
}

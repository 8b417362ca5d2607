package resolver

import (
	"fmt"

	"github.com/embeddedkit/isogen/internal/spectree"
)

const designCellsPath = "/design/cells"

// CatalogEntry is one referenceable destination from the device catalog
// section of the specification, with its reference count.
type CatalogEntry struct {
	Name     string          `json:"name"`
	RefCount int             `json:"refcount"`
	Dest     spectree.Record `json:"destination"`
}

// Catalog is the global registry of referenceable devices and memory. It is
// built once before any domain is resolved and read-only during resolution;
// only the reference accountant touches the counts afterwards. Entries keep
// their insertion order so iteration is deterministic.
type Catalog struct {
	entries []*CatalogEntry
	index   map[string]*CatalogEntry
}

// Entries returns the catalog entries in insertion order.
func (cat *Catalog) Entries() []*CatalogEntry {
	return cat.entries
}

// Lookup returns the entry for a destination name, or nil.
func (cat *Catalog) Lookup(name string) *CatalogEntry {
	return cat.index[name]
}

// Len returns the number of catalog entries.
func (cat *Catalog) Len() int {
	return len(cat.entries)
}

func (cat *Catalog) add(name string, dest spectree.Record) {
	if existing, ok := cat.index[name]; ok {
		// Last entry wins, but the original position is kept.
		existing.Dest = dest
		existing.RefCount = 0
		return
	}
	entry := &CatalogEntry{Name: name, Dest: dest}
	cat.entries = append(cat.entries, entry)
	cat.index[name] = entry
}

// buildCatalog walks the specification's device catalog section and
// registers every destination that is referenceable: it either carries a
// nodeid, or it is explicitly flagged as memory (memory never has a nodeid
// but is always catalog-eligible, unless excluded by option). Everything
// else is silently excluded.
func (c *Compiler) buildCatalog() (*Catalog, error) {
	catalog := &Catalog{index: map[string]*CatalogEntry{}}

	cells := c.spec.Find(designCellsPath)
	if cells == nil {
		c.log.Warn("no design/cells found in isolation spec")
		return catalog, nil
	}

	for _, cell := range cells.Children {
		dests, ok := cell.Records("destinations")
		if !ok {
			continue
		}
		c.log.Debug("processing cell", "cell", cell.Name, "destinations", len(dests))

		for _, dest := range dests {
			name, ok := dest.String("name")
			if !ok {
				c.log.Debug("catalog destination has no name, skipping")
				continue
			}

			eligible := false
			switch {
			case dest.Has("nodeid"):
				eligible = true
			case spectree.Truthy(dest["mem"]):
				if c.opts.ExcludeMemory {
					c.log.Debug("memory detected, excluded by option", "name", name)
				} else {
					eligible = true
				}
			default:
				c.log.Debug("destination has no nodeid, skipping", "name", name)
			}
			if !eligible {
				continue
			}

			if catalog.Lookup(name) != nil {
				if !c.opts.Permissive {
					return nil, fmt.Errorf("duplicate catalog device name %q in %s", name, cell.Path)
				}
				c.log.Warn("duplicate catalog device name, last entry wins", "name", name, "cell", cell.Name)
			}
			catalog.add(name, dest)
		}
	}

	c.log.Info("device catalog built", "devices", catalog.Len())
	return catalog, nil
}

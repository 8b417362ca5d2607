package resolver

import (
	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/spectree"
)

// countReferences walks every domain's access, memory and sram lists and
// increments the catalog reference count of each entry whose spec name is a
// catalog device. Entries that are not catalog members (CPU clusters, for
// one) are simply not counted; that is not an error. Runs only after every
// domain has been built.
func (c *Compiler) countReferences(tree *domains.Tree) {
	tree.Walk(func(d *domains.Domain) {
		c.log.Info("refcounting domain", "domain", d.Name)

		count := func(specName string) {
			entry := c.catalog.Lookup(specName)
			if entry == nil {
				c.log.Debug("element is not tracked", "spec_name", specName)
				return
			}
			entry.RefCount++
			c.log.Debug("tracked element refcounted", "spec_name", specName, "refcount", entry.RefCount)
		}

		for _, e := range d.Access {
			count(e.SpecName)
		}
		for _, e := range d.Memory {
			count(e.SpecName)
		}
		for _, e := range d.Sram {
			count(e.SpecName)
		}
	})
}

// broadcastUnreferenced appends every catalog device nobody referenced to
// every domain, modeling implicit global visibility. A zero-reference entry
// becomes an access entry when an exact hardware address match exists, a
// memory entry when it is explicitly memory with an address and size, and is
// otherwise dropped with a debug note. Each domain gains the entry exactly
// once. Must run after counting and before the tree is serialized.
func (c *Compiler) broadcastUnreferenced(tree *domains.Tree) {
	c.log.Info("unreferenced device processing")

	for _, entry := range c.catalog.Entries() {
		if entry.RefCount != 0 {
			continue
		}
		c.log.Info("unreferenced device", "name", entry.Name)

		if access, ok := c.unreferencedAccessEntry(entry); ok {
			tree.Walk(func(d *domains.Domain) {
				c.log.Debug("adding unreferenced device", "domain", d.Name, "name", entry.Name)
				d.Access = append(d.Access, access)
			})
			continue
		}

		if memory, ok := c.unreferencedMemoryEntry(entry); ok {
			tree.Walk(func(d *domains.Domain) {
				c.log.Debug("adding unreferenced memory", "domain", d.Name, "name", entry.Name)
				d.Memory = append(d.Memory, memory)
			})
			continue
		}

		c.log.Debug("unreferenced device has no hardware node and is not memory, skipping", "name", entry.Name)
	}
}

func (c *Compiler) unreferencedAccessEntry(entry *CatalogEntry) (domains.AccessEntry, bool) {
	addr, ok := entry.Dest.Uint("addr")
	if !ok {
		return domains.AccessEntry{}, false
	}
	node := c.hw.NodeAtAddress(addr)
	if node == nil {
		return domains.AccessEntry{}, false
	}
	c.log.Info("hardware node found for unreferenced device", "name", entry.Name, "node", node.Path())
	return domains.AccessEntry{
		Dev:      node.Name,
		SpecName: entry.Name,
		Label:    node.Label,
		Flags:    domains.FlagSet{},
	}, true
}

func (c *Compiler) unreferencedMemoryEntry(entry *CatalogEntry) (domains.MemoryEntry, bool) {
	if !spectree.Truthy(entry.Dest["mem"]) {
		return domains.MemoryEntry{}, false
	}
	addrVal, hasAddr := entry.Dest["addr"]
	sizeVal, hasSize := entry.Dest["size"]
	if !hasAddr || !hasSize {
		return domains.MemoryEntry{}, false
	}
	c.log.Info("unreferenced memory detected", "name", entry.Name)
	return domains.MemoryEntry{
		Dev:      entry.Name,
		SpecName: entry.Name,
		Start:    spectree.RawString(addrVal),
		Size:     spectree.RawString(sizeVal),
	}, true
}

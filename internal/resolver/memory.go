package resolver

import (
	"strings"

	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/spectree"
)

// Register tuples default to two address cells and two size cells; the
// hardware descriptions this tool targets do not override them.
const (
	regAddressCells = 2
	regSizeCells    = 2
)

// classifyMemory decides how a destination is treated by the memory
// resolver. An explicit mem flag forces kind memory with the generic
// memory-node search pattern; otherwise the name is matched against the
// memory pattern table. The second return is false when the destination is
// not memory at all.
func (c *Compiler) classifyMemory(name string, dest spectree.Record) (MemoryKind, string, bool) {
	if v, ok := dest["mem"]; ok && spectree.Truthy(v) {
		return KindMemory, genericMemoryNodePattern, true
	}
	pattern, ok := c.matchMemoryPattern(name)
	if !ok {
		return "", "", false
	}
	return pattern.Kind, pattern.NodePattern, true
}

// resolveMemory resolves one memory/SRAM destination into concrete ranges.
//
// Kind memory: every hardware node matching the search pattern whose
// device_type includes "memory" contributes its decoded register ranges; a
// range matches when the destination address falls inside it. The emitted
// start/size are the hardware range's, not the specification's.
//
// Kind sram: the destination address is looked up as an exact node address.
// A hit currently has no processing implemented and emits nothing with a
// warning. A miss emits the destination's own start/size verbatim.
func (c *Compiler) resolveMemory(name string, dest spectree.Record, kind MemoryKind, nodePattern string) []domains.MemoryEntry {
	destStart, ok := dest.Uint("addr")
	if !ok {
		c.log.Warn("memory destination has no usable address", "name", name)
		return nil
	}

	switch kind {
	case KindMemory:
		return c.resolveMemoryRanges(name, destStart, nodePattern)
	case KindSram:
		return c.resolveSram(name, dest, destStart)
	default:
		c.log.Warn("destination has no memory classification", "name", name)
		return nil
	}
}

func (c *Compiler) resolveMemoryRanges(name string, destStart uint64, nodePattern string) []domains.MemoryEntry {
	candidates, err := c.hw.NodesByName(nodePattern)
	if err != nil {
		c.log.Warn("memory node lookup failed", "pattern", nodePattern, "err", err)
		return nil
	}

	var out []domains.MemoryEntry
	for _, node := range candidates {
		if !strings.Contains(node.DeviceType, "memory") {
			continue
		}
		for _, r := range node.DecodeRegRanges(regAddressCells, regSizeCells) {
			// Inclusive upper bound: an address exactly at start+size
			// still matches. Downstream consumers rely on this; do not
			// tighten to a half-open interval.
			if destStart >= r.Start && destStart <= r.Start+r.Size {
				c.log.Info("memory is in range", "name", name, "node", node.Path(),
					"start", hexValue(r.Start), "size", hexValue(r.Size))
				out = append(out, domains.MemoryEntry{
					Dev:      name,
					SpecName: name,
					Start:    hexValue(r.Start),
					Size:     hexValue(r.Size),
				})
			}
		}
	}

	if len(out) == 0 {
		c.log.Warn("no memory node found containing destination", "name", name, "addr", hexValue(destStart))
	}
	return out
}

func (c *Compiler) resolveSram(name string, dest spectree.Record, destStart uint64) []domains.MemoryEntry {
	if node := c.hw.NodeAtAddress(destStart); node != nil {
		// Known functional gap: the hardware node is found but nothing
		// pulls its range out yet.
		c.log.Warn("sram target node found, but no processing is implemented",
			"name", name, "node", node.Path())
		return nil
	}

	addrRaw := ""
	if v, ok := dest["addr"]; ok {
		addrRaw = spectree.RawString(v)
	}
	sizeRaw := ""
	if v, ok := dest["size"]; ok {
		sizeRaw = spectree.RawString(v)
	}

	c.log.Info("sram taken from specification", "name", name, "start", addrRaw, "size", sizeRaw)
	return []domains.MemoryEntry{{
		Dev:      name,
		SpecName: name,
		Start:    addrRaw,
		Size:     sizeRaw,
	}}
}

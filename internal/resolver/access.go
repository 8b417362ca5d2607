package resolver

import (
	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/hwtree"
	"github.com/embeddedkit/isogen/internal/spectree"
)

// resolvedLists are the four independent outputs of resolving one
// subsystem's access list.
type resolvedLists struct {
	access []domains.AccessEntry
	cpus   []domains.CpuEntry
	memory []domains.MemoryEntry
	sram   []domains.MemoryEntry
}

// destinationClass tags the outcome of classifying one destination. The
// fallback order is a contract: a device match by exact address wins, then a
// memory/SRAM classification, and anything else is unresolved.
type destinationClass int

const (
	classDevice destinationClass = iota
	classMemory
	classUnresolved
)

type classification struct {
	class       destinationClass
	node        *hwtree.Node // classDevice: the matched hardware node
	kind        MemoryKind   // classMemory: memory or sram
	nodePattern string       // classMemory: hardware search pattern
}

// classifyDestination runs the ordered classification chain for one
// destination record.
func (c *Compiler) classifyDestination(dest spectree.Record) classification {
	if addr, ok := dest.Uint("addr"); ok {
		if node := c.hw.NodeAtAddress(addr); node != nil {
			return classification{class: classDevice, node: node}
		}
	}
	name, _ := dest.String("name")
	if kind, pattern, ok := c.classifyMemory(name, dest); ok {
		return classification{class: classMemory, kind: kind, nodePattern: pattern}
	}
	return classification{class: classUnresolved}
}

// resolveAccess processes one subsystem's access list. Every entry failure
// is contained at the entry (or destination) scope; no failure aborts the
// siblings.
func (c *Compiler) resolveAccess(entries []spectree.Record) resolvedLists {
	var lists resolvedLists

	for _, entry := range entries {
		defs := entry

		// same_as_default points the entry at the default-settings
		// subsystem instead of carrying inline values.
		if target, ok := entry.String("same_as_default"); ok {
			c.log.Info("entry has default settings, looking up", "target", target)
			resolved, err := c.deviceDefaults(target)
			if err != nil {
				c.log.Error("cannot find default settings", "target", target, "err", err)
				continue
			}
			defs = resolved
		}

		accessType, ok := defs.String("type")
		if !ok {
			accessType = "device"
		}

		switch accessType {
		case "cpu_list":
			lists.cpus = append(lists.cpus, c.resolveCpus(defs)...)

		case "device":
			c.resolveDeviceEntry(defs, &lists)

		default:
			c.log.Warn("unknown access type", "type", accessType)
		}
	}

	return lists
}

func (c *Compiler) resolveDeviceEntry(defs spectree.Record, lists *resolvedLists) {
	entryName, _ := defs.String("name")
	flags := deviceFlags(defs)

	if !flags["requested"] {
		c.log.Info("device found but not requested, adding to domain", "name", entryName)
	}

	destNames, ok := defs.Strings("destinations")
	if !ok {
		c.log.Debug("device entry has no destinations list", "name", entryName)
		return
	}

	for _, dest := range c.lookupDestinations(destNames) {
		name, ok := dest.String("name")
		if !ok {
			c.log.Debug("destination record has no name, skipping")
			continue
		}
		c.log.Info("processing destination", "name", name)

		cls := c.classifyDestination(dest)
		switch cls.class {
		case classDevice:
			c.log.Info("found hardware node for destination", "name", name, "node", cls.node.Path())
			lists.access = append(lists.access, domains.AccessEntry{
				Dev:      cls.node.Name,
				SpecName: name,
				Label:    cls.node.Label,
				Flags:    flags,
			})

		case classMemory:
			resolved := c.resolveMemory(name, dest, cls.kind, cls.nodePattern)
			if cls.kind == KindSram {
				lists.sram = append(lists.sram, resolved...)
			} else {
				lists.memory = append(lists.memory, resolved...)
			}

		default:
			c.log.Warn("destination has no hardware match and no memory classification, dropping", "name", name)
		}
	}
}

package resolver

import (
	"fmt"
	"strconv"

	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/spectree"
)

// allCoresMask is the core mask used when a CPU name carries no core index:
// all four core positions of the cluster.
const allCoresMask = 0xf

// elRequestedMask is the exception-level mask used when the access entry
// explicitly requests mode "el": bits 0 and 1.
const elRequestedMask = 0x3

// resolveCpus resolves a cpu_list access entry into cluster entries. Each
// SMID name is classified through the CPU pattern table, matched against the
// hardware tree by compatible string, and turned into a cluster name plus
// core and mode masks. Unrecognized or unmatchable names are logged and
// skipped; they never fail the batch.
func (c *Compiler) resolveCpus(entry spectree.Record) []domains.CpuEntry {
	smids, ok := entry.Strings("SMIDs")
	if !ok {
		c.log.Error("cpu_list entry has no SMIDs list")
		return nil
	}
	flags, _ := entry.Record("flags")

	var out []domains.CpuEntry
	for _, cpuName := range smids {
		c.log.Info("processing cpu", "name", cpuName)

		pattern, ok := c.matchCpuPattern(cpuName)
		if !ok {
			c.log.Error("unrecognized cpu", "name", cpuName)
			continue
		}

		// A number in the name selects one core; no number means all cores.
		coreIndex := -1
		if m := trailingDigits.FindStringSubmatch(cpuName); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				coreIndex = n
			}
		}

		nodes, err := c.hw.NodesByCompatible(pattern.Compatible)
		if err != nil {
			c.log.Error("cpu compatible lookup failed", "compatible", pattern.Compatible, "err", err)
			continue
		}
		if len(nodes) == 0 {
			c.log.Warn("no hardware nodes for cpu compatible", "name", cpuName, "compatible", pattern.Compatible)
			continue
		}

		// The cluster is the parent of the matching cpu nodes; any one will
		// do, so take the first.
		cluster := nodes[0].Parent()
		if cluster == nil {
			c.log.Warn("no cluster found for cpus", "name", cpuName)
			continue
		}
		clusterName := cluster.DisplayName()

		var coreMask uint64
		if coreIndex >= 0 {
			// Only set the bit when the requested core actually exists in
			// the cluster. A requested-but-absent core yields mask 0.
			want := fmt.Sprintf("cpu@%d", coreIndex)
			for _, n := range nodes {
				if n.Name == want {
					coreMask |= 1 << uint(coreIndex)
				}
			}
		} else {
			coreMask = allCoresMask
		}

		secure := false
		if flags != nil {
			if v, ok := flags["secure"]; ok {
				secure = spectree.Truthy(v)
			}
		}

		var modeMask uint64
		if mode, ok := flags.String("mode"); ok && mode == "el" {
			modeMask = elRequestedMask
		} else if pattern.EL != nil {
			modeMask = *pattern.EL
		}

		cpuEntry := domains.CpuEntry{
			Dev:      clusterName,
			SpecName: cpuName,
			Cluster:  clusterName,
			CpuMask:  hexValue(coreMask),
			Mode:     domains.CpuMode{Secure: secure},
		}
		// A zero mode mask is omitted entirely; the mode then only reports
		// the secure state.
		if modeMask != 0 {
			cpuEntry.Mode.EL = hexValue(modeMask)
		}

		out = append(out, cpuEntry)
	}

	c.log.Debug("cpu list resolved", "entries", len(out))
	return out
}

func hexValue(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

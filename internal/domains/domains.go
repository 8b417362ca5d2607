// Package domains is the output model of the compilation: one domain per
// subsystem in the isolation specification, each carrying independently
// serialized access, memory, sram and cpu lists.
package domains

import (
	"fmt"
	"sort"
)

// Compatible marks output domain nodes.
const Compatible = "openamp,domain-v1"

// Tree is the compiled domain tree handed to the writer.
type Tree struct {
	Domains []*Domain `json:"domains"`
}

// Domain is one isolation boundary. Lists that stay empty are not serialized.
// Nested sub-domains inherit the parent id unless the specification set one.
type Domain struct {
	Name    string        `json:"name"`
	ID      uint64        `json:"id"`
	Access  []AccessEntry `json:"access,omitempty"`
	Memory  []MemoryEntry `json:"memory,omitempty"`
	Sram    []MemoryEntry `json:"sram,omitempty"`
	Cpus    []CpuEntry    `json:"cpus,omitempty"`
	Domains []*Domain     `json:"domains,omitempty"`
}

// FlagSet is a normalized flag mapping: a flag is either present and true,
// or absent. Flags set to a false/empty value never appear.
type FlagSet map[string]bool

// AccessEntry is a resolved device reference.
type AccessEntry struct {
	Dev      string  `json:"dev"`
	SpecName string  `json:"spec_name"`
	Label    string  `json:"label"`
	Flags    FlagSet `json:"flags"`
}

// MemoryEntry is a resolved memory or SRAM range. Start and Size are kept as
// strings: hardware-derived ranges are hex-encoded, spec-derived SRAM ranges
// carry the specification's values verbatim.
type MemoryEntry struct {
	Dev      string `json:"dev"`
	SpecName string `json:"spec_name"`
	Start    string `json:"start"`
	Size     string `json:"size"`
}

// CpuMode describes the execution mode of a resolved CPU cluster. EL is a
// hex-encoded exception-level mask and is omitted when the cluster has no
// default exception level and none was requested.
type CpuMode struct {
	Secure bool   `json:"secure"`
	EL     string `json:"el,omitempty"`
}

// CpuEntry is a resolved CPU cluster reference.
type CpuEntry struct {
	Dev      string  `json:"dev"`
	SpecName string  `json:"spec_name"`
	Cluster  string  `json:"cluster"`
	CpuMask  string  `json:"cpumask"`
	Mode     CpuMode `json:"mode"`
}

// Walk visits every domain in the tree, parents before children, in
// insertion order.
func (t *Tree) Walk(fn func(*Domain)) {
	var walk func(d *Domain)
	walk = func(d *Domain) {
		fn(d)
		for _, sub := range d.Domains {
			walk(sub)
		}
	}
	for _, d := range t.Domains {
		walk(d)
	}
}

// Find returns the first domain with the given name, searching nested
// domains too, or nil.
func (t *Tree) Find(name string) *Domain {
	var found *Domain
	t.Walk(func(d *Domain) {
		if found == nil && d.Name == name {
			found = d
		}
	})
	return found
}

// SortedNames returns the flag names in deterministic order. Serialization
// must not depend on Go map iteration order.
func (f FlagSet) SortedNames() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f FlagSet) String() string {
	return fmt.Sprintf("%v", f.SortedNames())
}

package resolver

import (
	"fmt"
	"regexp"
)

// MemoryKind classifies a memory destination.
type MemoryKind string

const (
	KindMemory MemoryKind = "memory"
	KindSram   MemoryKind = "sram"
)

// genericMemoryNodePattern is the hardware node-name pattern used when a
// destination carries an explicit mem flag and therefore needs no name
// classification.
const genericMemoryNodePattern = "memory@.*"

// CpuPattern maps an isolation-spec CPU name pattern to the hardware
// compatible string of the cluster and its default exception-level mask.
// EL is nil for clusters without a default exception level.
type CpuPattern struct {
	Pattern    string  `json:"pattern"`
	Compatible string  `json:"compatible"`
	EL         *uint64 `json:"el,omitempty"`

	re *regexp.Regexp
}

// MemoryPattern maps an isolation-spec memory name pattern to its resource
// kind and the hardware node-name pattern used to locate candidate nodes.
// NodePattern is empty for SRAM, which is located by exact address instead.
type MemoryPattern struct {
	Pattern     string     `json:"pattern"`
	Kind        MemoryKind `json:"kind"`
	NodePattern string     `json:"node_pattern,omitempty"`

	re *regexp.Regexp
}

// DefaultCpuPatterns returns the built-in CPU classification table.
func DefaultCpuPatterns() []CpuPattern {
	el3 := uint64(3)
	return []CpuPattern{
		{Pattern: "APU*", Compatible: "arm,cortex-a72", EL: &el3},
		{Pattern: "RPU*", Compatible: "arm,cortex-r5"},
	}
}

// DefaultMemoryPatterns returns the built-in memory classification table.
func DefaultMemoryPatterns() []MemoryPattern {
	return []MemoryPattern{
		{Pattern: "DDR0", Kind: KindMemory, NodePattern: "memory@.*"},
		{Pattern: "OCM.*", Kind: KindSram},
	}
}

func compileCpuPatterns(patterns []CpuPattern) ([]CpuPattern, error) {
	out := make([]CpuPattern, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("cpu pattern %q: %w", p.Pattern, err)
		}
		p.re = re
		out[i] = p
	}
	return out, nil
}

func compileMemoryPatterns(patterns []MemoryPattern) ([]MemoryPattern, error) {
	out := make([]MemoryPattern, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("memory pattern %q: %w", p.Pattern, err)
		}
		p.re = re
		out[i] = p
	}
	return out, nil
}

// matchCpuPattern returns the CPU table entry for name. The table is a
// deterministic ordered list; when several patterns match, the last one wins.
func (c *Compiler) matchCpuPattern(name string) (CpuPattern, bool) {
	var found CpuPattern
	ok := false
	for _, p := range c.cpuPatterns {
		if p.re.MatchString(name) {
			found = p
			ok = true
		}
	}
	return found, ok
}

// matchMemoryPattern returns the memory table entry for name, last match
// winning, or false when the name classifies as neither memory nor SRAM.
func (c *Compiler) matchMemoryPattern(name string) (MemoryPattern, bool) {
	var found MemoryPattern
	ok := false
	for _, p := range c.memoryPatterns {
		if p.re.MatchString(name) {
			found = p
			ok = true
		}
	}
	return found, ok
}

// trailingDigits extracts the core index from a CPU name, e.g. "APU2" -> 2.
var trailingDigits = regexp.MustCompile(`(\d+)$`)

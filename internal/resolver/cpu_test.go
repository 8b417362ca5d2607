package resolver

import (
	"testing"

	"github.com/embeddedkit/isogen/internal/spectree"
)

func cpuEntryRecord(smids []string, flags spectree.Record) spectree.Record {
	list := make([]any, len(smids))
	for i, s := range smids {
		list[i] = s
	}
	rec := spectree.Record{"SMIDs": list}
	if flags != nil {
		rec["flags"] = flags
	}
	return rec
}

func TestResolveCpusSingleCore(t *testing.T) {
	c := newTestCompiler(t, `{}`, testClusterHw, Options{})

	entries := c.resolveCpus(cpuEntryRecord([]string{"APU2"}, nil))
	if len(entries) != 1 {
		t.Fatalf("expected 1 cpu entry, got %d", len(entries))
	}

	e := entries[0]
	if e.CpuMask != "0x4" {
		t.Errorf("cpumask: got %s, want 0x4", e.CpuMask)
	}
	if e.Cluster != "apu_cluster" {
		t.Errorf("cluster: got %s, want apu_cluster", e.Cluster)
	}
	if e.Dev != "apu_cluster" || e.SpecName != "APU2" {
		t.Errorf("identity: got dev=%s spec_name=%s", e.Dev, e.SpecName)
	}
	if e.Mode.Secure {
		t.Error("secure should default to false")
	}
	if e.Mode.EL != "0x3" {
		t.Errorf("el: got %q, want 0x3 (cluster default)", e.Mode.EL)
	}
}

func TestResolveCpusAllCores(t *testing.T) {
	c := newTestCompiler(t, `{}`, testClusterHw, Options{})

	entries := c.resolveCpus(cpuEntryRecord([]string{"APU"}, nil))
	if len(entries) != 1 {
		t.Fatalf("expected 1 cpu entry, got %d", len(entries))
	}
	if entries[0].CpuMask != "0xf" {
		t.Errorf("cpumask: got %s, want 0xf", entries[0].CpuMask)
	}
}

func TestResolveCpusAbsentCoreYieldsZeroMask(t *testing.T) {
	c := newTestCompiler(t, `{}`, testClusterHw, Options{})

	// cpu@7 does not exist in the cluster: the request resolves, with an
	// empty mask, rather than erroring.
	entries := c.resolveCpus(cpuEntryRecord([]string{"APU7"}, nil))
	if len(entries) != 1 {
		t.Fatalf("expected 1 cpu entry, got %d", len(entries))
	}
	if entries[0].CpuMask != "0x0" {
		t.Errorf("cpumask: got %s, want 0x0", entries[0].CpuMask)
	}
}

func TestResolveCpusUnrecognizedNameSkipped(t *testing.T) {
	c := newTestCompiler(t, `{}`, testClusterHw, Options{})

	entries := c.resolveCpus(cpuEntryRecord([]string{"XPU0", "APU0"}, nil))
	if len(entries) != 1 {
		t.Fatalf("unrecognized cpu must be skipped, not fatal: got %d entries", len(entries))
	}
	if entries[0].SpecName != "APU0" {
		t.Errorf("surviving entry: got %s, want APU0", entries[0].SpecName)
	}
	if entries[0].CpuMask != "0x1" {
		t.Errorf("cpumask: got %s, want 0x1", entries[0].CpuMask)
	}
}

func TestResolveCpusNoCompatibleNodes(t *testing.T) {
	c := newTestCompiler(t, `{}`, `name: /`, Options{})

	entries := c.resolveCpus(cpuEntryRecord([]string{"APU0"}, nil))
	if len(entries) != 0 {
		t.Fatalf("expected no entries without hardware nodes, got %d", len(entries))
	}
}

func TestResolveCpusModeFlags(t *testing.T) {
	c := newTestCompiler(t, `{}`, testClusterHw, Options{})

	// Explicit mode "el" sets bits 0 and 1 regardless of the cluster default.
	entries := c.resolveCpus(cpuEntryRecord([]string{"APU0"},
		spectree.Record{"secure": true, "mode": "el"}))
	if len(entries) != 1 {
		t.Fatalf("expected 1 cpu entry, got %d", len(entries))
	}
	if !entries[0].Mode.Secure {
		t.Error("secure flag not carried through")
	}
	if entries[0].Mode.EL != "0x3" {
		t.Errorf("el: got %q, want 0x3", entries[0].Mode.EL)
	}
}

func TestResolveCpusNoDefaultExceptionLevel(t *testing.T) {
	c := newTestCompiler(t, `{}`, testClusterHw, Options{})

	// The R5 cluster has no default exception level, so the mode mask is
	// omitted and only the secure state is reported.
	entries := c.resolveCpus(cpuEntryRecord([]string{"RPU0"}, nil))
	if len(entries) != 1 {
		t.Fatalf("expected 1 cpu entry, got %d", len(entries))
	}
	if entries[0].Mode.EL != "" {
		t.Errorf("el should be omitted, got %q", entries[0].Mode.EL)
	}
	// No label on the rpu cluster: the node name is the cluster name.
	if entries[0].Cluster != "rpu_cpus" {
		t.Errorf("cluster: got %s, want rpu_cpus", entries[0].Cluster)
	}
}

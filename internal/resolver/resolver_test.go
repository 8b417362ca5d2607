package resolver

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/embeddedkit/isogen/internal/hwtree"
	"github.com/embeddedkit/isogen/internal/spectree"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func loadSpec(t *testing.T, doc string) *spectree.Tree {
	t.Helper()
	tree, err := spectree.Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("loading spec: %v", err)
	}
	return tree
}

func loadHw(t *testing.T, doc string) *hwtree.Tree {
	t.Helper()
	tree, err := hwtree.Load([]byte(doc))
	if err != nil {
		t.Fatalf("loading hardware tree: %v", err)
	}
	return tree
}

func newTestCompiler(t *testing.T, specDoc, hwDoc string, opts Options) *Compiler {
	t.Helper()
	c, err := New(loadSpec(t, specDoc), loadHw(t, hwDoc), opts, testLogger())
	if err != nil {
		t.Fatalf("creating compiler: %v", err)
	}
	return c
}

// testClusterHw is a minimal hardware tree with one four-core A72 cluster
// and one two-core R5 cluster.
const testClusterHw = `
name: /
nodes:
  - name: cpus
    label: apu_cluster
    nodes:
      - name: cpu@0
        compatible: ["arm,cortex-a72"]
      - name: cpu@1
        compatible: ["arm,cortex-a72"]
      - name: cpu@2
        compatible: ["arm,cortex-a72"]
      - name: cpu@3
        compatible: ["arm,cortex-a72"]
  - name: rpu_cpus
    nodes:
      - name: cpu@0
        compatible: ["arm,cortex-r5"]
      - name: cpu@1
        compatible: ["arm,cortex-r5"]
`

func TestCompilerRejectsMissingInputs(t *testing.T) {
	spec := loadSpec(t, `{}`)
	hw := loadHw(t, `name: /`)

	if _, err := New(nil, hw, Options{}, testLogger()); err == nil {
		t.Fatal("expected error for missing specification")
	}
	if _, err := New(spec, nil, Options{}, testLogger()); err == nil {
		t.Fatal("expected error for missing hardware tree")
	}
}

func TestCompilerRejectsBadPatternOverride(t *testing.T) {
	spec := loadSpec(t, `{}`)
	hw := loadHw(t, `name: /`)

	_, err := New(spec, hw, Options{
		CpuPatterns: []CpuPattern{{Pattern: "[invalid", Compatible: "x"}},
	}, testLogger())
	if err == nil {
		t.Fatal("expected error for invalid cpu pattern")
	}

	_, err = New(spec, hw, Options{
		MemoryPatterns: []MemoryPattern{{Pattern: "[invalid", Kind: KindMemory}},
	}, testLogger())
	if err == nil {
		t.Fatal("expected error for invalid memory pattern")
	}
}

func TestRunRequiresSubsystems(t *testing.T) {
	c := newTestCompiler(t, `{"design": {"cells": {}}}`, `name: /`, Options{})
	if _, err := c.Run(); err == nil {
		t.Fatal("expected error when /design/subsystems is missing")
	}
}

// Package e2e drives the whole pipeline the way the CLI does: validate the
// specification, load both trees, compile, validate the output, audit it and
// serialize the result.
package e2e

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/hwtree"
	"github.com/embeddedkit/isogen/internal/policy"
	"github.com/embeddedkit/isogen/internal/resolver"
	"github.com/embeddedkit/isogen/internal/spectree"
	"github.com/embeddedkit/isogen/internal/validator"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// compile runs every pipeline stage over the testdata inputs and returns the
// serialized output.
func compile(t *testing.T) (*domains.Tree, []byte) {
	t.Helper()

	specBytes, err := os.ReadFile(filepath.Join("testdata", "isolation.json"))
	if err != nil {
		t.Fatal(err)
	}

	sv, err := validator.NewSpecValidator()
	if err != nil {
		t.Fatalf("spec validator: %v", err)
	}
	if err := sv.ValidateJSON(specBytes); err != nil {
		t.Fatalf("specification rejected: %v", err)
	}

	spec, err := spectree.Load(bytes.NewReader(specBytes))
	if err != nil {
		t.Fatalf("loading specification: %v", err)
	}
	hw, err := hwtree.LoadFile(filepath.Join("testdata", "hardware.yaml"))
	if err != nil {
		t.Fatalf("loading hardware tree: %v", err)
	}

	compiler, err := resolver.New(spec, hw, resolver.Options{}, quietLogger())
	if err != nil {
		t.Fatalf("creating compiler: %v", err)
	}
	tree, err := compiler.Run()
	if err != nil {
		t.Fatalf("compiling: %v", err)
	}

	ov, err := validator.NewOutputValidator()
	if err != nil {
		t.Fatalf("output validator: %v", err)
	}
	if err := ov.Validate(tree); err != nil {
		t.Fatalf("compiled tree rejected by output schema: %v", err)
	}

	out, err := domains.Marshal(tree)
	if err != nil {
		t.Fatalf("serializing: %v", err)
	}
	return tree, out
}

func TestPipelineProducesExpectedDomains(t *testing.T) {
	tree, out := compile(t)

	apu := tree.Find("APU")
	if apu == nil {
		t.Fatal("APU domain missing")
	}
	rpu := tree.Find("RPU")
	if rpu == nil {
		t.Fatal("RPU domain missing")
	}

	// APU: one cpu cluster, secure with an explicit exception-level mask.
	if len(apu.Cpus) != 1 {
		t.Fatalf("APU cpus: %+v", apu.Cpus)
	}
	cpu := apu.Cpus[0]
	if cpu.Cluster != "apu_cluster" || cpu.CpuMask != "0xf" {
		t.Errorf("APU cpu: %+v", cpu)
	}
	if !cpu.Mode.Secure || cpu.Mode.EL != "0x3" {
		t.Errorf("APU cpu mode: %+v", cpu.Mode)
	}

	// APU memory: the DDR request resolves to the containing hardware range.
	if len(apu.Memory) != 1 || apu.Memory[0].Start != "0x0" || apu.Memory[0].Size != "0x40000000" {
		t.Errorf("APU memory: %+v", apu.Memory)
	}

	// RPU cpu: single core, no default exception level on the R5 cluster.
	if len(rpu.Cpus) != 1 {
		t.Fatalf("RPU cpus: %+v", rpu.Cpus)
	}
	if rpu.Cpus[0].Cluster != "rpu_cluster" || rpu.Cpus[0].CpuMask != "0x1" {
		t.Errorf("RPU cpu: %+v", rpu.Cpus[0])
	}
	if rpu.Cpus[0].Mode.EL != "" {
		t.Errorf("RPU cpu mode must omit el: %+v", rpu.Cpus[0].Mode)
	}

	// RPU sram: no hardware node at the OCM address, so the specification's
	// own textual values pass through, decimal size included.
	if len(rpu.Sram) != 1 || rpu.Sram[0].Start != "0xFFFC0000" || rpu.Sram[0].Size != "262144" {
		t.Errorf("RPU sram: %+v", rpu.Sram)
	}

	if len(out) == 0 {
		t.Fatal("empty serialized output")
	}
}

func TestPipelineResolvesDefaultIndirection(t *testing.T) {
	tree, _ := compile(t)

	// The can0 entry in APU is a same_as_default indirection; it must land
	// as a regular access entry with the default's flags.
	apu := tree.Find("APU")
	for _, e := range apu.Access {
		if e.SpecName == "can0" {
			if e.Dev != "can@ff060000" || !e.Flags["requested"] {
				t.Errorf("can0 entry: %+v", e)
			}
			return
		}
	}
	t.Fatalf("can0 not resolved into APU access list: %+v", apu.Access)
}

func TestPipelineBroadcastsUnreferencedDevice(t *testing.T) {
	tree, _ := compile(t)

	// uart0 is in the catalog but no subsystem references it: every domain
	// gains it exactly once.
	tree.Walk(func(d *domains.Domain) {
		hits := 0
		for _, e := range d.Access {
			if e.SpecName == "uart0" {
				hits++
				if e.Dev != "serial@ff000000" {
					t.Errorf("%s: uart0 entry %+v", d.Name, e)
				}
			}
		}
		if hits != 1 {
			t.Errorf("domain %s: uart0 appears %d times, want 1", d.Name, hits)
		}
	})
}

func TestPipelineOutputParsesAsYaml(t *testing.T) {
	_, out := compile(t)

	var doc struct {
		Domains map[string]struct {
			Compatible string `yaml:"compatible"`
			ID         uint64 `yaml:"id"`
		} `yaml:"domains"`
	}
	if err := yaml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, out)
	}
	if len(doc.Domains) != 2 {
		t.Fatalf("domains: %+v", doc.Domains)
	}
	for name, d := range doc.Domains {
		if d.Compatible != domains.Compatible {
			t.Errorf("%s: compatible %q", name, d.Compatible)
		}
	}
	if doc.Domains["APU"].ID != 1 || doc.Domains["RPU"].ID != 2 {
		t.Errorf("ids: %+v", doc.Domains)
	}
}

func TestPipelineIsDeterministic(t *testing.T) {
	_, first := compile(t)
	_, second := compile(t)
	if !bytes.Equal(first, second) {
		t.Error("two pipeline runs over identical inputs produced different output")
	}
}

func TestPipelineAuditIsClean(t *testing.T) {
	tree, _ := compile(t)

	engine, err := policy.New()
	if err != nil {
		t.Fatalf("policy engine: %v", err)
	}
	res, err := engine.Audit(context.Background(), tree)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(res.Findings) != 0 {
		t.Errorf("expected a clean audit, got %+v", res.Findings)
	}
}

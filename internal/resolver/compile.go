// Package resolver compiles an isolation specification against a hardware
// description tree into a domain tree. The compilation is a single
// synchronous pass: the device catalog is built first, then every subsystem
// is resolved into a domain, and finally the reference accountant counts
// catalog references and broadcasts unreferenced devices into every domain.
package resolver

import (
	"fmt"
	"log/slog"

	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/hwtree"
	"github.com/embeddedkit/isogen/internal/spectree"
)

// Options carries the parsed CLI intent into the core. The core never looks
// at argv itself.
type Options struct {
	// ExcludeMemory drops catalog entries that are only eligible through an
	// explicit mem flag (no nodeid).
	ExcludeMemory bool

	// Permissive downgrades duplicate catalog names from an error to a
	// last-entry-wins warning.
	Permissive bool

	// CpuPatterns and MemoryPatterns override the built-in classification
	// tables when non-empty.
	CpuPatterns    []CpuPattern
	MemoryPatterns []MemoryPattern
}

// Compiler holds the read-only inputs and the classification tables for one
// compilation run. It is not safe for concurrent use and is not meant to be:
// a run is one pass, start to finish.
type Compiler struct {
	spec *spectree.Tree
	hw   *hwtree.Tree
	opts Options
	log  *slog.Logger

	cpuPatterns    []CpuPattern
	memoryPatterns []MemoryPattern

	catalog *Catalog
}

// New prepares a compiler over the loaded specification and hardware trees.
func New(spec *spectree.Tree, hw *hwtree.Tree, opts Options, logger *slog.Logger) (*Compiler, error) {
	if spec == nil {
		return nil, fmt.Errorf("no isolation specification loaded")
	}
	if hw == nil {
		return nil, fmt.Errorf("no hardware description loaded")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cpuPats := opts.CpuPatterns
	if len(cpuPats) == 0 {
		cpuPats = DefaultCpuPatterns()
	}
	memPats := opts.MemoryPatterns
	if len(memPats) == 0 {
		memPats = DefaultMemoryPatterns()
	}

	compiledCpu, err := compileCpuPatterns(cpuPats)
	if err != nil {
		return nil, err
	}
	compiledMem, err := compileMemoryPatterns(memPats)
	if err != nil {
		return nil, err
	}

	return &Compiler{
		spec:           spec,
		hw:             hw,
		opts:           opts,
		log:            logger,
		cpuPatterns:    compiledCpu,
		memoryPatterns: compiledMem,
	}, nil
}

// Catalog returns the device catalog built by the last Run. Exposed for the
// dump tooling and for tests; nil before Run.
func (c *Compiler) Catalog() *Catalog {
	return c.catalog
}

// Run executes the full compilation. Per-entry resolution failures are
// logged and contained; only missing top-level structure is returned as an
// error. The stage order is a contract: catalog before domains, domains
// before accounting, accounting before the tree is handed out.
func (c *Compiler) Run() (*domains.Tree, error) {
	catalog, err := c.buildCatalog()
	if err != nil {
		return nil, err
	}
	c.catalog = catalog

	tree, err := c.buildDomains()
	if err != nil {
		return nil, err
	}

	c.countReferences(tree)
	c.broadcastUnreferenced(tree)

	return tree, nil
}

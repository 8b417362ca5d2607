// =============================================================================
// isogen - Isolation Specification Compiler
// =============================================================================
//
// Translates an isolation specification (subsystems, CPUs, memory regions and
// devices with access rights) into a domain tree, by matching each logical
// resource reference against a hardware description of the target platform.
//
// THE PIPELINE:
//   1. CUE validator checks the isolation spec against its schema (crash on
//      schema mismatch)
//   2. Spec loader builds the navigable specification tree
//   3. Device catalog collects every referenceable destination
//   4. Resolver compiles each subsystem into a domain (access/memory/sram/cpus)
//   5. Reference accountant broadcasts unreferenced devices into every domain
//   6. OPA audit rules flag suspicious results
//   7. The domain tree is written as domains.yaml
//
// =============================================================================

package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/embeddedkit/isogen/internal/config"
	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/hwtree"
	"github.com/embeddedkit/isogen/internal/policy"
	"github.com/embeddedkit/isogen/internal/resolver"
	"github.com/embeddedkit/isogen/internal/spectree"
	"github.com/embeddedkit/isogen/internal/validator"
)

func main() {
	var (
		configPath string
		outputPath string
		verbose    int
		noMemory   bool
		permissive bool
		positional []string
	)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "init":
			runInit()
			return
		case "-h", "--help", "help":
			printUsage()
			return
		case "-v", "--verbose":
			verbose++
		case "-m", "--nomemory":
			noMemory = true
		case "-p", "--permissive":
			permissive = true
		case "-c", "--config":
			if i+1 >= len(args) {
				printUsage()
				os.Exit(1)
			}
			i++
			configPath = args[i]
		case "-o", "--output":
			if i+1 >= len(args) {
				printUsage()
				os.Exit(1)
			}
			i++
			outputPath = args[i]
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if noMemory {
		cfg.ExcludeMemory = true
	}
	if permissive {
		cfg.Permissive = true
	}
	if verbose > cfg.Verbose {
		cfg.Verbose = verbose
	}
	if outputPath != "" {
		cfg.Output = outputPath
	}
	if len(positional) > 2 {
		cfg.Output = positional[2]
	}

	if err := run(positional[0], positional[1], cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(specPath, hwPath string, cfg *config.Config) error {
	logger := newLogger(cfg.Verbose)

	specBytes, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("reading isolation specification: %w", err)
	}

	specValidator, err := validator.NewSpecValidator()
	if err != nil {
		return err
	}
	if err := specValidator.ValidateJSON(specBytes); err != nil {
		for _, msg := range specValidator.ValidationErrors(specBytes) {
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}
		return fmt.Errorf("isolation specification does not match schema: %w", err)
	}

	spec, err := spectree.Load(bytes.NewReader(specBytes))
	if err != nil {
		return err
	}

	hw, err := hwtree.LoadFile(hwPath)
	if err != nil {
		return err
	}

	compiler, err := resolver.New(spec, hw, resolver.Options{
		ExcludeMemory:  cfg.ExcludeMemory,
		Permissive:     cfg.Permissive,
		CpuPatterns:    cfg.CpuPatterns,
		MemoryPatterns: cfg.MemoryPatterns,
	}, logger)
	if err != nil {
		return err
	}

	tree, err := compiler.Run()
	if err != nil {
		return err
	}

	outputValidator, err := validator.NewOutputValidator()
	if err != nil {
		return err
	}
	if err := outputValidator.Validate(tree); err != nil {
		return fmt.Errorf("compiled domain tree does not match output schema: %w", err)
	}

	audit, err := policy.New()
	if err != nil {
		return err
	}
	result, err := audit.Audit(context.Background(), tree)
	if err != nil {
		return err
	}
	for _, f := range result.Findings {
		fmt.Fprintf(os.Stderr, "audit: [%s] %s: %s\n", f.Severity, f.Rule, f.Message)
	}

	logger.Info("writing domain file", "path", cfg.Output)
	return domains.WriteFile(tree, cfg.Output)
}

func newLogger(verbose int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: isogen [options] <isospec.json> <hardware.yaml> [output]

Commands:
  init              Create an isogen.json configuration file

Options:
  -v, --verbose     Raise verbosity (repeat for debug output)
  -m, --nomemory    Exclude nodeid-less memory from the device catalog
  -p, --permissive  Tolerate duplicate catalog device names (last wins)
  -c, --config      Specify config file: isogen -c config.json ...
  -o, --output      Domain file to write (default domains.yaml)
  -h, --help        Show this help message

Configuration:
  isogen looks for configuration in:
    1. ./isogen.json
    2. ./.isogen.json
    3. ~/.config/isogen/config.json

  Run 'isogen init' to create a default configuration file.`)
}

func runInit() {
	configPath := "isogen.json"

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - CPU and memory classification patterns")
	fmt.Println("  - Catalog memory exclusion")
	fmt.Println("  - Output file name")
}

// isogen-dump compiles an isolation specification and prints the device
// catalog and the resulting domain tree as JSON. A debugging aid for the
// pipeline: when a domain looks wrong, start here, not at the YAML output.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/embeddedkit/isogen/internal/hwtree"
	"github.com/embeddedkit/isogen/internal/resolver"
	"github.com/embeddedkit/isogen/internal/spectree"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: isogen-dump <isospec.json> <hardware.yaml>")
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(specPath, hwPath string) error {
	spec, err := spectree.LoadFile(specPath)
	if err != nil {
		return err
	}
	hw, err := hwtree.LoadFile(hwPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	compiler, err := resolver.New(spec, hw, resolver.Options{}, logger)
	if err != nil {
		return err
	}

	tree, err := compiler.Run()
	if err != nil {
		return err
	}

	dump := struct {
		Catalog []*resolver.CatalogEntry `json:"catalog"`
		Domains any                      `json:"domains"`
	}{
		Catalog: compiler.Catalog().Entries(),
		Domains: tree.Domains,
	}

	out, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling dump: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

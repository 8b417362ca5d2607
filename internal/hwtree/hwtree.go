// Package hwtree models the hardware description of the target platform.
// The tree is loaded from a YAML document and queried read-only during
// resolution: by compatible-string pattern, by exact address, and by plain
// node/property access.
package hwtree

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node is one hardware node. Reg carries raw 32-bit cells exactly as a
// device tree would; DecodeRegRanges interprets them.
type Node struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label,omitempty"`
	Compatible []string `yaml:"compatible,omitempty"`
	DeviceType string   `yaml:"device_type,omitempty"`
	Reg        []uint32 `yaml:"reg,omitempty"`
	Nodes      []*Node  `yaml:"nodes,omitempty"`

	parent *Node
}

// Tree is a loaded hardware description.
type Tree struct {
	Root *Node
}

// Load parses a hardware description from YAML bytes.
func Load(data []byte) (*Tree, error) {
	root := &Node{}
	if err := yaml.Unmarshal(data, root); err != nil {
		return nil, fmt.Errorf("parsing hardware description: %w", err)
	}
	if root.Name == "" {
		root.Name = "/"
	}
	linkParents(root)
	return &Tree{Root: root}, nil
}

// LoadFile parses a hardware description from a YAML file.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hardware description: %w", err)
	}
	return Load(data)
}

func linkParents(n *Node) {
	for _, c := range n.Nodes {
		c.parent = n
		linkParents(c)
	}
}

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// DisplayName returns the node's label when one is set, else its name.
func (n *Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	return n.Name
}

// Path returns the node's absolute path.
func (n *Node) Path() string {
	if n.parent == nil {
		return "/"
	}
	parent := n.parent.Path()
	if parent == "/" {
		return "/" + n.Name
	}
	return parent + "/" + n.Name
}

// UnitAddress returns the address encoded in the node name after '@',
// e.g. "serial@ff000000" -> 0xff000000.
func (n *Node) UnitAddress() (uint64, bool) {
	i := strings.IndexByte(n.Name, '@')
	if i < 0 {
		return 0, false
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(n.Name[i+1:], "0x"), 16, 64)
	if err != nil {
		return 0, false
	}
	return addr, true
}

// Walk visits every node in document order.
func (t *Tree) Walk(fn func(*Node)) {
	var walk func(n *Node)
	walk = func(n *Node) {
		fn(n)
		for _, c := range n.Nodes {
			walk(c)
		}
	}
	walk(t.Root)
}

// NodesByCompatible returns every node with a compatible string matching the
// given pattern (unanchored regular expression), in document order.
func (t *Tree) NodesByCompatible(pattern string) ([]*Node, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compatible pattern %q: %w", pattern, err)
	}
	var out []*Node
	t.Walk(func(n *Node) {
		for _, c := range n.Compatible {
			if re.MatchString(c) {
				out = append(out, n)
				return
			}
		}
	})
	return out, nil
}

// NodesByName returns every node whose name matches the given pattern
// (unanchored regular expression), in document order.
func (t *Tree) NodesByName(pattern string) ([]*Node, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("name pattern %q: %w", pattern, err)
	}
	var out []*Node
	t.Walk(func(n *Node) {
		if re.MatchString(n.Name) {
			out = append(out, n)
		}
	})
	return out, nil
}

// NodeAtAddress returns the first node whose unit address (or, failing that,
// first decoded reg address) equals addr exactly, or nil.
func (t *Tree) NodeAtAddress(addr uint64) *Node {
	var found *Node
	t.Walk(func(n *Node) {
		if found != nil {
			return
		}
		if ua, ok := n.UnitAddress(); ok && ua == addr {
			found = n
			return
		}
		if ranges := n.DecodeRegRanges(2, 2); len(ranges) > 0 && ranges[0].Start == addr {
			found = n
		}
	})
	return found
}

// Range is one decoded (address, size) register tuple.
type Range struct {
	Start uint64
	Size  uint64
}

// DecodeRegRanges interprets the node's reg cells as a sequence of
// (address, size) tuples of the given cell widths. Cells are 32-bit
// big-endian units, so a 2-cell value spans 64 bits. Trailing cells that do
// not fill a whole tuple are ignored.
func (n *Node) DecodeRegRanges(addressCells, sizeCells int) []Range {
	stride := addressCells + sizeCells
	if stride == 0 || len(n.Reg) < stride {
		return nil
	}
	var out []Range
	for i := 0; i+stride <= len(n.Reg); i += stride {
		out = append(out, Range{
			Start: joinCells(n.Reg[i : i+addressCells]),
			Size:  joinCells(n.Reg[i+addressCells : i+stride]),
		})
	}
	return out
}

// joinCells concatenates 32-bit cells big-endian into one value.
func joinCells(cells []uint32) uint64 {
	var v uint64
	for _, c := range cells {
		v = v<<32 | uint64(c)
	}
	return v
}

// Package spectree loads an isolation specification (JSON) into a navigable
// tree. JSON objects become nodes, object-valued keys become child nodes, and
// scalar or array valued keys become properties. Document order is preserved
// so that repeated runs over the same input walk the tree identically.
package spectree

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Node is a single node in the specification tree.
type Node struct {
	Name     string
	Path     string
	Parent   *Node
	Children []*Node

	propNames  []string
	propValues map[string]any
}

// Tree is a loaded isolation specification.
type Tree struct {
	Root  *Node
	index map[string]*Node
}

// Load reads a JSON isolation specification from r.
func Load(r io.Reader) (*Tree, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decoding specification: %w", err)
	}
	obj, ok := v.(*object)
	if !ok {
		return nil, fmt.Errorf("specification root is not a JSON object")
	}

	root := buildNode("", "/", nil, obj)
	tree := &Tree{Root: root, index: map[string]*Node{}}
	tree.walkIndex(root)
	return tree, nil
}

// LoadFile reads a JSON isolation specification from a file.
func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening specification: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Find returns the node at the given absolute path, or nil.
func (t *Tree) Find(path string) *Node {
	return t.index[path]
}

// Nodes returns every node in the tree in preorder document order.
func (t *Tree) Nodes() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
	return out
}

func (t *Tree) walkIndex(n *Node) {
	t.index[n.Path] = n
	for _, c := range n.Children {
		t.walkIndex(c)
	}
}

// Prop returns the named property value if present.
func (n *Node) Prop(name string) (any, bool) {
	v, ok := n.propValues[name]
	return v, ok
}

// PropNames returns the node's property names in document order.
func (n *Node) PropNames() []string {
	return n.propNames
}

// Records returns the named property as a list of records, if the property
// exists and every element is a JSON object. This is the shape carried by
// "destinations" and "access" properties.
func (n *Node) Records(name string) ([]Record, bool) {
	v, ok := n.propValues[name]
	if !ok {
		return nil, false
	}
	return asRecords(v)
}

// Child returns the named child node, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func asRecords(v any) ([]Record, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Record, 0, len(list))
	for _, e := range list {
		rec, ok := e.(Record)
		if !ok {
			return nil, false
		}
		out = append(out, rec)
	}
	return out, true
}

// object is an order-preserving decoded JSON object.
type object struct {
	keys   []string
	values map[string]any
}

// decodeValue decodes one JSON value from dec, keeping object key order.
// encoding/json's map decoding would randomize key order, which would make
// tree walks (and therefore the output) nondeterministic.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &object{values: map[string]any{}}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is not a string: %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.values[key]; !dup {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = val
		}
		if _, err := dec.Token(); err != nil { // consume '}'
			return nil, err
		}
		return obj, nil
	case '[':
		var list []any
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil { // consume ']'
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// buildNode converts a decoded object into a tree node. Object-valued keys
// become children; everything else becomes a property. Objects nested inside
// arrays stay as records, not nodes.
func buildNode(name, path string, parent *Node, obj *object) *Node {
	n := &Node{
		Name:       name,
		Path:       path,
		Parent:     parent,
		propValues: map[string]any{},
	}
	for _, key := range obj.keys {
		val := obj.values[key]
		if child, ok := val.(*object); ok {
			childPath := path + key
			if !strings.HasSuffix(path, "/") {
				childPath = path + "/" + key
			}
			n.Children = append(n.Children, buildNode(key, childPath, n, child))
			continue
		}
		n.propNames = append(n.propNames, key)
		n.propValues[key] = flatten(val)
	}
	return n
}

// flatten rewrites decoded values for property storage: ordered objects
// become Records, arrays are flattened element-wise.
func flatten(v any) any {
	switch t := v.(type) {
	case *object:
		rec := Record{}
		for _, k := range t.keys {
			rec[k] = flatten(t.values[k])
		}
		return rec
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = flatten(e)
		}
		return out
	default:
		return v
	}
}

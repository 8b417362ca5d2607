package domains

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Marshal serializes the domain tree to YAML. The document is built node by
// node so the output is byte-identical across runs: domains appear in
// specification order, flags in sorted order, and list fields only when
// populated.
func Marshal(t *Tree) ([]byte, error) {
	root := mappingNode()
	appendKey(root, "domains", domainsNode(t.Domains))

	out, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("marshaling domain tree: %w", err)
	}
	return out, nil
}

// WriteFile serializes the domain tree and writes it to path.
func WriteFile(t *Tree, path string) error {
	data, err := Marshal(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing domain file: %w", err)
	}
	return nil
}

func domainsNode(list []*Domain) *yaml.Node {
	m := mappingNode()
	for _, d := range list {
		appendKey(m, d.Name, domainNode(d))
	}
	return m
}

func domainNode(d *Domain) *yaml.Node {
	m := mappingNode()
	appendKey(m, "compatible", scalarString(Compatible))
	appendKey(m, "id", scalarInt(d.ID))
	if len(d.Access) > 0 {
		m.Content = append(m.Content, scalarString("access"), accessNode(d.Access))
	}
	if len(d.Memory) > 0 {
		m.Content = append(m.Content, scalarString("memory"), memoryNode(d.Memory))
	}
	if len(d.Sram) > 0 {
		m.Content = append(m.Content, scalarString("sram"), memoryNode(d.Sram))
	}
	if len(d.Cpus) > 0 {
		m.Content = append(m.Content, scalarString("cpus"), cpusNode(d.Cpus))
	}
	if len(d.Domains) > 0 {
		m.Content = append(m.Content, scalarString("domains"), domainsNode(d.Domains))
	}
	return m
}

func accessNode(entries []AccessEntry) *yaml.Node {
	seq := sequenceNode()
	for _, e := range entries {
		m := mappingNode()
		appendKey(m, "dev", scalarString(e.Dev))
		appendKey(m, "spec_name", scalarString(e.SpecName))
		appendKey(m, "label", scalarString(e.Label))
		appendKey(m, "flags", flagsNode(e.Flags))
		seq.Content = append(seq.Content, m)
	}
	return seq
}

func memoryNode(entries []MemoryEntry) *yaml.Node {
	seq := sequenceNode()
	for _, e := range entries {
		m := mappingNode()
		appendKey(m, "dev", scalarString(e.Dev))
		appendKey(m, "spec_name", scalarString(e.SpecName))
		appendKey(m, "start", scalarString(e.Start))
		appendKey(m, "size", scalarString(e.Size))
		seq.Content = append(seq.Content, m)
	}
	return seq
}

func cpusNode(entries []CpuEntry) *yaml.Node {
	seq := sequenceNode()
	for _, e := range entries {
		m := mappingNode()
		appendKey(m, "dev", scalarString(e.Dev))
		appendKey(m, "spec_name", scalarString(e.SpecName))
		appendKey(m, "cluster", scalarString(e.Cluster))
		appendKey(m, "cpumask", scalarString(e.CpuMask))

		mode := mappingNode()
		appendKey(mode, "secure", scalarBool(e.Mode.Secure))
		if e.Mode.EL != "" {
			appendKey(mode, "el", scalarString(e.Mode.EL))
		}
		appendKey(m, "mode", mode)
		seq.Content = append(seq.Content, m)
	}
	return seq
}

func flagsNode(flags FlagSet) *yaml.Node {
	m := mappingNode()
	for _, name := range flags.SortedNames() {
		appendKey(m, name, scalarBool(flags[name]))
	}
	return m
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequenceNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func appendKey(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalarString(key), value)
}

func scalarString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func scalarInt(v uint64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(v, 10)}
}

func scalarBool(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

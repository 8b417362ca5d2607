package resolver

import (
	"fmt"

	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/spectree"
)

const designSubsystemsPath = "/design/subsystems"

// buildDomains walks every subsystem in the specification and produces the
// output domain tree. A subsystem without an access list is a localized
// error: the domain is still produced, just without resolved lists.
func (c *Compiler) buildDomains() (*domains.Tree, error) {
	subsystems := c.spec.Find(designSubsystemsPath)
	if subsystems == nil {
		return nil, fmt.Errorf("no %s section in isolation specification", designSubsystemsPath)
	}

	tree := &domains.Tree{}
	for _, node := range subsystems.Children {
		id, ok := nodeID(node)
		if !ok {
			c.log.Error("subsystem has no id", "subsystem", node.Path)
		}
		tree.Domains = append(tree.Domains, c.buildDomain(node, id))
	}

	return tree, nil
}

// buildDomain creates one domain from a subsystem node and recurses into a
// nested "domains" child if present. Nested domains inherit the parent id
// unless they declare their own.
func (c *Compiler) buildDomain(node *spectree.Node, id uint64) *domains.Domain {
	c.log.Info("processing domain", "subsystem", node.Name, "id", id)

	domain := &domains.Domain{Name: node.Name, ID: id}

	access, ok := node.Records("access")
	if !ok {
		c.log.Error("no access list in subsystem", "subsystem", node.Path)
	} else {
		lists := c.resolveAccess(access)
		domain.Access = lists.access
		domain.Cpus = lists.cpus
		domain.Memory = lists.memory
		domain.Sram = lists.sram
	}

	if nested := node.Child("domains"); nested != nil {
		for _, sub := range nested.Children {
			subID, ok := nodeID(sub)
			if !ok {
				subID = id
			}
			domain.Domains = append(domain.Domains, c.buildDomain(sub, subID))
		}
	}

	return domain
}

func nodeID(node *spectree.Node) (uint64, bool) {
	v, ok := node.Prop("id")
	if !ok {
		return 0, false
	}
	return spectree.AsUint(v)
}

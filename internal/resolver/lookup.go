package resolver

import "github.com/embeddedkit/isogen/internal/spectree"

// destinationNodes returns every node in the specification tree carrying a
// destinations record list, in document order.
func (c *Compiler) destinationNodes() []*spectree.Node {
	var out []*spectree.Node
	for _, n := range c.spec.Nodes() {
		if _, ok := n.Records("destinations"); ok {
			out = append(out, n)
		}
	}
	return out
}

// lookupDestinations collects every destination record whose name matches
// one of the requested names, scanning the whole specification tree. A name
// may resolve to zero, one, or several records; callers handle all three.
func (c *Compiler) lookupDestinations(names []string) []spectree.Record {
	nodes := c.destinationNodes()

	var out []spectree.Record
	for _, want := range names {
		for _, n := range nodes {
			records, _ := n.Records("destinations")
			for _, rec := range records {
				if name, ok := rec.String("name"); ok && name == want {
					out = append(out, rec)
				}
			}
		}
	}

	c.log.Debug("destination lookup", "requested", names, "found", len(out))
	return out
}

package resolver

import (
	"github.com/embeddedkit/isogen/internal/domains"
	"github.com/embeddedkit/isogen/internal/spectree"
)

// deviceFlags normalizes the heterogeneous flag shapes found in an isolation
// specification into a flag set. Two shapes exist: an access record with a
// nested "flags" mapping, and a tree node carrying either a "flags" property
// or a "flags" child node. A flag only appears in the result when its value
// is truthy; flags set to false or empty are dropped, never stored as false.
// Unrecognized shapes yield an empty set, they never fail the entry.
func deviceFlags(defs any) domains.FlagSet {
	out := domains.FlagSet{}

	switch src := defs.(type) {
	case spectree.Record:
		flags, ok := src.Record("flags")
		if !ok {
			return out
		}
		for name, value := range flags {
			if spectree.Truthy(value) {
				out[name] = true
			}
		}

	case *spectree.Node:
		if v, ok := src.Prop("flags"); ok {
			if rec, ok := v.(spectree.Record); ok {
				for name, value := range rec {
					if spectree.Truthy(value) {
						out[name] = true
					}
				}
			}
			return out
		}
		if child := src.Child("flags"); child != nil {
			for _, name := range child.PropNames() {
				v, _ := child.Prop(name)
				if spectree.Truthy(v) {
					out[name] = true
				}
			}
		}
	}

	return out
}

package resolver

import (
	"errors"
	"fmt"

	"github.com/embeddedkit/isogen/internal/spectree"
)

// ErrDefaultNotFound reports that a same_as_default reference has no entry
// in the default-settings subsystem.
var ErrDefaultNotFound = errors.New("default settings not found")

// ErrRecursiveDefault reports a same_as_default entry whose target is itself
// an indirection. Chained defaults are unsupported input, not a silently
// one-level-resolved feature.
var ErrRecursiveDefault = errors.New("recursive same_as_default reference")

const defaultSubsystemPath = "/default_settings/subsystems"

// deviceDefaults resolves a same_as_default indirection: it locates the
// subsystem literally named "default" under the default-settings section and
// returns the first access entry whose name matches deviceName.
func (c *Compiler) deviceDefaults(deviceName string) (spectree.Record, error) {
	subsystems := c.spec.Find(defaultSubsystemPath)
	if subsystems == nil {
		return nil, fmt.Errorf("%w: no %s section", ErrDefaultNotFound, defaultSubsystemPath)
	}

	defaultSubsystem := subsystems.Child("default")
	if defaultSubsystem == nil {
		return nil, fmt.Errorf("%w: no default subsystem", ErrDefaultNotFound)
	}

	access, ok := defaultSubsystem.Records("access")
	if !ok {
		return nil, fmt.Errorf("%w: default subsystem has no access list", ErrDefaultNotFound)
	}

	for _, entry := range access {
		name, _ := entry.String("name")
		if name != deviceName {
			continue
		}
		if entry.Has("same_as_default") {
			return nil, fmt.Errorf("%w: %q", ErrRecursiveDefault, deviceName)
		}
		return entry, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrDefaultNotFound, deviceName)
}

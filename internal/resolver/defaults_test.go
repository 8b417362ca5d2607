package resolver

import (
	"errors"
	"testing"
)

const testDefaultsSpec = `{
	"design": {"subsystems": {}},
	"default_settings": {
		"subsystems": {
			"default": {
				"access": [
					{"name": "can0", "type": "device", "destinations": ["can0"],
					 "flags": {"requested": true}},
					{"name": "looped", "same_as_default": "can0"}
				]
			}
		}
	}
}`

func TestDeviceDefaultsLookup(t *testing.T) {
	c := newTestCompiler(t, testDefaultsSpec, `name: /`, Options{})

	rec, err := c.deviceDefaults("can0")
	if err != nil {
		t.Fatalf("deviceDefaults: %v", err)
	}
	if dests, ok := rec.Strings("destinations"); !ok || len(dests) != 1 || dests[0] != "can0" {
		t.Errorf("resolved record destinations: got %v", dests)
	}
}

func TestDeviceDefaultsNotFound(t *testing.T) {
	c := newTestCompiler(t, testDefaultsSpec, `name: /`, Options{})

	_, err := c.deviceDefaults("nosuch")
	if !errors.Is(err, ErrDefaultNotFound) {
		t.Fatalf("got %v, want ErrDefaultNotFound", err)
	}
}

func TestDeviceDefaultsNoSection(t *testing.T) {
	c := newTestCompiler(t, `{"design": {"subsystems": {}}}`, `name: /`, Options{})

	_, err := c.deviceDefaults("can0")
	if !errors.Is(err, ErrDefaultNotFound) {
		t.Fatalf("got %v, want ErrDefaultNotFound", err)
	}
}

func TestDeviceDefaultsRejectsRecursion(t *testing.T) {
	c := newTestCompiler(t, testDefaultsSpec, `name: /`, Options{})

	// The default entry for "looped" is itself an indirection. One level of
	// resolution is the contract; chains are rejected.
	_, err := c.deviceDefaults("looped")
	if !errors.Is(err, ErrRecursiveDefault) {
		t.Fatalf("got %v, want ErrRecursiveDefault", err)
	}
}

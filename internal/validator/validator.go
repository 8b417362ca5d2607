// Package validator enforces the data contracts at both ends of the
// compilation: the isolation specification coming in, and the domain tree
// going out. The stance is crash early and loud: a specification that
// does not match the schema aborts the run before any domain is processed,
// and an output that does not match its schema is a compiler bug, not
// something to paper over.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed spec_schema.cue
var specSchemaFS embed.FS

//go:embed output_schema.cue
var outputSchemaFS embed.FS

// SpecValidator validates raw isolation-specification JSON against the
// embedded CUE schema before the tree is built.
type SpecValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewSpecValidator loads the embedded specification schema.
func NewSpecValidator() (*SpecValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := specSchemaFS.ReadFile("spec_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded spec schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling spec schema: %w", schema.Err())
	}

	return &SpecValidator{ctx: ctx, schema: schema}, nil
}

// ValidateJSON checks raw specification bytes against #IsolationSpec.
func (v *SpecValidator) ValidateJSON(jsonBytes []byte) error {
	return validate(v.ctx, v.schema, jsonBytes, "#IsolationSpec")
}

// ValidationErrors returns every schema violation for the given bytes, one
// message per violation, or nil when the document is valid.
func (v *SpecValidator) ValidationErrors(jsonBytes []byte) []string {
	err := v.ValidateJSON(jsonBytes)
	if err == nil {
		return nil
	}
	var out []string
	for _, e := range errors.Errors(err) {
		out = append(out, e.Error())
	}
	return out
}

// OutputValidator validates the compiled domain tree against the output
// schema before it is written.
type OutputValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewOutputValidator loads the embedded output schema.
func NewOutputValidator() (*OutputValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := outputSchemaFS.ReadFile("output_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded output schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling output schema: %w", schema.Err())
	}

	return &OutputValidator{ctx: ctx, schema: schema}, nil
}

// Validate checks the compiled domain tree against #DomainTree.
func (v *OutputValidator) Validate(data any) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling output to JSON: %w", err)
	}
	return validate(v.ctx, v.schema, jsonBytes, "#DomainTree")
}

func validate(ctx *cue.Context, schema cue.Value, jsonBytes []byte, defName string) error {
	dataValue := ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}

	def := schema.LookupPath(cue.ParsePath(defName))
	if def.Err() != nil {
		return fmt.Errorf("looking up %s definition: %w", defName, def.Err())
	}

	unified := def.Unify(dataValue)
	// Concrete validation: plain Validate treats an absent required field
	// as merely incomplete and lets it through.
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

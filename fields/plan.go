package fields

import (
	"encoding/json"

	"github.com/c360studio/openai-client/cascade"
	"github.com/c360studio/openai-client/output"
)

// Fields holds every resolved value of one run.
type Fields struct {
	Key          cascade.Resolved[string]
	Organization cascade.Resolved[string]
	Output       cascade.Resolved[output.Sink]
	Parameter    cascade.Resolved[json.RawMessage]
	Path         cascade.Resolved[string]
	Method       cascade.Resolved[string]
}

// Resolve runs the resolution plan in a fixed order: Key, Path,
// Organization, Parameter, Method, Output. Method depends on whether
// Parameter was found and always runs after it. A missing key or path stops
// the plan before the output file is created or truncated.
func (r *Resolver) Resolve(in Inputs) (*Fields, error) {
	var f Fields
	var err error

	if f.Key, err = r.Key(in); err != nil {
		return nil, err
	}
	if f.Path, err = r.Path(in); err != nil {
		return nil, err
	}
	f.Organization = r.Organization(in)
	f.Parameter = r.Parameter(in)
	f.Method = r.Method(in, f.Parameter.Present)
	f.Output = r.Output(in)

	r.logger.Debug("Resolved request fields",
		"key_source", f.Key.Source,
		"organization_source", f.Organization.Source,
		"output", output.Describe(f.Output.Value),
		"parameter_source", f.Parameter.Source,
		"path", f.Path.Value,
		"method", f.Method.Value,
		"method_source", f.Method.Source)
	return &f, nil
}

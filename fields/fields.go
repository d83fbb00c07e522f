// Package fields resolves every value a request needs from the command line,
// the environment and well-known files.
//
// Each field is declared as data: an ordered list of sources, a validator and
// what happens when the sources run out. The cascade package does the rest.
//
//	Key           --key-file, $OPENAI_API_KEY, credential files     fatal
//	Organization  --org-file, --key-file, $OPENAI_ORG_KEY, files    omitted
//	Parameter     --parameter-file, parameter files                 omitted
//	Method        --method                                          POST with parameters, else GET
//	Path          PATH argument                                     fatal
//	Output        --output-file                                     stdout
package fields

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/c360studio/openai-client/cascade"
	"github.com/c360studio/openai-client/config"
	"github.com/c360studio/openai-client/output"
	"github.com/c360studio/openai-client/validate"
)

// Inputs are the values taken from the command line. Empty means not provided.
type Inputs struct {
	KeyFile       string
	OrgFile       string
	OutputFile    string
	ParameterFile string
	Method        string
	Path          string
}

// Resolver resolves individual fields.
type Resolver struct {
	cfg    *config.Config
	sys    System
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSystem replaces filesystem and environment access.
// Unset members keep their OS defaults.
func WithSystem(sys System) Option {
	return func(r *Resolver) {
		r.sys = sys.withDefaults()
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver using the env var names and default file
// lists of cfg. A nil cfg uses config.DefaultConfig.
func NewResolver(cfg *config.Config, opts ...Option) *Resolver {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	r := &Resolver{
		cfg:    cfg,
		sys:    OSSystem(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) fileSources(paths ...string) []cascade.Source {
	srcs := make([]cascade.Source, 0, len(paths))
	for _, p := range paths {
		srcs = append(srcs, cascade.File(r.sys.ReadFile, p))
	}
	return srcs
}

// Key resolves the API key. Exhaustion is fatal.
func (r *Resolver) Key(in Inputs) (cascade.Resolved[string], error) {
	var sources []cascade.Source
	sources = append(sources, cascade.File(r.sys.ReadFile, in.KeyFile))
	sources = append(sources, cascade.Env(r.sys.LookupEnv, r.cfg.Credentials.KeyEnv))
	sources = append(sources, r.fileSources(r.sys.expandPaths(r.cfg.Credentials.Files)...)...)

	return cascade.Field[string]{
		Name:     "API key",
		Sources:  sources,
		Validate: validate.Key,
	}.Resolve(r.logger)
}

// Organization resolves the organization ID. It never fails: when no source
// holds one, the result is not Present and the header is left out.
func (r *Resolver) Organization(in Inputs) cascade.Resolved[string] {
	var sources []cascade.Source
	sources = append(sources, cascade.File(r.sys.ReadFile, in.OrgFile))
	sources = append(sources, cascade.File(r.sys.ReadFile, in.KeyFile))
	sources = append(sources, cascade.Env(r.sys.LookupEnv, r.cfg.Credentials.OrganizationEnv))
	sources = append(sources, r.fileSources(r.sys.expandPaths(r.cfg.Credentials.Files)...)...)

	res, _ := cascade.Field[string]{
		Name:     "organization ID",
		Sources:  sources,
		Validate: validate.Organization,
		Optional: true,
	}.Resolve(r.logger)
	return res
}

// Parameter resolves the JSON request body. It never fails: when no source
// holds valid JSON, the result is not Present.
func (r *Resolver) Parameter(in Inputs) cascade.Resolved[json.RawMessage] {
	var sources []cascade.Source
	sources = append(sources, cascade.File(r.sys.ReadFile, in.ParameterFile))
	sources = append(sources, r.fileSources(r.sys.expandPaths(r.cfg.Parameters.Files)...)...)

	res, _ := cascade.Field[json.RawMessage]{
		Name:     "API request parameters",
		Sources:  sources,
		Validate: parseParameter,
		Optional: true,
	}.Resolve(r.logger)
	return res
}

// Method resolves the HTTP method. Without a usable --method it defaults to
// POST when parameters were resolved and to GET otherwise, so Parameter must
// be resolved first.
func (r *Resolver) Method(in Inputs, parameterPresent bool) cascade.Resolved[string] {
	res, _ := cascade.Field[string]{
		Name:     "API request method",
		Sources:  []cascade.Source{cascade.Literal("argument <METHOD>", in.Method)},
		Validate: parseMethod,
		Fallback: func() cascade.Resolved[string] {
			if parameterPresent {
				r.logger.Info("The API request parameters were fetched successfully")
				return cascade.Resolved[string]{Value: http.MethodPost, Source: "default for requests with parameters"}
			}
			r.logger.Info("The API request parameters were not fetched successfully")
			return cascade.Resolved[string]{Value: http.MethodGet, Source: "default for requests without parameters"}
		},
	}.Resolve(r.logger)
	return res
}

// Path resolves the request path from the PATH argument. There is no other
// source and exhaustion is fatal.
func (r *Resolver) Path(in Inputs) (cascade.Resolved[string], error) {
	return cascade.Field[string]{
		Name:     "API request path",
		Sources:  []cascade.Source{cascade.Literal("argument <PATH>", in.Path)},
		Validate: validate.Path,
	}.Resolve(r.logger)
}

// Output resolves the output sink. A file that cannot be created falls back
// to standard output.
func (r *Resolver) Output(in Inputs) cascade.Resolved[output.Sink] {
	res, _ := cascade.Field[output.Sink]{
		Name:    "output channel",
		Sources: []cascade.Source{cascade.Literal(fmt.Sprintf("output file %q", in.OutputFile), in.OutputFile)},
		Validate: func(path string) (output.Sink, error) {
			return output.NewFileSink(path)
		},
		Fallback: func() cascade.Resolved[output.Sink] {
			r.logger.Info("Piped the output channel to stdout")
			return cascade.Resolved[output.Sink]{Value: output.StdoutSink{W: r.sys.Stdout}, Source: "stdout"}
		},
	}.Resolve(r.logger)
	if res.Value.IsFile() {
		r.logger.Info("Created the output channel", "path", in.OutputFile)
	}
	return res
}

func parseParameter(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if !json.Valid([]byte(trimmed)) {
		var v any
		// Unmarshal reports where the document is broken; Valid does not.
		if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return nil, fmt.Errorf("invalid JSON")
	}
	return json.RawMessage(trimmed), nil
}

var knownMethods = []string{
	http.MethodConnect,
	http.MethodDelete,
	http.MethodGet,
	http.MethodHead,
	http.MethodOptions,
	http.MethodPatch,
	http.MethodPost,
	http.MethodPut,
	http.MethodTrace,
}

func parseMethod(text string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(text))
	for _, known := range knownMethods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown HTTP method %q", text)
}

package validate

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var routeManifest []byte

// manifest mirrors the part of an OpenAPI document the route table needs.
// Paths stays a node so the document order of the routes is kept.
type manifest struct {
	Paths yaml.Node `yaml:"paths"`
}

var (
	routesOnce  sync.Once
	routes      []string
	routeRegexp *regexp.Regexp
	routesErr   error
)

// placeholderPattern matches an OpenAPI path template variable such as {model}.
var placeholderPattern = regexp.MustCompile(`\{[^{}]*\}`)

// Path returns the route segment of path that matches the API route table.
// A scheme, host, version prefix, query string or fragment around the route is
// discarded, so "chat/completions", "/chat/completions" and
// "https://api.openai.com/v1/chat/completions" all yield "chat/completions".
func Path(path string) (string, error) {
	re, err := routeTable()
	if err != nil {
		return "", err
	}
	path, _, _ = strings.Cut(path, "#")
	path, _, _ = strings.Cut(path, "?")
	m := re.FindString(path)
	if m == "" {
		return "", fmt.Errorf("invalid format of OpenAI API request path %q: %w", path, ErrNoMatch)
	}
	return m, nil
}

// Routes returns the route templates of the embedded manifest without their
// leading slash, in document order.
func Routes() ([]string, error) {
	if _, err := routeTable(); err != nil {
		return nil, err
	}
	out := make([]string, len(routes))
	copy(out, routes)
	return out, nil
}

func routeTable() (*regexp.Regexp, error) {
	routesOnce.Do(func() {
		routes, routesErr = parseRoutes(routeManifest)
		if routesErr != nil {
			return
		}
		routeRegexp, routesErr = compileRoutes(routes)
	})
	return routeRegexp, routesErr
}

// parseRoutes reads the keys of the manifest's paths mapping.
func parseRoutes(data []byte) ([]string, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse route manifest: %w", err)
	}
	if m.Paths.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse route manifest: paths is not a mapping")
	}

	var out []string
	// Mapping content alternates key and value nodes.
	for i := 0; i+1 < len(m.Paths.Content); i += 2 {
		key := strings.TrimPrefix(m.Paths.Content[i].Value, "/")
		if key == "" {
			continue
		}
		out = append(out, key)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parse route manifest: no routes")
	}
	return out, nil
}

// compileRoutes builds one alternation where every route is anchored at the
// end of the input and each template variable matches any run of characters.
func compileRoutes(templates []string) (*regexp.Regexp, error) {
	alternatives := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		alternatives = append(alternatives, "("+templateExpr(tmpl)+"$)")
	}
	re, err := regexp.Compile("(" + strings.Join(alternatives, "|") + ")")
	if err != nil {
		return nil, fmt.Errorf("compile route table: %w", err)
	}
	return re, nil
}

func templateExpr(tmpl string) string {
	var b strings.Builder
	last := 0
	for _, loc := range placeholderPattern.FindAllStringIndex(tmpl, -1) {
		b.WriteString(regexp.QuoteMeta(tmpl[last:loc[0]]))
		b.WriteString(".*")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(tmpl[last:]))
	return b.String()
}

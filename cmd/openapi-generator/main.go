// Package main provides a command-line tool that reduces a published OpenAPI
// document of the OpenAI API to the route manifest embedded by the validate
// package. Only the document header and, for every path, the HTTP operations
// it accepts are kept. Paths stay in document order.
//
// Usage:
//
//	openapi-generator -i openapi.yaml -o validate/routes.yaml
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func main() {
	in := flag.String("i", "", "Path of the OpenAPI document (YAML or JSON)")
	out := flag.String("o", "./validate/routes.yaml", "Output path for the route manifest")
	flag.Parse()

	if *in == "" {
		log.Fatalf("Missing -i: path of the OpenAPI document")
	}

	log.Printf("OpenAI route manifest generator")
	log.Printf("  Input:  %s", *in)
	log.Printf("  Output: %s", *out)

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("Failed to read OpenAPI document: %v", err)
	}

	m, err := extractManifest(data)
	if err != nil {
		log.Fatalf("Failed to extract routes: %v", err)
	}
	log.Printf("Found %d routes", len(m.Routes))

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := writeYAMLFile(*out, m.node()); err != nil {
		log.Fatalf("Failed to write route manifest: %v", err)
	}

	log.Printf("Generated route manifest: %s", *out)
}

// Manifest is the reduced OpenAPI document.
type Manifest struct {
	OpenAPI string
	Title   string
	Version string
	Servers []string
	Routes  []Route
}

// Route is one path template and its operations.
type Route struct {
	Path    string
	Methods []string
}

// httpMethods are the operation keys of an OpenAPI path item.
var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

// extractManifest reads the header and the paths of an OpenAPI document.
// A path item is either a mapping of operations or, as in a manifest this
// tool produced earlier, a list of operation names.
func extractManifest(data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse OpenAPI document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse OpenAPI document: not a mapping")
	}
	root := doc.Content[0]

	m := &Manifest{OpenAPI: "3.0.0"}
	if v := lookup(root, "openapi"); v != nil {
		m.OpenAPI = v.Value
	}
	if info := lookup(root, "info"); info != nil {
		if v := lookup(info, "title"); v != nil {
			m.Title = v.Value
		}
		if v := lookup(info, "version"); v != nil {
			m.Version = v.Value
		}
	}
	if servers := lookup(root, "servers"); servers != nil && servers.Kind == yaml.SequenceNode {
		for _, s := range servers.Content {
			if u := lookup(s, "url"); u != nil {
				m.Servers = append(m.Servers, u.Value)
			}
		}
	}

	paths := lookup(root, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("OpenAPI document has no paths")
	}

	for i := 0; i+1 < len(paths.Content); i += 2 {
		path, item := paths.Content[i].Value, paths.Content[i+1]
		if !strings.HasPrefix(path, "/") {
			continue
		}

		var methods []string
		switch item.Kind {
		case yaml.MappingNode:
			for j := 0; j+1 < len(item.Content); j += 2 {
				if key := strings.ToLower(item.Content[j].Value); httpMethods[key] {
					methods = append(methods, key)
				}
			}
		case yaml.SequenceNode:
			for _, n := range item.Content {
				if key := strings.ToLower(n.Value); httpMethods[key] {
					methods = append(methods, key)
				}
			}
		}
		if len(methods) == 0 {
			continue
		}
		m.Routes = append(m.Routes, Route{Path: path, Methods: methods})
	}

	if len(m.Routes) == 0 {
		return nil, fmt.Errorf("OpenAPI document has no operations")
	}
	return m, nil
}

// lookup returns the value of key in a mapping node.
func lookup(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// node renders the manifest with operation lists in flow style.
func (m *Manifest) node() *yaml.Node {
	scalar := func(v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	}
	mapping := func(kv ...*yaml.Node) *yaml.Node {
		return &yaml.Node{Kind: yaml.MappingNode, Content: kv}
	}

	info := mapping(scalar("title"), scalar(m.Title), scalar("version"), scalar(m.Version))

	servers := &yaml.Node{Kind: yaml.SequenceNode}
	for _, s := range m.Servers {
		servers.Content = append(servers.Content, mapping(scalar("url"), scalar(s)))
	}

	paths := mapping()
	for _, r := range m.Routes {
		ops := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, method := range r.Methods {
			ops.Content = append(ops.Content, scalar(method))
		}
		paths.Content = append(paths.Content, scalar(r.Path), ops)
	}

	return mapping(
		scalar("openapi"), scalar(m.OpenAPI),
		scalar("info"), info,
		scalar("servers"), servers,
		scalar("paths"), paths,
	)
}

// writeYAMLFile writes a node to a YAML file.
func writeYAMLFile(filename string, n *yaml.Node) error {
	var buf bytes.Buffer
	buf.WriteString(strings.TrimSpace(`
# Route table of the OpenAI REST API, reduced to the paths of the published
# OpenAPI document. Keys keep the document's leading slash and {placeholder}
# syntax; values list the operations the route accepts.
# Generated by openapi-generator; regenerate instead of editing by hand.
`) + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

package mcpserver

import (
	"encoding/json"
	"strings"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	publisherKey   = "io.modelcontextprotocol.registry/publisher-provided"
)

// Manifest is the registry entry (server.json) for `pymetrics mcp`. The
// tools and prompts the server registers ride along as publisher metadata
// so a registry can list them without starting the server.
type Manifest struct {
	Schema      string                  `json:"$schema"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Version     string                  `json:"version"`
	Repository  *Repository             `json:"repository,omitempty"`
	Packages    []Package               `json:"packages,omitempty"`
	Meta        map[string]Capabilities `json:"_meta,omitempty"`
}

// Repository points at the source repository.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package is the OCI image that serves the tools over stdio.
type Package struct {
	RegistryType     string     `json:"registryType"`
	Identifier       string     `json:"identifier"`
	PackageArguments []Argument `json:"packageArguments,omitempty"`
	Transport        Transport  `json:"transport"`
}

// Argument is one command-line argument passed to the image.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Transport names the wire between client and server.
type Transport struct {
	Type string `json:"type"`
}

// Capabilities lists what the server offers.
type Capabilities struct {
	Tools   []Entry `json:"tools"`
	Prompts []Entry `json:"prompts"`
}

// Entry is a tool or prompt name with a one-line summary.
type Entry struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// capabilities describes the registered tools, using the first line of each
// description, and the embedded prompts.
func capabilities() (Capabilities, error) {
	var caps Capabilities
	for _, tool := range tools() {
		summary, _, _ := strings.Cut(tool.Description, "\n")
		caps.Tools = append(caps.Tools, Entry{Name: tool.Name, Summary: summary})
	}

	defs, err := loadPrompts()
	if err != nil {
		return Capabilities{}, err
	}
	for _, def := range defs {
		caps.Prompts = append(caps.Prompts, Entry{Name: def.Name, Summary: def.Description})
	}
	return caps, nil
}

// GenerateManifest renders the manifest for version ("0.0.0" when empty).
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}
	caps, err := capabilities()
	if err != nil {
		return nil, err
	}

	m := Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/pymetrics",
		Description: "Static code metrics for Python: complexity, Halstead, maintainability, size and naming",
		Version:     version,
		Repository:  &Repository{URL: "https://github.com/panbanda/pymetrics", Source: "github"},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       "ghcr.io/panbanda/pymetrics:" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			Transport:        Transport{Type: "stdio"},
		}},
		Meta: map[string]Capabilities{publisherKey: caps},
	}
	return json.MarshalIndent(m, "", "  ")
}

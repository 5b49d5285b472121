// Package bootstrap picks the guest runtime backend for a page.
//
// A Manifest declares the available backends. The page URL carries a token
// naming one of them, either as the hash fragment ("page.html#py") or as a
// query parameter ("page.html?runtime=py"). Selection resolves the token to
// a backend, and Toggle yields the URL of the next backend so the page can be
// reloaded on the other runtime.
package bootstrap

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Backend describes one guest runtime.
type Backend struct {
	Token    string `yaml:"token" json:"token" validate:"required,alphanum" jsonschema:"description=URL token selecting this backend"`
	Label    string `yaml:"label" json:"label" validate:"required" jsonschema:"description=Name shown on the toggle control"`
	Language string `yaml:"language" json:"language" validate:"required,oneof=python javascript"`
	Module   string `yaml:"module" json:"module" validate:"required" jsonschema:"description=Path to the WASI interpreter binary"`
	Argv0    string `yaml:"argv0,omitempty" json:"argv0,omitempty"`
	Entry    string `yaml:"entry" json:"entry" validate:"required" jsonschema:"description=Guest script run at startup"`
	Config   string `yaml:"config,omitempty" json:"config,omitempty"`
	Source   string `yaml:"source,omitempty" json:"source,omitempty" validate:"omitempty,url" jsonschema:"description=Download URL of the module"`
}

// Manifest lists the backends of a page.
type Manifest struct {
	Default  string    `yaml:"default" json:"default" validate:"required"`
	Param    string    `yaml:"param,omitempty" json:"param,omitempty"`
	Backends []Backend `yaml:"backends" json:"backends" validate:"required,min=1,dive"`
}

// DefaultManifest returns the MicroPython/Python pair running kitchen.py.
func DefaultManifest() Manifest {
	return Manifest{
		Default: "mpy",
		Param:   "runtime",
		Backends: []Backend{
			{
				Token:    "mpy",
				Label:    "MicroPython",
				Language: "python",
				Module:   ".pagekit/runtimes/micropython.wasm",
				Argv0:    "micropython",
				Entry:    "kitchen.py",
				Config:   "kitchen.toml",
			},
			{
				Token:    "py",
				Label:    "Python",
				Language: "python",
				Module:   ".pagekit/runtimes/python.wasm",
				Argv0:    "python",
				Entry:    "kitchen.py",
				Config:   "kitchen.toml",
			},
		},
	}
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks field constraints, token uniqueness and that the default
// names a declared backend.
func (m Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	seen := make(map[string]bool, len(m.Backends))
	for _, b := range m.Backends {
		if seen[b.Token] {
			return fmt.Errorf("manifest validation failed: duplicate token %q", b.Token)
		}
		seen[b.Token] = true
	}
	if !seen[m.Default] {
		return fmt.Errorf("manifest validation failed: default %q: %w", m.Default, ErrUnknownRuntime)
	}
	return nil
}

// Backend returns the backend for token.
func (m Manifest) Backend(token string) (Backend, bool) {
	for _, b := range m.Backends {
		if b.Token == token {
			return b, true
		}
	}
	return Backend{}, false
}

func (m Manifest) param() string {
	if m.Param == "" {
		return "runtime"
	}
	return m.Param
}

// Schema returns the JSON schema of the manifest format.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Manifest{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

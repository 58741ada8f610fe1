package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Manifest lists the services a daemon registers and the notifications it
// subscribes to.
type Manifest struct {
	Services      []ServiceSpec    `toml:"service" yaml:"service"`
	Notifications NotificationSpec `toml:"notifications" yaml:"notifications"`
}

// ServiceSpec is one [[service]] table.
type ServiceSpec struct {
	Name        string `toml:"name" yaml:"name"`
	MaxSessions int    `toml:"max_sessions" yaml:"max_sessions"`
	Kind        string `toml:"kind" yaml:"kind"`
}

// NotificationSpec is the [notifications] table.
type NotificationSpec struct {
	Subscribe []uint32 `toml:"subscribe" yaml:"subscribe"`
}

// maxServiceName is the srv: name limit.
const maxServiceName = 8

// DefaultManifest registers a single echo service.
func DefaultManifest() *Manifest {
	return &Manifest{
		Services: []ServiceSpec{{Name: "echo:u", MaxSessions: 4, Kind: "echo"}},
	}
}

// LoadManifest reads and validates the manifest at path. Files ending in
// .yaml or .yml are YAML, anything else TOML. An empty path yields
// DefaultManifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return DefaultManifest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	parse := ParseManifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parse = ParseManifestYAML
	}
	m, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates a TOML manifest. Unknown keys are
// rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseManifestYAML is ParseManifest for the YAML form of the manifest.
func ParseManifestYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks service names, limits and kinds.
func (m *Manifest) Validate() error {
	if len(m.Services) == 0 {
		return fmt.Errorf("manifest declares no services")
	}
	seen := make(map[string]bool, len(m.Services))
	for i, svc := range m.Services {
		if svc.Name == "" || len(svc.Name) > maxServiceName {
			return fmt.Errorf("service %d: name %q must be 1-%d bytes", i, svc.Name, maxServiceName)
		}
		if seen[svc.Name] {
			return fmt.Errorf("service %q declared twice", svc.Name)
		}
		seen[svc.Name] = true
		if svc.MaxSessions <= 0 {
			return fmt.Errorf("service %q: max_sessions must be positive", svc.Name)
		}
		if svc.Kind == "" {
			return fmt.Errorf("service %q: kind is required", svc.Name)
		}
	}
	return nil
}

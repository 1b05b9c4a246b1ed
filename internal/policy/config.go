package policy

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Entry is one raw rule from the configuration file: a group name or a
// resource full name plus the methods it allows. An omitted or empty methods
// list allows every method.
type Entry struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods,omitempty"`
}

// Config is the raw access configuration as declared in the policy file.
// Both lists are optional; when neither declares anything the server is
// fully permissive.
type Config struct {
	AllowedGroups []Entry `json:"allowed_groups,omitempty"`
	AllowedCRDs   []Entry `json:"allowed_crds,omitempty"`
}

// LoadFile reads and parses an access configuration file. The caller decides
// what an absent path means (an unset flag is the permissive default); a path
// that was explicitly given must exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read access config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse access config %s: %w", path, err)
	}
	return cfg, nil
}

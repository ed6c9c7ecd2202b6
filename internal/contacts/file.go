package contacts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a YAML contacts file:
//
//	contacts:
//	  - name: John Doe
//	    handles: ["+19175551234", "john@example.com"]
type File struct {
	Path string
}

type contactsFile struct {
	Contacts []struct {
		Name    string   `yaml:"name"`
		Handles []string `yaml:"handles"`
	} `yaml:"contacts"`
}

// IsAvailable reports whether the file exists.
func (f File) IsAvailable() bool {
	if f.Path == "" {
		return false
	}
	_, err := os.Stat(f.Path)
	return err == nil
}

// BuildLookup parses the file into a handle -> name map.
func (f File) BuildLookup(context.Context) (map[string]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts file: %w", err)
	}
	var cf contactsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse contacts file %s: %w", f.Path, err)
	}
	out := make(map[string]string)
	for _, c := range cf.Contacts {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		for _, h := range c.Handles {
			h = strings.TrimSpace(h)
			if h == "" {
				continue
			}
			if _, exists := out[h]; !exists {
				out[h] = name
			}
		}
	}
	return out, nil
}

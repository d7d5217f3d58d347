package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseDefinition decodes a YAML template file into a registration request.
func ParseDefinition(data []byte) (RegisterRequest, error) {
	var req RegisterRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return RegisterRequest{}, fmt.Errorf("parse template yaml: %w", err)
	}
	if strings.TrimSpace(req.ProjectType) == "" {
		return RegisterRequest{}, fmt.Errorf("%w: project_type is required", ErrInvalidInput)
	}
	return req, nil
}

// LoadDefinitionFile reads a YAML template file from disk.
func LoadDefinitionFile(path string) (RegisterRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RegisterRequest{}, fmt.Errorf("read template file: %w", err)
	}
	return ParseDefinition(data)
}

// LoadDefinitionDir reads every *.yaml / *.yml file in dir, sorted by name.
func LoadDefinitionDir(dir string) ([]RegisterRequest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	reqs := make([]RegisterRequest, 0, len(names))
	for _, name := range names {
		req, err := LoadDefinitionFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// MarshalDefinition renders a template in the YAML file format accepted by
// ParseDefinition, so an exported version can be edited and registered again.
func MarshalDefinition(tmpl *Template) ([]byte, error) {
	data, err := yaml.Marshal(RegisterRequest{
		ProjectType:       tmpl.ProjectType,
		Name:              tmpl.Name,
		Description:       tmpl.Description,
		EstimatedDuration: tmpl.EstimatedDuration,
		Phases:            tmpl.Phases,
	})
	if err != nil {
		return nil, fmt.Errorf("encode template yaml: %w", err)
	}
	return data, nil
}

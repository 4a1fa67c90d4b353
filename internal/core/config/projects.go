package config

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

//go:embed projects/*.yaml
var builtinProjects embed.FS

// Project is the static description of one participating project.
type Project struct {
	Key          string       `yaml:"-"` // file stem the project was loaded from
	Name         string       `yaml:"name"`
	Summary      string       `yaml:"summary"`
	Description  string       `yaml:"description"`
	Repositories Repositories `yaml:"repositories"`
	Products     Products     `yaml:"products"`
}

// Repository is a GitHub repository ("owner/name") and the labels that mark
// its beginner-friendly issues.
type Repository struct {
	Name string
	Tags []string
}

// Product is a Bugzilla product, optionally narrowed to components.
type Product struct {
	Name       string
	Components []string
}

// Repositories decodes a YAML sequence of {repo: tag} or {repo: [tags]} maps.
type Repositories []Repository

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Repositories) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: repositories must be a list", value.Line)
	}

	index := map[string]int{}
	for _, item := range value.Content {
		var entries map[string]yaml.Node
		if err := item.Decode(&entries); err != nil {
			return fmt.Errorf("line %d: repository entry must be a map: %w", item.Line, err)
		}

		for _, name := range sortedKeys(entries) {
			node := entries[name]
			tags, err := decodeStrings(&node)
			if err != nil {
				return fmt.Errorf("repository %q: %w", name, err)
			}

			if i, ok := index[name]; ok {
				merged := slices.Concat((*r)[i].Tags, tags)
				slices.Sort(merged)
				(*r)[i].Tags = slices.Compact(merged)
				continue
			}
			index[name] = len(*r)
			*r = append(*r, Repository{Name: name, Tags: tags})
		}
	}
	return nil
}

// Products decodes a YAML sequence of product names or {product: [components]} maps.
type Products []Product

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Products) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: products must be a list", value.Line)
	}

	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			*p = append(*p, Product{Name: item.Value})
		case yaml.MappingNode:
			var entries map[string]yaml.Node
			if err := item.Decode(&entries); err != nil {
				return fmt.Errorf("line %d: %w", item.Line, err)
			}
			for _, name := range sortedKeys(entries) {
				node := entries[name]
				components, err := decodeStrings(&node)
				if err != nil {
					return fmt.Errorf("product %q: %w", name, err)
				}
				*p = append(*p, Product{Name: name, Components: components})
			}
		default:
			return fmt.Errorf("line %d: product must be a name or a map of components", item.Line)
		}
	}
	return nil
}

// decodeStrings accepts either a scalar or a sequence of scalars.
func decodeStrings(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Projects is the static project table keyed by project key.
type Projects map[string]Project

// Keys returns the project keys in sorted order.
func (p Projects) Keys() []string {
	return sortedKeys(p)
}

// Lookup returns a project by key, ignoring case.
func (p Projects) Lookup(key string) (Project, bool) {
	if proj, ok := p[key]; ok {
		return proj, true
	}
	for k, proj := range p {
		if strings.EqualFold(k, key) {
			return proj, true
		}
	}
	return Project{}, false
}

// ProjectsFS returns the filesystem projects are loaded from: dir when set,
// otherwise the built-in project list.
func ProjectsFS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(builtinProjects, "projects")
}

// LoadProjects reads every *.yaml / *.yml file under fsys. The file stem is
// the project key.
func LoadProjects(fsys fs.FS) (Projects, error) {
	matches, err := doublestar.Glob(fsys, "**/*.{yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("find project files: %w", err)
	}

	projects := make(Projects, len(matches))
	for _, file := range matches {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read project %s: %w", file, err)
		}

		var proj Project
		if err := yaml.Unmarshal(data, &proj); err != nil {
			return nil, fmt.Errorf("parse project %s: %w", file, err)
		}

		key := strings.TrimSuffix(path.Base(file), path.Ext(file))
		if _, dup := projects[key]; dup {
			return nil, fmt.Errorf("duplicate project key %q (%s)", key, file)
		}
		proj.Key = key
		if proj.Name == "" {
			proj.Name = key
		}
		projects[key] = proj
	}

	return projects, nil
}

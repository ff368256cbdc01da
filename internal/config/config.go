// Package config handles workspace, global and data source configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	WorkspaceDir = ".bibnet"
	SourcesFile  = "sources.yml"
	DataDir      = "data"
)

// WorkspacePath returns the path to the .bibnet directory from a root path.
func WorkspacePath(root string) string {
	return filepath.Join(root, WorkspaceDir)
}

// SourcesPath returns the path to sources.yml from a root path.
func SourcesPath(root string) string {
	return filepath.Join(root, WorkspaceDir, SourcesFile)
}

// DataPath returns the default data directory from a root path.
func DataPath(root string) string {
	return filepath.Join(root, WorkspaceDir, DataDir)
}

// IsWorkspace checks if the given path contains a bibnet workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(WorkspacePath(root))
	return err == nil && info.IsDir()
}

// FindWorkspace walks up from the given path to find a bibnet workspace.
// Returns the workspace root path or an error if not found.
func FindWorkspace(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a bibnet workspace (no %s directory found)", WorkspaceDir)
		}
		abs = parent
	}
}

// Sources holds the configuration tree of every named data source.
type Sources map[string]Tree

// Names returns the source names in sorted order.
func (s Sources) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadSources reads the site, user and workspace sources files and merges them,
// later layers overriding earlier ones. Relative init.location values are
// resolved against the workspace root.
func LoadSources(root string) (Sources, error) {
	var layers []Tree
	for _, path := range []string{SiteSourcesPath(), UserSourcesPath(), SourcesPath(root)} {
		if path == "" {
			continue
		}
		t, err := LoadTree(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, t.Sub("sources"))
	}

	merged := Merge(layers...)
	sources := make(Sources, len(merged))
	for name, raw := range merged {
		m, ok := asMap(raw)
		if !ok {
			return nil, fmt.Errorf("source %q: expected a mapping, got %T", name, raw)
		}
		t := Tree(m)
		resolveLocation(t, root)
		sources[name] = t
	}
	return sources, nil
}

func resolveLocation(t Tree, root string) {
	section, ok := asMap(t["init"])
	if !ok {
		return
	}
	loc, ok := section["location"].(string)
	if !ok || loc == "" {
		return
	}
	loc = ExpandPath(loc)
	if !filepath.IsAbs(loc) {
		loc = filepath.Join(root, loc)
	}
	section["location"] = loc
}

// DefaultSources is written by Init: a JSON document store, a GraphML graph
// store and a SQLite row store under the workspace data directory.
func DefaultSources() Tree {
	return Tree{
		"sources": map[string]any{
			"docs": map[string]any{
				"_pre_init": map[string]any{"type": "json"},
				"init":      map[string]any{"location": filepath.Join(WorkspaceDir, DataDir, "docs")},
			},
			"graphs": map[string]any{
				"_pre_init":   map[string]any{"type": "graph"},
				"init":        map[string]any{"location": filepath.Join(WorkspaceDir, DataDir, "graphs")},
				"file_format": "graphml",
			},
			"rows": map[string]any{
				"_pre_init": map[string]any{"type": "sqlite"},
				"init":      map[string]any{"location": filepath.Join(WorkspaceDir, DataDir, "rows.db")},
			},
		},
	}
}

// Init creates a workspace at root with the default sources file.
// An existing sources file is left untouched.
func Init(root string) error {
	if err := os.MkdirAll(DataPath(root), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", WorkspaceDir, err)
	}

	path := SourcesPath(root)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(DefaultSources())
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing sources: %w", err)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}

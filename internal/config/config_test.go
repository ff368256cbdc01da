package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/ws"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"WorkspacePath", WorkspacePath, "/test/ws/.bibnet"},
		{"SourcesPath", SourcesPath, "/test/ws/.bibnet/sources.yml"},
		{"DataPath", DataPath, "/test/ws/.bibnet/data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsWorkspace_FileNotDir(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, WorkspaceDir), []byte("not a dir"), 0644); err != nil {
		t.Fatalf("Failed to create .bibnet file: %v", err)
	}

	if IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = true when .bibnet is a file")
	}
}

func TestFindWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	wsDir := filepath.Join(tmpDir, "ws")
	nestedDir := filepath.Join(wsDir, "papers", "2019")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.Mkdir(filepath.Join(wsDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .bibnet: %v", err)
	}

	found, err := FindWorkspace(nestedDir)
	if err != nil {
		t.Fatalf("FindWorkspace() error = %v", err)
	}
	if found != wsDir {
		t.Errorf("FindWorkspace() = %q, want %q", found, wsDir)
	}

	if _, err := FindWorkspace(tmpDir); err == nil {
		t.Error("FindWorkspace() outside a workspace should fail")
	}
}

func TestInitAndLoadSources(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(SiteConfigEnv, "")

	if err := Init(root); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !IsWorkspace(root) {
		t.Fatal("Init() did not create the workspace directory")
	}

	sources, err := LoadSources(root)
	if err != nil {
		t.Fatalf("LoadSources() error = %v", err)
	}

	names := sources.Names()
	want := []string{"docs", "graphs", "rows"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	loc := sources["docs"].String("", "init", "location")
	if loc != filepath.Join(root, ".bibnet", "data", "docs") {
		t.Errorf("docs location = %q, want it resolved under %s", loc, root)
	}
	if got := sources["graphs"].String("", "file_format"); got != "graphml" {
		t.Errorf("graphs file_format = %q, want graphml", got)
	}
}

func TestLoadSources_Layering(t *testing.T) {
	root := t.TempDir()
	userHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userHome)

	site := filepath.Join(t.TempDir(), "site.yml")
	writeFile(t, site, `
sources:
  docs:
    _pre_init: {type: json}
    init: {location: /srv/site-docs}
  shared:
    _pre_init: {type: mongodb}
    init: {uri: "mongodb://site", database: bib}
`)
	t.Setenv(SiteConfigEnv, site)

	writeFile(t, filepath.Join(userHome, GlobalConfigDir, SourcesFile), `
sources:
  shared:
    init: {database: mine}
`)

	if err := os.MkdirAll(WorkspacePath(root), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, SourcesPath(root), `
sources:
  docs:
    init: {location: local-docs}
`)

	sources, err := LoadSources(root)
	if err != nil {
		t.Fatalf("LoadSources() error = %v", err)
	}

	if got := sources["docs"].String("", "init", "location"); got != filepath.Join(root, "local-docs") {
		t.Errorf("docs location = %q, want workspace override", got)
	}
	if got := sources["docs"].String("", "_pre_init", "type"); got != "json" {
		t.Errorf("docs type = %q, want json from site layer", got)
	}
	if got := sources["shared"].String("", "init", "database"); got != "mine" {
		t.Errorf("shared database = %q, want user override", got)
	}
	if got := sources["shared"].String("", "init", "uri"); got != "mongodb://site" {
		t.Errorf("shared uri = %q, want site value", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	if got := ExpandPath("~/data"); got != filepath.Join(home, "data") {
		t.Errorf("ExpandPath(~/data) = %q", got)
	}
	if got := ExpandPath("/abs"); got != "/abs" {
		t.Errorf("ExpandPath(/abs) = %q, want /abs", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath(\"\") = %q, want empty", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

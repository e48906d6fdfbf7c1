package bootstrap

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/wippyai/nashorn-compat/host"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compat.toml")
	writeFile(t, path, []byte(`
target = "org.openjdk.nashorn"
pattern = "nashorn-core-*.wasm"
search_path = ["lib", "/opt/nashorn"]
bundle = "bundle"
discovery = "compose"
`))

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Discovery != DiscoveryCompose {
		t.Errorf("discovery = %q", cfg.Discovery)
	}
	if want := []string{filepath.Join(dir, "lib"), "/opt/nashorn"}; !slices.Equal(cfg.SearchPath, want) {
		t.Errorf("search path = %v, want %v", cfg.SearchPath, want)
	}
	if cfg.Bundle != filepath.Join(dir, "bundle") {
		t.Errorf("bundle = %q", cfg.Bundle)
	}
	if cfg.ToolingPrefix != host.ModuleTooling || cfg.Caller != host.ModuleCompat {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "target = \"x\"\nbundle = \"b\"\ncolour = \"red\"\n"},
		{"unknown discovery", "bundle = \"b\"\ndiscovery = \"guess\"\n"},
		{"syntax", "target = \n"},
		{"empty target", "target = \"\"\nbundle = \"b\"\n"},
		{"manifest without bundle", "discovery = \"manifest\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "compat.toml")
			writeFile(t, path, []byte(tt.body))
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	scan := DefaultConfig()
	scan.Discovery = DiscoveryScan
	scan.SearchPath = nil
	if err := scan.Validate(); err == nil {
		t.Error("scan without a search path should fail")
	}

	compose := DefaultConfig()
	compose.Discovery = DiscoveryCompose
	compose.SearchPath = nil
	if err := compose.Validate(); err == nil {
		t.Error("compose without sources should fail")
	}
	compose.Bundle = "b"
	if err := compose.Validate(); err != nil {
		t.Errorf("compose with a bundle: %v", err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := bundle(t)
	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{filepath.Join(m.Dir, "deps", "support.wasm")}; !slices.Equal(m.DependencyPaths(), want) {
		t.Errorf("dependencies = %v, want %v", m.DependencyPaths(), want)
	}

	bad := t.TempDir()
	writeFile(t, filepath.Join(bad, ManifestFile), []byte("[bundle]\ndependencies = []\n"))
	if _, err := LoadManifest(bad); err == nil {
		t.Error("manifest without a name should fail")
	}
	if err := os.WriteFile(filepath.Join(bad, ManifestFile), []byte("[bundle"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(bad); err == nil {
		t.Error("malformed manifest should fail")
	}
}

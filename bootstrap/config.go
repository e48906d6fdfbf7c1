package bootstrap

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/host"
)

// Discovery selects how candidate components are located.
type Discovery string

const (
	// DiscoveryManifest scans the bundle directory for the target and reads
	// its dependencies from the bundle manifest.
	DiscoveryManifest Discovery = "manifest"
	// DiscoveryScan scans the search path only.
	DiscoveryScan Discovery = "scan"
	// DiscoveryCompose consults the manifest first and the search path after.
	DiscoveryCompose Discovery = "compose"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Discovery) UnmarshalText(text []byte) error {
	switch v := Discovery(text); v {
	case DiscoveryManifest, DiscoveryScan, DiscoveryCompose:
		*d = v
		return nil
	case "":
		*d = DiscoveryManifest
		return nil
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(string(text)).
			Detail("unknown discovery mode").
			Build()
	}
}

// Config controls Run.
type Config struct {
	// Target is the module spliced into the graph.
	Target string `toml:"target"`

	// ToolingPrefix selects requirements to drop from every candidate. The
	// tooling library is resident next to the compat plugin and cannot be
	// resolved from the new layer.
	ToolingPrefix string `toml:"tooling_prefix"`

	// Pattern is a gitignore-style pattern for component files.
	Pattern string `toml:"pattern"`

	// SearchPath lists directories scanned for components.
	SearchPath []string `toml:"search_path"`

	// Bundle is the directory holding the bundle manifest.
	Bundle string `toml:"bundle"`

	Discovery Discovery `toml:"discovery"`

	// Caller is the module granted mutual readability with Target.
	Caller string `toml:"caller"`

	// PluginFile is shown as the plugin's origin in the component listing.
	PluginFile string `toml:"plugin_file"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Target:        "org.openjdk.nashorn",
		ToolingPrefix: host.ModuleTooling,
		Pattern:       "nashorn-core-*.wasm",
		SearchPath:    codeLocations(),
		Discovery:     DiscoveryManifest,
		Caller:        host.ModuleCompat,
	}
}

// codeLocations returns the directories the running program was loaded
// from.
func codeLocations() []string {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	dir := filepath.Dir(exe)
	return []string{dir, filepath.Join(dir, "lib")}
}

// LoadConfig reads a TOML configuration file over DefaultConfig. Relative
// paths are resolved against the file's directory.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read "+path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(path).
			Value(undecoded[0].String()).
			Detail("unknown key").
			Build()
	}

	base := filepath.Dir(path)
	if md.IsDefined("search_path") {
		for i, p := range cfg.SearchPath {
			cfg.SearchPath[i] = resolvePath(base, p)
		}
	}
	if cfg.Bundle != "" {
		cfg.Bundle = resolvePath(base, cfg.Bundle)
	}
	return cfg, cfg.Validate()
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate reports the first inconsistency in c.
func (c Config) Validate() error {
	invalid := func(detail string) error {
		return errors.InvalidInput(errors.PhaseConfig, detail)
	}
	switch {
	case c.Target == "":
		return invalid("target module is required")
	case c.Pattern == "":
		return invalid("component pattern is required")
	}
	switch c.Discovery {
	case DiscoveryManifest:
		if c.Bundle == "" {
			return invalid("manifest discovery requires a bundle directory")
		}
	case DiscoveryScan:
		if len(c.SearchPath) == 0 {
			return invalid("scan discovery requires a search path")
		}
	case DiscoveryCompose:
		if c.Bundle == "" && len(c.SearchPath) == 0 {
			return invalid("compose discovery requires a bundle or a search path")
		}
	default:
		return invalid("unknown discovery mode " + string(c.Discovery))
	}
	return nil
}

package bootstrap

import (
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/graph"
)

// Finder builds the candidate finder for cfg. The manifest is nil unless the
// discovery mode reads one.
func Finder(cfg Config) (graph.Finder, *Manifest, error) {
	switch cfg.Discovery {
	case DiscoveryScan:
		return graph.ScanDirs(cfg.SearchPath, cfg.Pattern), nil, nil
	case DiscoveryCompose:
		var finders []graph.Finder
		var m *Manifest
		if cfg.Bundle != "" {
			f, mm, err := manifestFinder(cfg)
			if err != nil {
				return nil, nil, err
			}
			finders = append(finders, f)
			m = mm
		}
		if len(cfg.SearchPath) > 0 {
			finders = append(finders, graph.ScanDirs(cfg.SearchPath, cfg.Pattern))
		}
		return graph.Compose(finders...), m, nil
	default:
		return manifestFinder(cfg)
	}
}

// manifestFinder looks for the target next to the manifest and resolves the
// manifest's declared dependencies separately.
func manifestFinder(cfg Config) (graph.Finder, *Manifest, error) {
	m, err := LoadManifest(cfg.Bundle)
	if err != nil {
		return nil, nil, err
	}
	deps := m.DependencyPaths()
	Logger().Debug("bundle manifest loaded",
		zap.String("bundle", m.Bundle.Name),
		zap.Strings("dependencies", deps))

	own := graph.ScanDirs([]string{m.Dir}, cfg.Pattern)
	if len(deps) == 0 {
		return own, m, nil
	}
	return graph.Compose(own, graph.OfPaths(deps...)), m, nil
}

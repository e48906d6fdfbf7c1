package bootstrap

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/graph"
	"github.com/wippyai/nashorn-compat/host"
	"github.com/wippyai/nashorn-compat/transform"
)

// Result is what a successful Run leaves behind.
type Result struct {
	Module     *graph.Module
	Layer      *graph.Layer
	Capability *graph.Capability
	Plugin     *transform.Plugin
	Manifest   *Manifest

	// Dropped maps each edited candidate to the requirements removed from it.
	Dropped map[string][]string
}

// Run splices cfg.Target into h. It must be called before h.Start. Every
// failure is fatal.
func Run(ctx context.Context, h *host.Host, cfg Config, opts ...transform.PluginOption) (*Result, error) {
	res, err := run(ctx, h, cfg, opts)
	if err != nil {
		Logger().Error("bootstrap failed", zap.String("target", cfg.Target), zap.Error(err))
		return nil, errors.Fatal(err)
	}
	Logger().Info("bootstrap complete",
		zap.String("module", res.Module.Name()),
		zap.Int("layer_modules", len(res.Layer.Modules())))
	return res, nil
}

var (
	once    sync.Once
	onceRes *Result
	onceErr error
)

// Once runs Run the first time it is called and returns that outcome on
// every call.
func Once(ctx context.Context, h *host.Host, cfg Config, opts ...transform.PluginOption) (*Result, error) {
	once.Do(func() {
		onceRes, onceErr = Run(ctx, h, cfg, opts...)
	})
	return onceRes, onceErr
}

func fail(kind errors.Kind, step string, err error) error {
	return errors.New(errors.PhaseBootstrap, kind).
		Detail("%s", step).
		Cause(err).
		Build()
}

func run(ctx context.Context, h *host.Host, cfg Config, opts []transform.PluginOption) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fail(errors.KindInvalidInput, "validate config", err)
	}
	if h.Started() {
		return nil, fail(errors.KindAlreadyDone, "check host", errors.New(errors.PhasePlugin, errors.KindRegistration).
			Detail("host already accepts registrations").
			Build())
	}
	g := h.Graph()

	// 1
	c, err := g.Unlock()
	if err != nil {
		return nil, fail(errors.KindAccess, "unlock graph", err)
	}

	// 2
	finder, manifest, err := Finder(cfg)
	if err != nil {
		return nil, fail(errors.KindNotFound, "locate components", err)
	}
	refs, err := finder.FindAll()
	if err != nil {
		return nil, fail(errors.KindNotFound, "locate components", err)
	}
	if !hasTarget(refs, cfg.Target) {
		return nil, fail(errors.KindNotFound, "locate components",
			errors.NotFound(errors.PhaseDiscover, "component", cfg.Target))
	}

	// 3
	dropped := make(map[string][]string)
	if cfg.ToolingPrefix != "" {
		for _, ref := range refs {
			if ref.Builder.Sealed() {
				return nil, fail(errors.KindSealed, "edit descriptors", errors.Sealed(ref.Name(), "drop requires"))
			}
			names := ref.Builder.DropRequires(func(r graph.Requirement) bool {
				return strings.HasPrefix(r.Name, cfg.ToolingPrefix)
			})
			if len(names) > 0 {
				dropped[ref.Name()] = names
				Logger().Debug("dropped tooling requirements",
					zap.String("module", ref.Name()),
					zap.Strings("requires", names))
			}
		}
	}

	// 4
	resolved, err := graph.ResolveAndBind(finder, []*graph.Configuration{g.Boot().Configuration()}, finder, []string{cfg.Target})
	if err != nil {
		return nil, fail(errors.KindMissingRequire, "resolve components", err)
	}

	// 5
	ctrl, err := graph.DefineModules(resolved, []*graph.Layer{g.Boot()}, func(name string) graph.Loader {
		if name == cfg.Target {
			return h.AppLoader()
		}
		return h.PlatformLoader()
	})
	if err != nil {
		return nil, fail(errors.KindInvalidData, "define modules", err)
	}
	layer := ctrl.Layer()
	for _, m := range layer.Modules() {
		if len(m.Code()) == 0 {
			continue
		}
		loader, ok := m.Loader().(*host.Loader)
		if !ok {
			continue
		}
		if _, err := loader.Define(ctx, m.Name(), m.Code()); err != nil {
			return nil, fail(errors.KindInvalidData, "define modules", err)
		}
	}
	if err := g.Publish(c, layer); err != nil {
		return nil, fail(errors.KindInvalidData, "publish layer", err)
	}
	target := layer.FindModule(cfg.Target)

	// 6
	if err := grantReadability(g, c, target, cfg.Caller); err != nil {
		return nil, fail(errors.KindAccess, "grant readability", err)
	}

	file := cfg.PluginFile
	if file == "" && manifest != nil {
		file = manifest.Path()
	}
	plugin := transform.NewPlugin(append([]transform.PluginOption{transform.WithFile(file)}, opts...)...)
	plugin.SetGranter(&granter{graph: g, cap: c})
	if err := plugin.Install(h, c); err != nil {
		return nil, fail(errors.KindRegistration, "install plugin", err)
	}

	return &Result{
		Module:     target,
		Layer:      layer,
		Capability: c,
		Plugin:     plugin,
		Manifest:   manifest,
		Dropped:    dropped,
	}, nil
}

func hasTarget(refs []*graph.Reference, name string) bool {
	for _, r := range refs {
		if r.Name() == name {
			return true
		}
	}
	return false
}

// grantReadability lets target read unnamed code and the caller module,
// lets the caller read target, and exports target's public packages to
// unnamed code. Unnamed code cannot otherwise see packages of a non-boot
// layer.
func grantReadability(g *graph.Graph, c *graph.Capability, target *graph.Module, callerName string) error {
	if err := target.AddReadsAllUnnamed(c); err != nil {
		return err
	}
	if caller := g.FindModule(callerName); caller != nil {
		if err := target.AddReads(c, caller); err != nil {
			return err
		}
		if err := caller.AddReads(c, target); err != nil {
			return err
		}
	} else if callerName != "" {
		Logger().Debug("caller module not in graph", zap.String("module", callerName))
	}
	for _, e := range target.Descriptor().Exports() {
		if e.Qualified() {
			continue
		}
		if err := target.AddExportsToAllUnnamed(c, e.Package); err != nil {
			return err
		}
	}
	return nil
}

// granter exports packages named by rewrites to unnamed code. It is shared
// by concurrent transformations.
type granter struct {
	graph *graph.Graph
	cap   *graph.Capability
	done  sync.Map
}

func (g *granter) Grant(pkg string) {
	if _, seen := g.done.Load(pkg); seen {
		return
	}
	m := g.graph.ModuleForPackage(pkg)
	if m == nil {
		Logger().Debug("no module owns granted package", zap.String("package", pkg))
		return
	}
	if _, seen := g.done.LoadOrStore(pkg, true); seen {
		return
	}
	if err := m.AddExportsToAllUnnamed(g.cap, pkg); err != nil {
		Logger().Warn("grant failed", zap.String("package", pkg), zap.String("module", m.Name()), zap.Error(err))
	}
}

package host

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/graph"
)

// Host owns the wazero runtime, the module graph and the plugin table.
type Host struct {
	runtime  wazero.Runtime
	graph    *graph.Graph
	platform *Loader
	app      *Loader

	plugins    atomic.Pointer[[]Transformer]
	pluginMu   sync.Mutex
	components []Component

	hostModules map[string]HostModule
	providers   map[string]any
	nativeMu    sync.RWMutex
	linkMu      sync.Mutex

	started atomic.Bool
	closed  atomic.Bool
}

// New creates a host with its boot and service layers defined and
// published. Boot modules map to the platform loader, service modules to
// the app loader.
func New(ctx context.Context, opts Options) (*Host, error) {
	if opts.Boot == nil {
		opts.Boot = DefaultBoot()
	}
	if opts.Services == nil {
		opts.Services = DefaultServices()
	}

	cfg := wazero.NewRuntimeConfig()
	if opts.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(opts.MemoryLimitPages)
	}

	h := &Host{
		runtime:     wazero.NewRuntimeWithConfig(ctx, cfg),
		hostModules: make(map[string]HostModule),
		providers:   make(map[string]any),
	}
	h.platform = &Loader{host: h, name: "platform", units: make(map[string]*Unit)}
	h.app = &Loader{host: h, name: "app", parent: h.platform, units: make(map[string]*Unit)}
	h.plugins.Store(&[]Transformer{})

	g, err := h.defineGraph(opts)
	if err != nil {
		_ = h.runtime.Close(ctx)
		return nil, err
	}
	h.graph = g

	Logger().Debug("host created",
		zap.Int("boot_modules", len(opts.Boot)),
		zap.Int("service_modules", len(opts.Services)))
	return h, nil
}

func (h *Host) defineGraph(opts Options) (*graph.Graph, error) {
	bootCfg, err := graph.NewBootConfiguration(opts.Boot...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, "resolve boot layer")
	}
	boot, err := graph.DefineBootLayer(bootCfg, h.platformFor)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, "define boot layer")
	}
	if len(opts.Services) == 0 {
		return graph.New(boot)
	}

	refs := make([]*graph.Reference, len(opts.Services))
	roots := make([]string, len(opts.Services))
	for i, b := range opts.Services {
		refs[i] = &graph.Reference{Builder: b, Location: "service"}
		roots[i] = b.Name()
	}
	svcCfg, err := graph.ResolveAndBind(graph.OfReferences(refs...), []*graph.Configuration{bootCfg}, graph.Empty(), roots)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, "resolve service layer")
	}
	ctrl, err := graph.DefineModules(svcCfg, []*graph.Layer{boot}, h.appFor)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, "define service layer")
	}
	return graph.New(boot, ctrl.Layer())
}

func (h *Host) platformFor(string) graph.Loader { return h.platform }

func (h *Host) appFor(string) graph.Loader { return h.app }

// Graph returns the host's module graph.
func (h *Host) Graph() *graph.Graph { return h.graph }

// Runtime returns the underlying wazero runtime.
func (h *Host) Runtime() wazero.Runtime { return h.runtime }

// PlatformLoader returns the loader for platform code.
func (h *Host) PlatformLoader() *Loader { return h.platform }

// AppLoader returns the loader for application code. Its parent is the
// platform loader.
func (h *Host) AppLoader() *Loader { return h.app }

// Start opens the normal registration path. Bootstrapping happens before.
func (h *Host) Start() {
	if h.started.CompareAndSwap(false, true) {
		Logger().Info("host started", zap.Int("plugins", len(*h.plugins.Load())))
	}
}

// Started reports whether Start was called.
func (h *Host) Started() bool { return h.started.Load() }

// Close releases the runtime and every instance created from it.
func (h *Host) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.runtime.Close(ctx)
}

func (h *Host) checkOpen() error {
	if h.closed.Load() {
		return errors.New(errors.PhaseLoad, errors.KindClosed).Detail("host is closed").Build()
	}
	return nil
}

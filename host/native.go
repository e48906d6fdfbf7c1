package host

import (
	"context"
	"slices"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
)

// HostFunc is one function of a native host module.
type HostFunc struct {
	Fn      api.GoModuleFunction
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// HostModule is a native module that guests import by name.
type HostModule struct {
	Name  string
	Funcs []HostFunc
}

// RegisterHostModule makes m available to guests. It is instantiated the
// first time a guest imports it.
func (h *Host) RegisterHostModule(m HostModule) error {
	if m.Name == "" {
		return errors.InvalidInput(errors.PhaseLink, "host module name cannot be empty")
	}
	h.nativeMu.Lock()
	defer h.nativeMu.Unlock()
	if _, dup := h.hostModules[m.Name]; dup {
		return errors.New(errors.PhaseLink, errors.KindDuplicate).
			Value(m.Name).
			Detail("host module already registered").
			Build()
	}
	h.hostModules[m.Name] = m
	Logger().Debug("host module registered", zap.String("module", m.Name), zap.Int("funcs", len(m.Funcs)))
	return nil
}

// RegisterProvider binds a Go implementation to a service implementation
// name declared by some module's provides clause.
func (h *Host) RegisterProvider(impl string, provider any) error {
	if impl == "" || provider == nil {
		return errors.InvalidInput(errors.PhasePlugin, "provider requires an implementation name and a value")
	}
	h.nativeMu.Lock()
	defer h.nativeMu.Unlock()
	if _, dup := h.providers[impl]; dup {
		return errors.New(errors.PhasePlugin, errors.KindDuplicate).
			Value(impl).
			Detail("provider already registered").
			Build()
	}
	h.providers[impl] = provider
	return nil
}

// Services returns the providers of service declared by published modules,
// in layer order.
func (h *Host) Services(service string) []any {
	h.nativeMu.RLock()
	defer h.nativeMu.RUnlock()

	var out []any
	for _, m := range h.graph.Modules() {
		for _, p := range m.Descriptor().Provides() {
			if p.Service != service {
				continue
			}
			for _, impl := range p.Impls {
				if v, ok := h.providers[impl]; ok {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

func (h *Host) hostModule(name string) (HostModule, bool) {
	h.nativeMu.RLock()
	defer h.nativeMu.RUnlock()
	m, ok := h.hostModules[name]
	return m, ok
}

// ensureHostModule instantiates m once per runtime.
func (h *Host) ensureHostModule(ctx context.Context, m HostModule) error {
	h.linkMu.Lock()
	defer h.linkMu.Unlock()

	if h.runtime.Module(m.Name) != nil {
		return nil
	}
	builder := h.runtime.NewHostModuleBuilder(m.Name)
	for _, f := range m.Funcs {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.Fn, slices.Clone(f.Params), slices.Clone(f.Results)).
			Export(f.Name)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return errors.Instantiation(m.Name, err)
	}
	return nil
}

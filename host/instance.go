package host

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/graph"
	"github.com/wippyai/nashorn-compat/wasm"
)

// Instance is an instantiated guest.
type Instance struct {
	mod  api.Module
	unit *Unit
}

// Instantiate defines code with the app loader, links its imports and
// instantiates it under id.
func (h *Host) Instantiate(ctx context.Context, id string, code []byte) (*Instance, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	u, err := h.app.Define(ctx, id, code)
	if err != nil {
		return nil, err
	}
	return h.InstantiateUnit(ctx, u)
}

// InstantiateUnit links and instantiates an already defined unit.
func (h *Host) InstantiateUnit(ctx context.Context, u *Unit) (*Instance, error) {
	for _, name := range importModules(u.Compiled) {
		if err := h.checkAccess(name); err != nil {
			return nil, errors.New(errors.PhaseLink, errors.KindAccess).
				Unit(u.ID).
				Path(name).
				Cause(err).
				Detail("import not accessible").
				Build()
		}
		if m, ok := h.hostModule(name); ok {
			if err := h.ensureHostModule(ctx, m); err != nil {
				return nil, err
			}
		}
	}

	mod, err := h.runtime.InstantiateModule(ctx, u.Compiled, wazero.NewModuleConfig().WithName(u.ID))
	if err != nil {
		return nil, errors.Instantiation(u.ID, err)
	}
	Logger().Debug("instantiated", zap.String("unit", u.ID), zap.String("loader", u.Loader.Name()))
	return &Instance{mod: mod, unit: u}, nil
}

// checkAccess applies the export rules to an import module name read as
// a package. Names no module owns are not governed by the graph.
func (h *Host) checkAccess(importModule string) error {
	pkg := strings.ReplaceAll(importModule, "/", ".")
	m := h.graph.ModuleForPackage(pkg)
	if m == nil {
		return nil
	}
	if !m.IsExported(pkg, graph.Unnamed) {
		return errors.Access(m.Name(), pkg, graph.Unnamed.String())
	}
	return nil
}

func importModules(c wazero.CompiledModule) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, f := range c.ImportedFunctions() {
		mod, _, _ := f.Import()
		add(mod)
	}
	for _, m := range c.ImportedMemories() {
		mod, _, _ := m.Import()
		add(mod)
	}
	return out
}

// Analyze loads code for inspection only and returns its structural view.
func (h *Host) Analyze(ctx context.Context, id string, code []byte) (*wasm.Unit, error) {
	out, err := h.Load(ctx, id, code, ReasonAnalysis)
	if err != nil {
		return nil, err
	}
	u, err := wasm.Parse(out)
	if err != nil {
		return nil, errors.Load(id, "parse", err)
	}
	return u, nil
}

// Verify loads code for validation and compiles it without defining it.
func (h *Host) Verify(ctx context.Context, id string, code []byte) error {
	out, err := h.Load(ctx, id, code, ReasonVerify)
	if err != nil {
		return err
	}
	c, err := h.runtime.CompileModule(ctx, out)
	if err != nil {
		return errors.Load(id, "compile", err)
	}
	return c.Close(ctx)
}

// ID returns the unit identity the instance was created from.
func (i *Instance) ID() string { return i.unit.ID }

// Unit returns the defined unit.
func (i *Instance) Unit() *Unit { return i.unit }

// Module returns the wazero module.
func (i *Instance) Module() api.Module { return i.mod }

// Call invokes an exported function with raw wasm values.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseLink, "export", name)
	}
	res, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.New(errors.PhaseLink, errors.KindInstantiation).
			Unit(i.unit.ID).
			Value(name).
			Cause(err).
			Detail("call failed").
			Build()
	}
	return res, nil
}

// Close closes the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}

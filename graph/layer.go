package graph

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
)

// Loader receives the code of the modules mapped to it. Loaders are
// supplied by the host.
type Loader interface {
	Name() string
}

// Layer is a set of defined modules on top of parent layers.
type Layer struct {
	config  *Configuration
	modules map[string]*Module
	parents []*Layer
	order   []*Module
	boot    bool
}

func (l *Layer) Configuration() *Configuration { return l.config }

func (l *Layer) Parents() []*Layer { return slices.Clone(l.parents) }

// Modules returns the layer's own modules in definition order.
func (l *Layer) Modules() []*Module { return slices.Clone(l.order) }

// IsBoot reports whether l is the host's boot layer.
func (l *Layer) IsBoot() bool { return l.boot }

// FindModule searches l and then its parents.
func (l *Layer) FindModule(name string) *Module {
	if m, ok := l.modules[name]; ok {
		return m
	}
	for _, p := range l.parents {
		if m := p.FindModule(name); m != nil {
			return m
		}
	}
	return nil
}

// Module is a defined module. Readability and exports added after
// definition are guarded by the module's own lock.
type Module struct {
	layer      *Layer
	descriptor *Descriptor
	loader     Loader
	code       []byte

	mu               sync.RWMutex
	reads            map[*Module]bool
	exportsTo        map[string]map[*Module]bool
	exportsToUnnamed map[string]bool
	readsAllUnnamed  bool
}

// Unnamed stands for all code that is not part of a named module.
var Unnamed = &Module{}

// IsNamed reports whether m is a named module.
func (m *Module) IsNamed() bool { return m.descriptor != nil }

// Name returns the module name, or "" for Unnamed.
func (m *Module) Name() string {
	if m.descriptor == nil {
		return ""
	}
	return m.descriptor.name
}

func (m *Module) String() string {
	if !m.IsNamed() {
		return "unnamed module"
	}
	return "module " + m.descriptor.String()
}

func (m *Module) Descriptor() *Descriptor { return m.descriptor }
func (m *Module) Layer() *Layer { return m.layer }

func (m *Module) Loader() Loader { return m.loader }

// Code returns the packaged code the module was defined from, if any.
func (m *Module) Code() []byte { return m.code }

// CanRead reports whether m reads other.
func (m *Module) CanRead(other *Module) bool {
	if !m.IsNamed() || m == other {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !other.IsNamed() {
		return m.readsAllUnnamed
	}
	return m.reads[other]
}

// IsExported reports whether pkg of m is accessible to code in module to.
// Unqualified exports reach unnamed code only for boot layer modules;
// other layers must export to all unnamed explicitly.
func (m *Module) IsExported(pkg string, to *Module) bool {
	if !m.IsNamed() {
		return true
	}
	if !m.descriptor.ContainsPackage(pkg) {
		return false
	}
	if to == m {
		return true
	}

	m.mu.RLock()
	if !to.IsNamed() && m.exportsToUnnamed[pkg] {
		m.mu.RUnlock()
		return true
	}
	if to.IsNamed() && m.exportsTo[pkg][to] {
		m.mu.RUnlock()
		return true
	}
	m.mu.RUnlock()

	unqualified := m.descriptor.open
	for _, e := range m.descriptor.exports {
		if e.Package != pkg {
			continue
		}
		if !e.Qualified() {
			unqualified = true
			break
		}
		if to.IsNamed() && slices.Contains(e.Targets, to.Name()) {
			return true
		}
	}
	if !unqualified {
		return false
	}
	return to.IsNamed() || (m.layer != nil && m.layer.boot)
}

// AddReads makes m read other.
func (m *Module) AddReads(c *Capability, other *Module) error {
	if err := c.check("add reads"); err != nil {
		return err
	}
	m.addReads(other)
	return nil
}

// AddReadsAllUnnamed makes m read all unnamed code.
func (m *Module) AddReadsAllUnnamed(c *Capability) error {
	if err := c.check("add reads all unnamed"); err != nil {
		return err
	}
	m.addReads(Unnamed)
	return nil
}

// AddExportsToAllUnnamed exports pkg of m to all unnamed code.
func (m *Module) AddExportsToAllUnnamed(c *Capability, pkg string) error {
	if err := c.check("add exports"); err != nil {
		return err
	}
	return m.addExports(pkg, Unnamed)
}

func (m *Module) addReads(other *Module) {
	if !m.IsNamed() || m == other {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !other.IsNamed() {
		m.readsAllUnnamed = true
		return
	}
	if m.reads == nil {
		m.reads = make(map[*Module]bool)
	}
	m.reads[other] = true
}

func (m *Module) addExports(pkg string, to *Module) error {
	if !m.IsNamed() {
		return nil
	}
	if !m.descriptor.ContainsPackage(pkg) {
		return errors.New(errors.PhaseReadability, errors.KindNotFound).
			Component(m.Name()).
			Path(pkg).
			Detail("package not in module").
			Build()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !to.IsNamed() {
		if m.exportsToUnnamed == nil {
			m.exportsToUnnamed = make(map[string]bool)
		}
		if !m.exportsToUnnamed[pkg] {
			m.exportsToUnnamed[pkg] = true
			Logger().Debug("exported to all unnamed", zap.String("module", m.Name()), zap.String("package", pkg))
		}
		return nil
	}
	if m.exportsTo == nil {
		m.exportsTo = make(map[string]map[*Module]bool)
	}
	if m.exportsTo[pkg] == nil {
		m.exportsTo[pkg] = make(map[*Module]bool)
	}
	m.exportsTo[pkg][to] = true
	return nil
}

// Controller manages the modules of a layer it defined.
type Controller struct {
	layer *Layer
}

func (c *Controller) Layer() *Layer { return c.layer }

// AddReads makes src, a module of the controlled layer, read dst.
func (c *Controller) AddReads(src, dst *Module) error {
	if err := c.own(src); err != nil {
		return err
	}
	src.addReads(dst)
	return nil
}

// AddExports exports pkg of src, a module of the controlled layer, to dst.
func (c *Controller) AddExports(src *Module, pkg string, dst *Module) error {
	if err := c.own(src); err != nil {
		return err
	}
	return src.addExports(pkg, dst)
}

func (c *Controller) own(m *Module) error {
	if m.layer != c.layer {
		return errors.New(errors.PhaseReadability, errors.KindAccess).
			Component(m.Name()).
			Detail("module not in controlled layer").
			Build()
	}
	return nil
}

// DefineModules defines the modules of cfg into a new layer. parents must
// hold the layers of cfg's parent configurations in the same order.
// loaderFor maps each module name to the loader receiving its code.
func DefineModules(cfg *Configuration, parents []*Layer, loaderFor func(name string) Loader) (*Controller, error) {
	if len(parents) != len(cfg.parents) {
		return nil, errors.InvalidInput(errors.PhaseDefine, "parent layers do not match configuration")
	}
	for i, p := range parents {
		if p.config != cfg.parents[i] {
			return nil, errors.InvalidInput(errors.PhaseDefine, "parent layers do not match configuration")
		}
	}
	l, err := define(cfg, parents, loaderFor, false)
	if err != nil {
		return nil, err
	}
	return &Controller{layer: l}, nil
}

// DefineBootLayer defines a parentless configuration as the boot layer.
func DefineBootLayer(cfg *Configuration, loaderFor func(name string) Loader) (*Layer, error) {
	if len(cfg.parents) != 0 {
		return nil, errors.InvalidInput(errors.PhaseDefine, "boot configuration cannot have parents")
	}
	return define(cfg, nil, loaderFor, true)
}

func define(cfg *Configuration, parents []*Layer, loaderFor func(name string) Loader, boot bool) (*Layer, error) {
	l := &Layer{
		config:  cfg,
		parents: slices.Clone(parents),
		modules: make(map[string]*Module, len(cfg.order)),
		boot:    boot,
	}

	owners := make(map[string]string)
	for _, rm := range cfg.order {
		loader := loaderFor(rm.Name())
		if loader == nil {
			return nil, errors.New(errors.PhaseDefine, errors.KindInvalidInput).
				Component(rm.Name()).
				Detail("no loader for module").
				Build()
		}
		for _, pkg := range rm.descriptor.packages {
			if owner, dup := owners[pkg]; dup {
				return nil, errors.New(errors.PhaseDefine, errors.KindDuplicate).
					Component(rm.Name()).
					Path(pkg).
					Detail("package also in %s", owner).
					Build()
			}
			if pm := packageOwner(parents, pkg); pm != nil {
				return nil, errors.New(errors.PhaseDefine, errors.KindDuplicate).
					Component(rm.Name()).
					Path(pkg).
					Detail("package also in %s", pm.Name()).
					Build()
			}
			owners[pkg] = rm.Name()
		}

		m := &Module{layer: l, descriptor: rm.descriptor, loader: loader}
		if rm.reference != nil {
			m.code = rm.reference.Code
		}
		l.modules[rm.Name()] = m
		l.order = append(l.order, m)
	}

	for _, rm := range cfg.order {
		m := l.modules[rm.Name()]
		for _, dep := range rm.reads {
			target := l.FindModule(dep.Name())
			if target == nil {
				return nil, errors.New(errors.PhaseDefine, errors.KindMissingRequire).
					Component(rm.Name()).
					Value(dep.Name()).
					Detail("read target not defined in any parent layer").
					Build()
			}
			m.addReads(target)
		}
		Logger().Debug("defined module",
			zap.String("module", m.Name()),
			zap.String("loader", m.loader.Name()),
			zap.Bool("boot", boot))
	}
	return l, nil
}

func packageOwner(layers []*Layer, pkg string) *Module {
	for _, l := range layers {
		for _, m := range l.order {
			if m.descriptor.ContainsPackage(pkg) {
				return m
			}
		}
		if m := packageOwner(l.parents, pkg); m != nil {
			return m
		}
	}
	return nil
}

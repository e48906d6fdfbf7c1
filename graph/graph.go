package graph

import (
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
)

// Capability authorizes changes to modules that were already defined. A
// graph hands out exactly one.
type Capability struct {
	g *Graph
}

func (c *Capability) check(op string) error {
	if c == nil || c.g == nil {
		return errors.New(errors.PhaseCapability, errors.KindAccess).
			Detail("%s requires the graph capability", op).
			Build()
	}
	return nil
}

// Verify checks that c was handed out by g.
func (c *Capability) Verify(g *Graph) error {
	if err := c.check("operation"); err != nil {
		return err
	}
	if c.g != g {
		return errors.New(errors.PhaseCapability, errors.KindAccess).
			Detail("capability belongs to another graph").
			Build()
	}
	return nil
}

// Graph is the host's view of all published layers.
type Graph struct {
	boot     *Layer
	view     atomic.Pointer[view]
	publish  sync.Mutex
	unlocked atomic.Bool
}

type view struct {
	packages map[string]*Module
	names    map[string]*Module
	layers   []*Layer
}

// New creates a graph rooted at the boot layer. layers are published
// immediately, in order, and must descend from boot.
func New(boot *Layer, layers ...*Layer) (*Graph, error) {
	if boot == nil || !boot.boot {
		return nil, errors.InvalidInput(errors.PhaseDefine, "graph requires a boot layer")
	}
	g := &Graph{boot: boot}
	v := &view{
		packages: make(map[string]*Module),
		names:    make(map[string]*Module),
	}
	v.add(boot)
	for _, l := range layers {
		if err := v.admit(l); err != nil {
			return nil, err
		}
		v.add(l)
	}
	g.view.Store(v)
	return g, nil
}

func (g *Graph) Boot() *Layer { return g.boot }

// Unlock returns the graph capability. Only the first call succeeds.
func (g *Graph) Unlock() (*Capability, error) {
	if !g.unlocked.CompareAndSwap(false, true) {
		return nil, errors.New(errors.PhaseCapability, errors.KindAlreadyDone).
			Detail("capability already handed out").
			Build()
	}
	Logger().Debug("graph capability unlocked")
	return &Capability{g: g}, nil
}

// Publish makes layer visible to module and package lookups. The layer's
// parents must already be published.
func (g *Graph) Publish(c *Capability, layer *Layer) error {
	if err := c.Verify(g); err != nil {
		return err
	}

	g.publish.Lock()
	defer g.publish.Unlock()

	cur := g.view.Load()
	if err := cur.admit(layer); err != nil {
		return err
	}

	next := cur.clone()
	next.add(layer)
	g.view.Store(next)

	names := make([]string, len(layer.order))
	for i, m := range layer.order {
		names[i] = m.Name()
	}
	Logger().Info("published layer", zap.Strings("modules", names))
	return nil
}

// Layers returns the published layers, boot first.
func (g *Graph) Layers() []*Layer {
	return append([]*Layer(nil), g.view.Load().layers...)
}

// FindModule returns the published module named name.
func (g *Graph) FindModule(name string) *Module {
	return g.view.Load().names[name]
}

// ModuleForPackage returns the published module containing pkg.
func (g *Graph) ModuleForPackage(pkg string) *Module {
	return g.view.Load().packages[pkg]
}

// Modules returns every published module, layer by layer.
func (g *Graph) Modules() []*Module {
	var out []*Module
	for _, l := range g.view.Load().layers {
		out = append(out, l.order...)
	}
	return out
}

func (v *view) admit(layer *Layer) error {
	if slices.Contains(v.layers, layer) {
		return errors.New(errors.PhaseDefine, errors.KindDuplicate).
			Detail("layer already published").
			Build()
	}
	for _, p := range layer.parents {
		if !slices.Contains(v.layers, p) {
			return errors.InvalidInput(errors.PhaseDefine, "parent layer not published")
		}
	}
	return nil
}

func (v *view) clone() *view {
	n := &view{
		packages: make(map[string]*Module, len(v.packages)),
		names:    make(map[string]*Module, len(v.names)),
		layers:   append([]*Layer(nil), v.layers...),
	}
	for k, m := range v.packages {
		n.packages[k] = m
	}
	for k, m := range v.names {
		n.names[k] = m
	}
	return n
}

func (v *view) add(l *Layer) {
	v.layers = append(v.layers, l)
	for _, m := range l.order {
		if _, ok := v.names[m.Name()]; !ok {
			v.names[m.Name()] = m
		}
		for _, pkg := range m.descriptor.packages {
			if _, ok := v.packages[pkg]; !ok {
				v.packages[pkg] = m
			}
		}
	}
}

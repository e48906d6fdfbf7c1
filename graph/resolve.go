package graph

import (
	"slices"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
)

// ResolvedModule is a module selected by resolution.
type ResolvedModule struct {
	config     *Configuration
	descriptor *Descriptor
	reference  *Reference
	reads      []*ResolvedModule
}

func (m *ResolvedModule) Name() string { return m.descriptor.name }
func (m *ResolvedModule) Descriptor() *Descriptor { return m.descriptor }
func (m *ResolvedModule) Reference() *Reference { return m.reference }
func (m *ResolvedModule) Configuration() *Configuration { return m.config }

// Reads returns the modules this module reads, including those granted
// through transitive requirements.
func (m *ResolvedModule) Reads() []*ResolvedModule {
	return slices.Clone(m.reads)
}

// Configuration is the result of resolution: a set of modules and their
// readability, on top of zero or more parent configurations.
type Configuration struct {
	parents []*Configuration
	modules map[string]*ResolvedModule
	order   []*ResolvedModule
}

// Parents returns the parent configurations.
func (c *Configuration) Parents() []*Configuration { return slices.Clone(c.parents) }

// Modules returns the modules in resolution order.
func (c *Configuration) Modules() []*ResolvedModule { return slices.Clone(c.order) }

// FindModule searches c and then its parents, depth first.
func (c *Configuration) FindModule(name string) *ResolvedModule {
	if m, ok := c.modules[name]; ok {
		return m
	}
	for _, p := range c.parents {
		if m := p.FindModule(name); m != nil {
			return m
		}
	}
	return nil
}

func (c *Configuration) all() []*ResolvedModule {
	out := slices.Clone(c.order)
	for _, p := range c.parents {
		out = append(out, p.all()...)
	}
	return out
}

// NewBootConfiguration resolves builders that must all be present and
// satisfy each other, with no parent. It is how the host creates its boot
// configuration.
func NewBootConfiguration(builders ...*DescriptorBuilder) (*Configuration, error) {
	refs := make([]*Reference, len(builders))
	roots := make([]string, len(builders))
	for i, b := range builders {
		refs[i] = &Reference{Builder: b, Location: "boot"}
		roots[i] = b.Name()
	}
	return ResolveAndBind(OfReferences(refs...), nil, Empty(), roots)
}

type resolver struct {
	before  Finder
	after   Finder
	parents []*Configuration
	cfg     *Configuration
	queue   []*ResolvedModule
}

// ResolveAndBind resolves roots and their transitive requirements. Modules
// are located with before, then in the parents, then with after. Service
// providers found by either finder are added for every service a resolved
// module uses. Every descriptor resolved from a finder is sealed.
func ResolveAndBind(before Finder, parents []*Configuration, after Finder, roots []string) (*Configuration, error) {
	r := &resolver{
		before:  before,
		after:   after,
		parents: parents,
		cfg: &Configuration{
			parents: slices.Clone(parents),
			modules: make(map[string]*ResolvedModule),
		},
	}

	for _, name := range roots {
		m, err := r.find(name)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
				Component(name).
				Detail("root module not found").
				Build()
		}
	}

	if err := r.drain(); err != nil {
		return nil, err
	}
	if err := r.bind(); err != nil {
		return nil, err
	}
	if err := r.link(); err != nil {
		return nil, err
	}

	names := make([]string, len(r.cfg.order))
	for i, m := range r.cfg.order {
		names[i] = m.Name()
	}
	Logger().Debug("resolved configuration", zap.Strings("roots", roots), zap.Strings("modules", names))
	return r.cfg, nil
}

// find returns the module named name, adding it to the configuration when
// it comes from a finder. It returns nil when no source has it.
func (r *resolver) find(name string) (*ResolvedModule, error) {
	if m, ok := r.cfg.modules[name]; ok {
		return m, nil
	}

	ref, err := r.before.Find(name)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		for _, p := range r.parents {
			if m := p.FindModule(name); m != nil {
				return m, nil
			}
		}
		if ref, err = r.after.Find(name); err != nil {
			return nil, err
		}
	}
	if ref == nil {
		return nil, nil
	}
	return r.add(ref)
}

func (r *resolver) add(ref *Reference) (*ResolvedModule, error) {
	d, err := ref.Builder.Seal()
	if err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Component(ref.Name()).
			Path(ref.Location).
			Cause(err).
			Detail("seal descriptor").
			Build()
	}
	m := &ResolvedModule{config: r.cfg, descriptor: d, reference: ref}
	r.cfg.modules[d.name] = m
	r.cfg.order = append(r.cfg.order, m)
	r.queue = append(r.queue, m)
	return m, nil
}

func (r *resolver) drain() error {
	for len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		for _, req := range m.descriptor.requires {
			dep, err := r.find(req.Name)
			if err != nil {
				return err
			}
			if dep == nil {
				if req.Static() {
					continue
				}
				return errors.New(errors.PhaseResolve, errors.KindMissingRequire).
					Component(m.Name()).
					Value(req.Name).
					Detail("module %s not found, required by %s", req.Name, m.Name()).
					Build()
			}
			if err := checkVersion(m, req, dep.descriptor); err != nil {
				return err
			}
		}
	}
	return nil
}

// bind adds service providers until no module of the configuration or its
// parents uses a service with an unresolved provider.
func (r *resolver) bind() error {
	candidates, err := r.providers()
	if err != nil {
		return err
	}
	var inherited []*ResolvedModule
	for _, p := range r.parents {
		inherited = append(inherited, p.all()...)
	}
	for {
		added := false
		for _, m := range append(slices.Clone(r.cfg.order), inherited...) {
			for _, svc := range m.descriptor.uses {
				for _, ref := range candidates[svc] {
					if _, ok := r.cfg.modules[ref.Name()]; ok {
						continue
					}
					if r.inParents(ref.Name()) {
						continue
					}
					if _, err := r.add(ref); err != nil {
						return err
					}
					added = true
				}
			}
		}
		if !added {
			return nil
		}
		if err := r.drain(); err != nil {
			return err
		}
	}
}

func (r *resolver) providers() (map[string][]*Reference, error) {
	out := make(map[string][]*Reference)
	for _, f := range []Finder{r.before, r.after} {
		refs, err := f.FindAll()
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			for _, p := range ref.Builder.provides {
				out[p.Service] = append(out[p.Service], ref)
			}
		}
	}
	return out, nil
}

func (r *resolver) inParents(name string) bool {
	for _, p := range r.parents {
		if p.FindModule(name) != nil {
			return true
		}
	}
	return false
}

// link computes readability: every module reads what it requires plus
// whatever those requirements re-export transitively.
func (r *resolver) link() error {
	for _, m := range r.cfg.order {
		seen := make(map[*ResolvedModule]bool)
		var visit func(d *Descriptor, direct bool)
		visit = func(d *Descriptor, direct bool) {
			for _, req := range d.requires {
				if !direct && !req.Transitive() {
					continue
				}
				dep := r.cfg.FindModule(req.Name)
				if dep == nil || dep == m || seen[dep] {
					continue
				}
				seen[dep] = true
				m.reads = append(m.reads, dep)
				visit(dep.descriptor, false)
			}
		}
		visit(m.descriptor, true)
	}
	return nil
}

func checkVersion(m *ResolvedModule, req Requirement, target *Descriptor) error {
	if req.Constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(req.Constraint)
	if err != nil {
		return errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Component(m.Name()).
			Value(req.Constraint).
			Cause(err).
			Build()
	}
	if target.version == nil || !c.Check(target.version) {
		have := "unversioned"
		if target.version != nil {
			have = target.version.String()
		}
		return errors.New(errors.PhaseResolve, errors.KindVersionMismatch).
			Component(m.Name()).
			Path(req.Name).
			Value(have).
			Detail("requires %s %s, found %s", req.Name, req.Constraint, have).
			Build()
	}
	return nil
}

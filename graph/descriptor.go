package graph

import (
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/wippyai/nashorn-compat/errors"
)

// Modifier qualifies a requirement.
type Modifier uint8

const (
	// Static requirements are needed at build time only; resolution skips
	// them when the module cannot be found.
	Static Modifier = 1 << iota
	// Transitive requirements are read by every module reading the requirer.
	Transitive
)

// Requirement is one declared dependency.
type Requirement struct {
	Name       string
	Constraint string
	Modifiers  Modifier
}

// Static reports whether the requirement is optional at resolution time.
func (r Requirement) Static() bool { return r.Modifiers&Static != 0 }

// Transitive reports whether readers of the requirer also read the target.
func (r Requirement) Transitive() bool { return r.Modifiers&Transitive != 0 }

// Export declares an exported package. An empty Targets exports the package
// to every module.
type Export struct {
	Package string
	Targets []string
}

// Qualified reports whether the export names its targets.
func (e Export) Qualified() bool { return len(e.Targets) > 0 }

// Provide declares service implementations.
type Provide struct {
	Service string
	Impls   []string
}

// Descriptor is a sealed module description.
type Descriptor struct {
	version  *semver.Version
	name     string
	requires []Requirement
	exports  []Export
	packages []string
	provides []Provide
	uses     []string
	open     bool
}

func (d *Descriptor) Name() string { return d.name }

// Version returns the declared version, or nil when unversioned.
func (d *Descriptor) Version() *semver.Version { return d.version }

func (d *Descriptor) Open() bool { return d.open }

func (d *Descriptor) Requires() []Requirement { return cloneRequires(d.requires) }

func (d *Descriptor) Exports() []Export { return cloneExports(d.exports) }

func (d *Descriptor) Packages() []string { return slices.Clone(d.packages) }

func (d *Descriptor) Provides() []Provide {
	out := make([]Provide, len(d.provides))
	for i, p := range d.provides {
		out[i] = Provide{Service: p.Service, Impls: slices.Clone(p.Impls)}
	}
	return out
}

func (d *Descriptor) Uses() []string { return slices.Clone(d.uses) }

// RequiredNames returns the names of all requirements in declaration order.
func (d *Descriptor) RequiredNames() []string {
	out := make([]string, len(d.requires))
	for i, r := range d.requires {
		out[i] = r.Name
	}
	return out
}

// ContainsPackage reports whether pkg belongs to the module.
func (d *Descriptor) ContainsPackage(pkg string) bool {
	return slices.Contains(d.packages, pkg)
}

// ToBuilder returns an unsealed copy of d.
func (d *Descriptor) ToBuilder() *DescriptorBuilder {
	b := NewDescriptor(d.name)
	if d.version != nil {
		b.version = d.version.Original()
	}
	b.open = d.open
	b.requires = cloneRequires(d.requires)
	b.exports = cloneExports(d.exports)
	b.packages = slices.Clone(d.packages)
	b.provides = d.Provides()
	b.uses = slices.Clone(d.uses)
	return b
}

func (d *Descriptor) String() string {
	if d.version == nil {
		return d.name
	}
	return d.name + "@" + d.version.String()
}

// DescriptorBuilder accumulates a module description. Builders are plain
// data until Seal; after Seal every mutation is rejected.
type DescriptorBuilder struct {
	sealed   *Descriptor
	err      error
	name     string
	version  string
	requires []Requirement
	exports  []Export
	packages []string
	provides []Provide
	uses     []string
	open     bool
}

// NewDescriptor starts a descriptor for module name.
func NewDescriptor(name string) *DescriptorBuilder {
	return &DescriptorBuilder{name: name}
}

func (b *DescriptorBuilder) Name() string { return b.name }

// Sealed reports whether Seal has succeeded.
func (b *DescriptorBuilder) Sealed() bool { return b.sealed != nil }

func (b *DescriptorBuilder) mutable(op string) bool {
	if b.sealed == nil {
		return true
	}
	if b.err == nil {
		b.err = errors.Sealed(b.name, op)
	}
	return false
}

func (b *DescriptorBuilder) Version(v string) *DescriptorBuilder {
	if b.mutable("version") {
		b.version = v
	}
	return b
}

func (b *DescriptorBuilder) Open(open bool) *DescriptorBuilder {
	if b.mutable("open") {
		b.open = open
	}
	return b
}

// Requires adds a requirement. constraint may be empty.
func (b *DescriptorBuilder) Requires(name, constraint string, mods ...Modifier) *DescriptorBuilder {
	if !b.mutable("requires") {
		return b
	}
	var m Modifier
	for _, mod := range mods {
		m |= mod
	}
	b.requires = append(b.requires, Requirement{Name: name, Constraint: constraint, Modifiers: m})
	return b
}

// Exports exports pkg, to targets only when any are given. The package is
// added to the module's package set.
func (b *DescriptorBuilder) Exports(pkg string, targets ...string) *DescriptorBuilder {
	if !b.mutable("exports") {
		return b
	}
	b.exports = append(b.exports, Export{Package: pkg, Targets: slices.Clone(targets)})
	b.addPackage(pkg)
	return b
}

func (b *DescriptorBuilder) Packages(pkgs ...string) *DescriptorBuilder {
	if !b.mutable("packages") {
		return b
	}
	for _, p := range pkgs {
		b.addPackage(p)
	}
	return b
}

func (b *DescriptorBuilder) Provides(service string, impls ...string) *DescriptorBuilder {
	if !b.mutable("provides") {
		return b
	}
	b.provides = append(b.provides, Provide{Service: service, Impls: slices.Clone(impls)})
	for _, impl := range impls {
		if i := strings.LastIndexByte(impl, '.'); i > 0 {
			b.addPackage(impl[:i])
		}
	}
	return b
}

func (b *DescriptorBuilder) Uses(services ...string) *DescriptorBuilder {
	if b.mutable("uses") {
		b.uses = append(b.uses, services...)
	}
	return b
}

// DropRequires removes every requirement matching pred and returns the
// removed names. Remaining requirements keep their relative order.
func (b *DescriptorBuilder) DropRequires(pred func(Requirement) bool) []string {
	if !b.mutable("drop requires") {
		return nil
	}
	var dropped []string
	kept := b.requires[:0]
	for _, r := range b.requires {
		if pred(r) {
			dropped = append(dropped, r.Name)
			continue
		}
		kept = append(kept, r)
	}
	clear(b.requires[len(kept):])
	b.requires = kept
	return dropped
}

// RequiredNames returns the current requirement names in order.
func (b *DescriptorBuilder) RequiredNames() []string {
	out := make([]string, len(b.requires))
	for i, r := range b.requires {
		out[i] = r.Name
	}
	return out
}

// Seal validates the builder and freezes it. Sealing twice returns the same
// descriptor.
func (b *DescriptorBuilder) Seal() (*Descriptor, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.sealed != nil {
		return b.sealed, nil
	}
	if b.name == "" {
		return nil, errors.InvalidInput(errors.PhaseDescriptor, "module name cannot be empty")
	}

	d := &Descriptor{
		name:     b.name,
		open:     b.open,
		requires: cloneRequires(b.requires),
		exports:  cloneExports(b.exports),
		packages: slices.Clone(b.packages),
		provides: make([]Provide, len(b.provides)),
		uses:     slices.Clone(b.uses),
	}
	for i, p := range b.provides {
		d.provides[i] = Provide{Service: p.Service, Impls: slices.Clone(p.Impls)}
	}

	if b.version != "" {
		v, err := semver.NewVersion(b.version)
		if err != nil {
			return nil, errors.New(errors.PhaseDescriptor, errors.KindInvalidData).
				Component(b.name).
				Value(b.version).
				Cause(err).
				Detail("invalid version").
				Build()
		}
		d.version = v
	}

	seen := make(map[string]bool, len(d.requires))
	for _, r := range d.requires {
		if r.Name == b.name {
			return nil, errors.New(errors.PhaseDescriptor, errors.KindInvalidData).
				Component(b.name).
				Detail("module requires itself").
				Build()
		}
		if seen[r.Name] {
			return nil, errors.New(errors.PhaseDescriptor, errors.KindDuplicate).
				Component(b.name).
				Value(r.Name).
				Detail("duplicate requirement").
				Build()
		}
		seen[r.Name] = true
		if r.Constraint != "" {
			if _, err := semver.NewConstraint(r.Constraint); err != nil {
				return nil, errors.New(errors.PhaseDescriptor, errors.KindInvalidData).
					Component(b.name).
					Path(r.Name).
					Value(r.Constraint).
					Cause(err).
					Detail("invalid version constraint").
					Build()
			}
		}
	}

	b.sealed = d
	return d, nil
}

func (b *DescriptorBuilder) addPackage(pkg string) {
	if pkg != "" && !slices.Contains(b.packages, pkg) {
		b.packages = append(b.packages, pkg)
	}
}

func cloneRequires(in []Requirement) []Requirement {
	return slices.Clone(in)
}

func cloneExports(in []Export) []Export {
	out := make([]Export, len(in))
	for i, e := range in {
		out[i] = Export{Package: e.Package, Targets: slices.Clone(e.Targets)}
	}
	return out
}

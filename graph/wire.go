package graph

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/wasm"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("graph: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireRequire struct {
	Name       string   `cbor:"1,keyasint"`
	Constraint string   `cbor:"2,keyasint,omitempty"`
	Modifiers  Modifier `cbor:"3,keyasint,omitempty"`
}

type wireExport struct {
	Package string   `cbor:"1,keyasint"`
	Targets []string `cbor:"2,keyasint,omitempty"`
}

type wireProvide struct {
	Service string   `cbor:"1,keyasint"`
	Impls   []string `cbor:"2,keyasint"`
}

type wireDescriptor struct {
	Name     string        `cbor:"1,keyasint"`
	Version  string        `cbor:"2,keyasint,omitempty"`
	Open     bool          `cbor:"3,keyasint,omitempty"`
	Requires []wireRequire `cbor:"4,keyasint,omitempty"`
	Exports  []wireExport  `cbor:"5,keyasint,omitempty"`
	Packages []string      `cbor:"6,keyasint,omitempty"`
	Provides []wireProvide `cbor:"7,keyasint,omitempty"`
	Uses     []string      `cbor:"8,keyasint,omitempty"`
}

// MarshalDescriptor encodes a sealed descriptor as canonical CBOR.
func MarshalDescriptor(d *Descriptor) ([]byte, error) {
	w := wireDescriptor{
		Name:     d.name,
		Open:     d.open,
		Packages: d.packages,
		Uses:     d.uses,
	}
	if d.version != nil {
		w.Version = d.version.Original()
	}
	for _, r := range d.requires {
		w.Requires = append(w.Requires, wireRequire(r))
	}
	for _, e := range d.exports {
		w.Exports = append(w.Exports, wireExport(e))
	}
	for _, p := range d.provides {
		w.Provides = append(w.Provides, wireProvide(p))
	}
	return cborEncMode.Marshal(&w)
}

// UnmarshalDescriptor decodes a descriptor into an unsealed builder.
func UnmarshalDescriptor(data []byte) (*DescriptorBuilder, error) {
	var w wireDescriptor
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(errors.PhaseDescriptor, errors.KindInvalidData, err, "decode descriptor")
	}
	if w.Name == "" {
		return nil, errors.InvalidData(errors.PhaseDescriptor, nil, "descriptor has no module name")
	}

	b := NewDescriptor(w.Name).Version(w.Version).Open(w.Open)
	for _, r := range w.Requires {
		b.Requires(r.Name, r.Constraint, r.Modifiers)
	}
	b.Packages(w.Packages...)
	for _, e := range w.Exports {
		b.Exports(e.Package, e.Targets...)
	}
	for _, p := range w.Provides {
		b.Provides(p.Service, p.Impls...)
	}
	b.Uses(w.Uses...)
	return b, nil
}

// ReadDescriptor extracts the descriptor embedded in a code unit.
func ReadDescriptor(code []byte) (*DescriptorBuilder, error) {
	unit, err := wasm.Parse(code)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "parse component")
	}
	data, ok := unit.CustomSection(wasm.DescriptorSectionName)
	if !ok {
		return nil, errors.NotFound(errors.PhaseDescriptor, "section", wasm.DescriptorSectionName)
	}
	return UnmarshalDescriptor(data)
}

// EmbedDescriptor returns a component with d stored in its descriptor
// section, replacing any existing one.
func EmbedDescriptor(code []byte, d *Descriptor) ([]byte, error) {
	data, err := MarshalDescriptor(d)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDescriptor, errors.KindInvalidData, err, "encode descriptor")
	}
	unit, err := wasm.Parse(code)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "parse component")
	}
	for i := range unit.Customs {
		if unit.Customs[i].Name == wasm.DescriptorSectionName {
			unit.Customs[i].Data = data
			return unit.Encode(), nil
		}
	}
	return wasm.AppendCustom(unit.Encode(), wasm.DescriptorSectionName, data), nil
}

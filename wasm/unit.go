package wasm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wippyai/nashorn-compat/wasm/internal/binary"
)

// Parsing errors returned by Parse.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// Import is one entry of the import section. Desc holds the encoded
// descriptor after the kind byte and is never interpreted beyond its length.
type Import struct {
	Module string
	Name   string
	Desc   []byte
	Kind   byte
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Index uint32
	Kind  byte
}

// Custom is a custom section. Data aliases the parsed input.
type Custom struct {
	Name string
	Data []byte
}

type section struct {
	payload []byte
	custom  int
	id      byte
}

// Unit is the structural view of one code unit. A Unit is owned by the
// caller that parsed it and must not be shared between goroutines.
type Unit struct {
	Names     *Names
	Imports   []Import
	Exports   []Export
	Customs   []Custom
	Constants []string

	sections []section
	orig     snapshot
	nameIdx  int
	constIdx int
}

type snapshot struct {
	names     *Names
	imports   []Import
	exports   []Export
	customs   []Custom
	constants []string
}

// Parse builds the structural view of a core module.
func Parse(data []byte) (*Unit, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	u := &Unit{nameIdx: -1, constIdx: -1}
	var lastOrder int

	for r.Len() > 0 {
		id, _ := r.ReadByte()
		if id != SectionCustom {
			order := sectionOrder(id)
			if order == 0 {
				return nil, fmt.Errorf("unknown section ID: 0x%02x", id)
			}
			if order <= lastOrder {
				return nil, fmt.Errorf("section %d appears out of order", id)
			}
			lastOrder = order
		}

		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError("section data", err)
		}

		s := section{id: id, payload: payload, custom: -1}
		sr := binary.NewReader(payload)

		switch id {
		case SectionImport:
			if u.Imports, err = parseImports(sr); err != nil {
				return nil, fmt.Errorf("import section: %w", err)
			}
		case SectionExport:
			if u.Exports, err = parseExports(sr); err != nil {
				return nil, fmt.Errorf("export section: %w", err)
			}
		case SectionCustom:
			name, err := sr.ReadName()
			if err != nil {
				return nil, sr.WrapError("custom section", err)
			}
			c := Custom{Name: name, Data: sr.Remaining()}
			s.custom = len(u.Customs)
			u.Customs = append(u.Customs, c)

			switch {
			case name == NameSectionName && u.nameIdx < 0:
				if u.Names, err = DecodeNames(c.Data); err != nil {
					return nil, fmt.Errorf("name section: %w", err)
				}
				u.nameIdx = s.custom
			case name == ConstPoolSectionName && u.constIdx < 0:
				if u.Constants, err = DecodeConstants(c.Data); err != nil {
					return nil, fmt.Errorf("constant pool: %w", err)
				}
				u.constIdx = s.custom
			}
		}

		u.sections = append(u.sections, s)
	}

	u.orig = snapshot{
		imports:   append([]Import(nil), u.Imports...),
		exports:   append([]Export(nil), u.Exports...),
		customs:   append([]Custom(nil), u.Customs...),
		constants: append([]string(nil), u.Constants...),
		names:     u.Names.Clone(),
	}
	return u, nil
}

// Modified reports whether any decoded part differs from the parsed input.
func (u *Unit) Modified() bool {
	return u.importsChanged() || u.exportsChanged() || u.namesChanged() || u.constantsChanged() || u.anyCustomChanged()
}

// Encode re-materializes the unit. Untouched sections are copied verbatim.
func (u *Unit) Encode() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	importsChanged := u.importsChanged()
	exportsChanged := u.exportsChanged()

	for _, s := range u.sections {
		switch {
		case s.id == SectionImport && importsChanged:
			w.Section(s.id, encodeImports(u.Imports))
		case s.id == SectionExport && exportsChanged:
			w.Section(s.id, encodeExports(u.Exports))
		case s.id == SectionCustom:
			if payload, ok := u.customPayload(s.custom); ok {
				w.Section(s.id, payload)
			} else {
				w.Section(s.id, s.payload)
			}
		default:
			w.Section(s.id, s.payload)
		}
	}
	return w.Bytes()
}

// customPayload returns the re-encoded payload of custom section i, or
// false when the section is unchanged.
func (u *Unit) customPayload(i int) ([]byte, bool) {
	c := u.Customs[i]
	data := c.Data
	changed := c.Name != u.orig.customs[i].Name || !bytes.Equal(c.Data, u.orig.customs[i].Data)

	switch i {
	case u.nameIdx:
		if u.namesChanged() {
			data = u.Names.Encode()
			changed = true
		}
	case u.constIdx:
		if u.constantsChanged() {
			data = EncodeConstants(u.Constants)
			changed = true
		}
	}
	if !changed {
		return nil, false
	}

	w := binary.NewWriter()
	w.WriteName(c.Name)
	w.WriteBytes(data)
	return w.Bytes(), true
}

func (u *Unit) importsChanged() bool {
	if len(u.Imports) != len(u.orig.imports) {
		return true
	}
	for i, imp := range u.Imports {
		o := u.orig.imports[i]
		if imp.Module != o.Module || imp.Name != o.Name || imp.Kind != o.Kind || !bytes.Equal(imp.Desc, o.Desc) {
			return true
		}
	}
	return false
}

func (u *Unit) exportsChanged() bool {
	if len(u.Exports) != len(u.orig.exports) {
		return true
	}
	for i, exp := range u.Exports {
		if exp != u.orig.exports[i] {
			return true
		}
	}
	return false
}

func (u *Unit) namesChanged() bool {
	return !u.Names.Equal(u.orig.names)
}

func (u *Unit) constantsChanged() bool {
	if len(u.Constants) != len(u.orig.constants) {
		return true
	}
	for i, c := range u.Constants {
		if c != u.orig.constants[i] {
			return true
		}
	}
	return false
}

func (u *Unit) anyCustomChanged() bool {
	for i, c := range u.Customs {
		o := u.orig.customs[i]
		if c.Name != o.Name || !bytes.Equal(c.Data, o.Data) {
			return true
		}
	}
	return false
}

// CustomSection returns the payload of the first custom section named name.
func (u *Unit) CustomSection(name string) ([]byte, bool) {
	for _, c := range u.Customs {
		if c.Name == name {
			return c.Data, true
		}
	}
	return nil, false
}

func parseImports(r *binary.Reader) ([]Import, error) {
	count, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	imports := make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("import kind", err)
		}
		start := r.Position()
		if err := skipImportDesc(r, kind); err != nil {
			return nil, fmt.Errorf("import %s#%s: %w", module, name, err)
		}
		imports = append(imports, Import{
			Module: module,
			Name:   name,
			Kind:   kind,
			Desc:   r.Since(start),
		})
	}
	if r.Len() != 0 {
		return nil, r.WrapError("import section", errors.New("trailing bytes"))
	}
	return imports, nil
}

func parseExports(r *binary.Reader) ([]Export, error) {
	count, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	exports := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("export kind", err)
		}
		if kind > KindTag {
			return nil, fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		exports = append(exports, Export{Name: name, Kind: kind, Index: idx})
	}
	if r.Len() != 0 {
		return nil, r.WrapError("export section", errors.New("trailing bytes"))
	}
	return exports, nil
}

func skipImportDesc(r *binary.Reader, kind byte) error {
	switch kind {
	case KindFunc:
		_, err := r.ReadU32()
		return err
	case KindTable:
		if err := skipRefType(r); err != nil {
			return err
		}
		return skipLimits(r)
	case KindMemory:
		return skipLimits(r)
	case KindGlobal:
		if err := skipValType(r); err != nil {
			return err
		}
		_, err := r.ReadByte()
		return err
	case KindTag:
		if _, err := r.ReadByte(); err != nil {
			return err
		}
		_, err := r.ReadU32()
		return err
	default:
		return fmt.Errorf("unknown import kind: %d", kind)
	}
}

func skipValType(r *binary.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	if ValType(b) == ValRef || ValType(b) == ValRefNull {
		_, err = r.ReadS64()
	}
	return err
}

func skipRefType(r *binary.Reader) error {
	return skipValType(r)
}

func skipLimits(r *binary.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	read := func() error {
		if flags&limitsMem64 != 0 {
			_, err := r.ReadU64()
			return err
		}
		_, err := r.ReadU32()
		return err
	}
	if err := read(); err != nil {
		return err
	}
	if flags&limitsHasMax != 0 {
		if err := read(); err != nil {
			return err
		}
	}
	if flags&limitsPageSize != 0 {
		if _, err := r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}

func encodeImports(imports []Import) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(imports)))
	for _, imp := range imports {
		w.WriteName(imp.Module)
		w.WriteName(imp.Name)
		w.Byte(imp.Kind)
		w.WriteBytes(imp.Desc)
	}
	return w.Bytes()
}

func encodeExports(exports []Export) []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(exports)))
	for _, exp := range exports {
		w.WriteName(exp.Name)
		w.Byte(exp.Kind)
		w.WriteU32(exp.Index)
	}
	return w.Bytes()
}

// sectionOrder returns the canonical position of a non-custom section, or 0
// for unknown IDs. Tag sits between memory and global, data count before code.
func sectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionTag:
		return 6
	case SectionGlobal:
		return 7
	case SectionExport:
		return 8
	case SectionStart:
		return 9
	case SectionElement:
		return 10
	case SectionDataCount:
		return 11
	case SectionCode:
		return 12
	case SectionData:
		return 13
	default:
		return 0
	}
}

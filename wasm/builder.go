package wasm

import (
	"fmt"

	"github.com/wippyai/nashorn-compat/wasm/internal/binary"
)

// Instr is one encoded instruction.
type Instr []byte

// Opcodes used by the builder helpers.
const (
	opEnd      byte = 0x0b
	opDrop     byte = 0x1a
	opCall     byte = 0x10
	opLocalGet byte = 0x20
	opI32Const byte = 0x41
	opI64Const byte = 0x42
	opF64Const byte = 0x44
)

// I32Const pushes an i32 constant.
func I32Const(v int32) Instr {
	w := binary.NewWriter()
	w.Byte(opI32Const)
	w.WriteS64(int64(v))
	return w.Bytes()
}

// I64Const pushes an i64 constant.
func I64Const(v int64) Instr {
	w := binary.NewWriter()
	w.Byte(opI64Const)
	w.WriteS64(v)
	return w.Bytes()
}

// F64Const pushes an f64 constant.
func F64Const(v float64) Instr {
	w := binary.NewWriter()
	w.Byte(opF64Const)
	w.WriteF64(v)
	return w.Bytes()
}

// LocalGet pushes local idx.
func LocalGet(idx uint32) Instr {
	w := binary.NewWriter()
	w.Byte(opLocalGet)
	w.WriteU32(idx)
	return w.Bytes()
}

// Call calls function idx.
func Call(idx uint32) Instr {
	w := binary.NewWriter()
	w.Byte(opCall)
	w.WriteU32(idx)
	return w.Bytes()
}

// Drop discards the top of the stack.
func Drop() Instr {
	return Instr{opDrop}
}

type funcType struct {
	params  []ValType
	results []ValType
}

func (f funcType) key() string {
	return fmt.Sprint(f.params, f.results)
}

type builderImport struct {
	module string
	name   string
	typ    uint32
}

type builderFunc struct {
	name string
	body []Instr
	typ  uint32
}

type builderData struct {
	bytes  []byte
	offset uint32
}

// Builder synthesizes a core module. Function imports must be declared
// before any defined function so that returned indices stay stable.
type Builder struct {
	typeIdx   map[string]uint32
	types     []funcType
	imports   []builderImport
	funcs     []builderFunc
	data      []builderData
	customs   []Custom
	constants []string
	funcNames []NameAssoc
	modName   string
	memPages  uint32
	hasMemory bool
	hasConsts bool
}

// NewBuilder creates an empty module builder.
func NewBuilder() *Builder {
	return &Builder{typeIdx: make(map[string]uint32)}
}

func (b *Builder) typeOf(params, results []ValType) uint32 {
	ft := funcType{params: params, results: results}
	k := ft.key()
	if idx, ok := b.typeIdx[k]; ok {
		return idx
	}
	idx := uint32(len(b.types))
	b.types = append(b.types, ft)
	b.typeIdx[k] = idx
	return idx
}

// ImportFunc declares a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, params, results []ValType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasm: ImportFunc after Func")
	}
	b.imports = append(b.imports, builderImport{
		module: module,
		name:   name,
		typ:    b.typeOf(params, results),
	})
	return uint32(len(b.imports) - 1)
}

// Func defines and exports a function, returning its function index.
func (b *Builder) Func(name string, params, results []ValType, body ...Instr) uint32 {
	b.funcs = append(b.funcs, builderFunc{
		name: name,
		typ:  b.typeOf(params, results),
		body: body,
	})
	idx := uint32(len(b.imports) + len(b.funcs) - 1)
	b.funcNames = append(b.funcNames, NameAssoc{Index: idx, Name: name})
	return idx
}

// Memory defines one memory exported as "memory".
func (b *Builder) Memory(minPages uint32) {
	b.hasMemory = true
	b.memPages = minPages
}

// Data adds an active data segment at offset in memory 0.
func (b *Builder) Data(offset uint32, bytes []byte) {
	b.data = append(b.data, builderData{offset: offset, bytes: bytes})
}

// Custom appends a custom section.
func (b *Builder) Custom(name string, data []byte) {
	b.customs = append(b.customs, Custom{Name: name, Data: data})
}

// ModuleName sets the debug module name written to the name section.
func (b *Builder) ModuleName(name string) {
	b.modName = name
}

// Constants sets the string constant pool.
func (b *Builder) Constants(values ...string) {
	b.constants = values
	b.hasConsts = true
}

// Build encodes the module.
func (b *Builder) Build() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(b.types) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.types)))
		for _, t := range b.types {
			s.Byte(funcTypeByte)
			writeValTypes(s, t.params)
			writeValTypes(s, t.results)
		}
		w.Section(SectionType, s.Bytes())
	}

	if len(b.imports) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.imports)))
		for _, imp := range b.imports {
			s.WriteName(imp.module)
			s.WriteName(imp.name)
			s.Byte(KindFunc)
			s.WriteU32(imp.typ)
		}
		w.Section(SectionImport, s.Bytes())
	}

	if len(b.funcs) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.funcs)))
		for _, f := range b.funcs {
			s.WriteU32(f.typ)
		}
		w.Section(SectionFunction, s.Bytes())
	}

	if b.hasMemory {
		s := binary.NewWriter()
		s.WriteU32(1)
		s.Byte(0)
		s.WriteU32(b.memPages)
		w.Section(SectionMemory, s.Bytes())
	}

	exports := len(b.funcs)
	if b.hasMemory {
		exports++
	}
	if exports > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(exports))
		if b.hasMemory {
			s.WriteName("memory")
			s.Byte(KindMemory)
			s.WriteU32(0)
		}
		for i, f := range b.funcs {
			s.WriteName(f.name)
			s.Byte(KindFunc)
			s.WriteU32(uint32(len(b.imports) + i))
		}
		w.Section(SectionExport, s.Bytes())
	}

	if len(b.funcs) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.funcs)))
		for _, f := range b.funcs {
			body := binary.NewWriter()
			body.WriteU32(0) // no locals
			for _, in := range f.body {
				body.WriteBytes(in)
			}
			body.Byte(opEnd)
			s.WriteU32(uint32(body.Len()))
			s.WriteBytes(body.Bytes())
		}
		w.Section(SectionCode, s.Bytes())
	}

	if len(b.data) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(b.data)))
		for _, d := range b.data {
			s.WriteU32(0) // active, memory 0
			s.Byte(opI32Const)
			s.WriteS64(int64(int32(d.offset)))
			s.Byte(opEnd)
			s.WriteU32(uint32(len(d.bytes)))
			s.WriteBytes(d.bytes)
		}
		w.Section(SectionData, s.Bytes())
	}

	if b.modName != "" || len(b.funcNames) > 0 {
		n := &Names{Module: b.modName, HasModule: b.modName != "", Functions: b.funcNames}
		s := binary.NewWriter()
		s.WriteName(NameSectionName)
		s.WriteBytes(n.Encode())
		w.Section(SectionCustom, s.Bytes())
	}

	if b.hasConsts {
		s := binary.NewWriter()
		s.WriteName(ConstPoolSectionName)
		s.WriteBytes(EncodeConstants(b.constants))
		w.Section(SectionCustom, s.Bytes())
	}

	for _, c := range b.customs {
		s := binary.NewWriter()
		s.WriteName(c.Name)
		s.WriteBytes(c.Data)
		w.Section(SectionCustom, s.Bytes())
	}

	return w.Bytes()
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

// AppendCustom appends a custom section to an encoded module.
func AppendCustom(code []byte, name string, data []byte) []byte {
	s := binary.NewWriter()
	s.WriteName(name)
	s.WriteBytes(data)
	w := binary.NewWriter()
	w.Section(SectionCustom, s.Bytes())
	return append(code[:len(code):len(code)], w.Bytes()...)
}

package wasm

// Magic is the WebAssembly binary magic number "\0asm" read as little endian.
const Magic uint32 = 0x6d736100

// Version is the only supported binary format version.
const Version uint32 = 1

// Section IDs define the binary identifiers for each module section.
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
	SectionTag       byte = 13
)

// External kinds for imports and exports.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
	KindTag    byte = 4
)

// ValType is a core value type.
type ValType byte

// Value types.
const (
	ValI32       ValType = 0x7f
	ValI64       ValType = 0x7e
	ValF32       ValType = 0x7d
	ValF64       ValType = 0x7c
	ValV128      ValType = 0x7b
	ValFuncRef   ValType = 0x70
	ValExternRef ValType = 0x6f
	ValRef       ValType = 0x64
	ValRefNull   ValType = 0x63
)

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExternRef:
		return "externref"
	case ValRef:
		return "ref"
	case ValRefNull:
		return "ref null"
	default:
		return "unknown"
	}
}

// Custom section names understood by the host.
const (
	// NameSectionName is the standard debug-name section.
	NameSectionName = "name"

	// ConstPoolSectionName holds string constants referenced by guest code
	// through the host's const.get import.
	ConstPoolSectionName = "nashorn.constpool"

	// DescriptorSectionName holds a component's dependency descriptor.
	DescriptorSectionName = "nashorn.module"
)

const (
	limitsHasMax   byte = 0x01
	limitsMem64    byte = 0x04
	limitsPageSize byte = 0x08
)

const funcTypeByte byte = 0x60

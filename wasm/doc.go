// Package wasm provides the structural view of a code unit used by the
// load-time rewrite pipeline.
//
// A code unit is a core WebAssembly module. Parse splits it into sections and
// decodes only the name-bearing parts:
//
//	unit.Imports         module and field names of every import
//	unit.Exports         export names
//	unit.Customs         custom section names and payloads
//	unit.Names           the "name" custom section (module and function names)
//	unit.Constants       the "nashorn.constpool" custom section (string constants)
//
// Everything else stays opaque. Encode re-materializes the unit; sections whose
// decoded parts were not modified are copied verbatim, so a unit that was parsed
// and encoded without edits is byte-identical to the input.
//
// # Building
//
// Builder synthesizes small modules for host bridges and tests:
//
//	b := wasm.NewBuilder()
//	eval := b.ImportFunc("jdk/nashorn/api/scripting", "eval",
//		[]wasm.ValType{wasm.ValI32, wasm.ValI32}, []wasm.ValType{wasm.ValF64})
//	b.Memory(1)
//	b.Data(0, []byte("1+1"))
//	b.Func("run", nil, []wasm.ValType{wasm.ValF64},
//		wasm.I32Const(0), wasm.I32Const(3), wasm.Call(eval))
//	code := b.Build()
package wasm

package transform

import (
	"github.com/wippyai/nashorn-compat/remap"
	"github.com/wippyai/nashorn-compat/wasm"
)

// Result describes one transformation. Code is the input slice itself when
// Changed is false.
type Result struct {
	Code     []byte
	Bindings []remap.Binding
	Changed  bool
}

// Apply rewrites every legacy reference in code. Packages touched by
// prefix-form rewrites are reported to g, which may be nil.
func Apply(code []byte, g remap.Granter) (Result, error) {
	u, err := wasm.Parse(code)
	if err != nil {
		return Result{}, err
	}

	r := remap.New(g)
	visit(u, r)

	if !u.Modified() {
		return Result{Code: code}, nil
	}
	return Result{Code: u.Encode(), Bindings: r.Bindings(), Changed: true}, nil
}

func visit(u *wasm.Unit, r *remap.Remapper) {
	for i := range u.Imports {
		imp := &u.Imports[i]
		imp.Module = r.MapPackage(imp.Module)
		imp.Name = r.MapType(imp.Name)
	}
	for i := range u.Exports {
		u.Exports[i].Name = r.MapType(u.Exports[i].Name)
	}
	for i := range u.Customs {
		u.Customs[i].Name = r.MapType(u.Customs[i].Name)
	}
	if u.Names != nil {
		u.Names.Module = r.MapType(u.Names.Module)
		for i := range u.Names.Functions {
			u.Names.Functions[i].Name = r.MapType(u.Names.Functions[i].Name)
		}
	}
	for i, c := range u.Constants {
		u.Constants[i] = r.MapValue(c)
	}
}

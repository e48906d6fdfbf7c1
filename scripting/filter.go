package scripting

import (
	"slices"

	"github.com/dop251/goja"

	"github.com/wippyai/nashorn-compat/errors"
)

// ClassFilter decides which names scripts may resolve through Java.type.
type ClassFilter interface {
	Exposed(name string) bool
}

// ClassFilterFunc adapts a function to ClassFilter.
type ClassFilterFunc func(name string) bool

// Exposed calls f(name).
func (f ClassFilterFunc) Exposed(name string) bool { return f(name) }

// lookupType resolves name for Java.type: types defined on the engine
// first, then units defined by the engine's loader.
func (e *Engine) lookupType(vm *goja.Runtime, name string) (goja.Value, error) {
	if e.filter != nil && !e.filter.Exposed(name) {
		return nil, errors.NotFound(errors.PhaseScript, "class", name)
	}
	if v, ok := e.types[name]; ok {
		return vm.ToValue(v), nil
	}
	if e.loader != nil {
		if u := e.loader.Find(name); u != nil {
			var exports []string
			for export := range u.Compiled.ExportedFunctions() {
				exports = append(exports, export)
			}
			slices.Sort(exports)
			obj := vm.NewObject()
			_ = obj.Set("id", u.ID)
			_ = obj.Set("loader", u.Loader.Name())
			_ = obj.Set("exports", exports)
			return obj, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseScript, "class", name)
}

func (g *global) installJava() {
	java := g.vm.NewObject()
	_ = java.Set("type", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		v, err := g.engine.lookupType(g.vm, name)
		if err != nil {
			panic(g.vm.NewTypeError("java.lang.ClassNotFoundException: " + name))
		}
		return v
	})
	_ = g.vm.Set("Java", java)
}

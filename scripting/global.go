package scripting

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dop251/goja"
)

// global is one script global: a goja runtime plus the builtins the mirror
// operations rely on, captured before any script can replace them.
type global struct {
	vm     *goja.Runtime
	engine *Engine
	object *Mirror
	ctx    *Context

	objectCtor *goja.Object
	reflect    *goja.Object
	toString   goja.Callable
	toNumber   goja.Callable
}

func (e *Engine) newGlobal() *global {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	g := &global{vm: vm, engine: e}
	g.object = &Mirror{g: g, obj: vm.GlobalObject()}
	g.objectCtor = vm.Get("Object").ToObject(vm)
	g.reflect = vm.Get("Reflect").ToObject(vm)
	g.toString, _ = goja.AssertFunction(vm.Get("String"))
	g.toNumber, _ = goja.AssertFunction(vm.Get("Number"))

	_ = vm.Set("print", g.print)
	g.installJava()
	if e.args != nil {
		args := make([]any, len(e.args))
		for i, a := range e.args {
			args[i] = a
		}
		_ = vm.Set("arguments", vm.NewArray(args...))
	}
	return g
}

func (g *global) print(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		parts[i] = a.String()
	}
	ctx := g.ctx
	if ctx == nil {
		ctx = g.engine.ctx
	}
	fmt.Fprintln(ctx.writer(), strings.Join(parts, " "))
	return goja.Undefined()
}

// run executes src against g with ctx installed for builtins like print.
func (g *global) run(ctx *Context, name string, run func() (goja.Value, error)) (any, error) {
	prev := g.ctx
	g.ctx = ctx
	defer func() { g.ctx = prev }()

	v, err := run()
	if err != nil {
		return nil, newScriptError(name, err)
	}
	return g.export(v), nil
}

// builtin calls fn on the captured Object or Reflect constructor.
func (g *global) builtin(ns *goja.Object, fn string, args ...goja.Value) (goja.Value, error) {
	f, ok := goja.AssertFunction(ns.Get(fn))
	if !ok {
		return nil, noSuchMethod(fn)
	}
	return f(ns, args...)
}

var (
	typeMap   = reflect.TypeOf(map[string]any(nil))
	typeSlice = reflect.TypeOf([]any(nil))
	typeFunc  = reflect.TypeOf((func(goja.FunctionCall) goja.Value)(nil))
)

// export converts a script value to its Go form. Script objects become
// mirrors homed in g; host objects return the Go value they wrap.
func (g *global) export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) {
		return Undefined
	}
	if goja.IsNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.Export()
	}
	switch obj.ExportType() {
	case typeMap, typeSlice, typeFunc:
		return &Mirror{g: g, obj: obj}
	}
	if m, ok := obj.Export().(*Mirror); ok {
		return m
	}
	return obj.Export()
}

// value converts a Go value for use in g. Mirrors of other globals cross
// over as exported copies; held mirrors are unwrapped first.
func (g *global) value(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case undefined:
		return goja.Undefined()
	case goja.Value:
		return x
	case *Mirror:
		if x.g == g {
			return x.obj
		}
		return g.vm.ToValue(x.obj.Export())
	case MirrorHolder:
		if m := x.ScriptMirror(); m != nil {
			return g.value(m)
		}
		return goja.Null()
	default:
		return g.vm.ToValue(v)
	}
}

func (g *global) values(args []any) []goja.Value {
	out := make([]goja.Value, len(args))
	for i, a := range args {
		out[i] = g.value(a)
	}
	return out
}

func (g *global) defined(name string) bool {
	v := g.vm.GlobalObject().Get(name)
	return v != nil && !goja.IsUndefined(v)
}

// load copies the context's bindings into g. Engine-scope entries
// overwrite; global-scope entries fill names g does not define.
func (g *global) load(ctx *Context) {
	if b := ctx.Bindings(EngineScope); b != nil && b != Bindings(g.object) {
		for _, k := range b.Keys() {
			if k == NashornGlobal {
				continue
			}
			v, _ := b.Get(k)
			_ = g.vm.Set(k, g.value(v))
		}
	}
	if b := ctx.Bindings(GlobalScope); b != nil {
		for _, k := range b.Keys() {
			if g.defined(k) {
				continue
			}
			v, _ := b.Get(k)
			_ = g.vm.Set(k, g.value(v))
		}
	}
}

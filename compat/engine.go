package compat

import (
	"io"

	"github.com/wippyai/nashorn-compat/scripting"
)

// NashornGlobal is the bindings key under which an engine stores the global
// it created for those bindings.
const NashornGlobal = scripting.NashornGlobal

// ScriptEngine wraps a scripting.Engine.
type ScriptEngine struct {
	Instance *scripting.Engine
}

func (e *ScriptEngine) Context() *scripting.Context { return e.Instance.Context() }

func (e *ScriptEngine) SetContext(ctx *scripting.Context) error { return e.Instance.SetContext(ctx) }

func (e *ScriptEngine) Bindings(scope int) scripting.Bindings {
	return legacyBindings(e.Instance.Bindings(scope))
}

func (e *ScriptEngine) SetBindings(b scripting.Bindings, scope int) error {
	return e.Instance.SetBindings(instanceBindings(b), scope)
}

func (e *ScriptEngine) Put(key string, value any) {
	e.Instance.Put(key, fromLegacy(value))
}

func (e *ScriptEngine) Get(key string) any {
	return toLegacy(e.Instance.Get(key))
}

func (e *ScriptEngine) Eval(script string) (any, error) {
	return result(e.Instance.Eval(script))
}

func (e *ScriptEngine) EvalReader(r io.Reader) (any, error) {
	return result(e.Instance.EvalReader(r))
}

func (e *ScriptEngine) EvalBindings(script string, b scripting.Bindings) (any, error) {
	return result(e.Instance.EvalBindings(script, instanceBindings(b)))
}

func (e *ScriptEngine) EvalReaderBindings(r io.Reader, b scripting.Bindings) (any, error) {
	return result(e.Instance.EvalReaderBindings(r, instanceBindings(b)))
}

func (e *ScriptEngine) EvalContext(script string, ctx *scripting.Context) (any, error) {
	return result(e.Instance.EvalContext(script, ctx))
}

func (e *ScriptEngine) EvalReaderContext(r io.Reader, ctx *scripting.Context) (any, error) {
	return result(e.Instance.EvalReaderContext(r, ctx))
}

func (e *ScriptEngine) Factory() *ScriptEngineFactory {
	return WrapFactory(e.Instance.Factory())
}

func (e *ScriptEngine) CreateBindings() scripting.Bindings {
	return legacyBindings(e.Instance.CreateBindings())
}

// Compile returns the instance's compiled script; its results are not
// translated.
func (e *ScriptEngine) Compile(script string) (*scripting.CompiledScript, error) {
	return e.Instance.Compile(script)
}

func (e *ScriptEngine) CompileReader(r io.Reader) (*scripting.CompiledScript, error) {
	return e.Instance.CompileReader(r)
}

func (e *ScriptEngine) InvokeFunction(name string, args ...any) (any, error) {
	return result(e.Instance.InvokeFunction(name, ConvertArgs(args)...))
}

func (e *ScriptEngine) InvokeMethod(thiz any, name string, args ...any) (any, error) {
	return result(e.Instance.InvokeMethod(fromLegacy(thiz), name, ConvertArgs(args)...))
}

// Equals reports whether other wraps, or is, the same engine.
func (e *ScriptEngine) Equals(other any) bool {
	return e.Instance == fromLegacy(other)
}

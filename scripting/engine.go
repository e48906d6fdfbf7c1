package scripting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dop251/goja"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/host"
)

// NashornGlobal is the bindings key under which the global created for
// those bindings is stored.
const NashornGlobal = "nashorn.global"

// Script name used when evaluating text without a file name.
const evalName = "<eval>"

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the Go form of the script value undefined.
var Undefined any = undefined{}

// Engine evaluates scripts. It is not safe for concurrent use.
type Engine struct {
	factory *Factory
	global  *global
	ctx     *Context

	args   []string
	filter ClassFilter
	loader *host.Loader
	types  map[string]any
}

// Factory returns the factory that created e.
func (e *Engine) Factory() *Factory { return e.factory }

// Context returns the default context.
func (e *Engine) Context() *Context { return e.ctx }

// SetContext replaces the default context.
func (e *Engine) SetContext(ctx *Context) error {
	if ctx == nil {
		return errors.InvalidInput(errors.PhaseScript, "context cannot be nil")
	}
	e.ctx = ctx
	return nil
}

// Bindings returns the default context's bindings of scope.
func (e *Engine) Bindings(scope int) Bindings { return e.ctx.Bindings(scope) }

// SetBindings replaces the default context's bindings of scope.
func (e *Engine) SetBindings(b Bindings, scope int) error { return e.ctx.SetBindings(b, scope) }

// Put sets key in the engine scope.
func (e *Engine) Put(key string, value any) {
	e.ctx.Bindings(EngineScope).Put(key, value)
}

// Get reads key from the engine scope.
func (e *Engine) Get(key string) any {
	v, _ := e.ctx.Bindings(EngineScope).Get(key)
	return v
}

// CreateBindings returns a new global, usable as engine-scope bindings.
func (e *Engine) CreateBindings() Bindings {
	return e.newGlobal().object
}

// DefineType makes v resolvable from scripts as Java.type(name).
func (e *Engine) DefineType(name string, v any) {
	e.types[name] = v
}

// Eval evaluates script in the default context.
func (e *Engine) Eval(script string) (any, error) {
	return e.EvalContext(script, e.ctx)
}

// EvalReader evaluates the script read from r in the default context.
func (e *Engine) EvalReader(r io.Reader) (any, error) {
	script, err := readScript(r)
	if err != nil {
		return nil, err
	}
	return e.Eval(script)
}

// EvalBindings evaluates script with b as the engine scope.
func (e *Engine) EvalBindings(script string, b Bindings) (any, error) {
	return e.EvalContext(script, e.contextWith(b))
}

// EvalReaderBindings evaluates the script read from r with b as the engine
// scope.
func (e *Engine) EvalReaderBindings(r io.Reader, b Bindings) (any, error) {
	script, err := readScript(r)
	if err != nil {
		return nil, err
	}
	return e.EvalBindings(script, b)
}

// EvalContext evaluates script in ctx.
func (e *Engine) EvalContext(script string, ctx *Context) (any, error) {
	g := e.globalFor(ctx)
	return g.run(ctx, evalName, func() (goja.Value, error) {
		return g.vm.RunScript(evalName, script)
	})
}

// EvalReaderContext evaluates the script read from r in ctx.
func (e *Engine) EvalReaderContext(r io.Reader, ctx *Context) (any, error) {
	script, err := readScript(r)
	if err != nil {
		return nil, err
	}
	return e.EvalContext(script, ctx)
}

// Compile compiles script for repeated evaluation.
func (e *Engine) Compile(script string) (*CompiledScript, error) {
	p, err := goja.Compile(evalName, script, false)
	if err != nil {
		return nil, newScriptError(evalName, err)
	}
	return &CompiledScript{engine: e, program: p}, nil
}

// CompileReader compiles the script read from r.
func (e *Engine) CompileReader(r io.Reader) (*CompiledScript, error) {
	script, err := readScript(r)
	if err != nil {
		return nil, err
	}
	return e.Compile(script)
}

// InvokeFunction calls the global function name.
func (e *Engine) InvokeFunction(name string, args ...any) (any, error) {
	g := e.globalFor(e.ctx)
	return g.object.CallMember(name, args...)
}

// InvokeMethod calls method name of thiz, which must be a mirror.
func (e *Engine) InvokeMethod(thiz any, name string, args ...any) (any, error) {
	m, ok := thiz.(*Mirror)
	if !ok {
		return nil, errors.New(errors.PhaseScript, errors.KindInvalidInput).
			Value(thiz).
			Detail("receiver is not a script object").
			Build()
	}
	return m.CallMember(name, args...)
}

func (e *Engine) contextWith(b Bindings) *Context {
	ctx := *e.ctx
	ctx.engine = b
	return &ctx
}

// globalFor returns the global that scripts in ctx run against, creating
// one for engine-scope bindings that are not a global of e.
func (e *Engine) globalFor(ctx *Context) *global {
	b := ctx.Bindings(EngineScope)
	if m, ok := b.(*Mirror); ok && m.isGlobal() && m.g.engine == e {
		m.g.load(ctx)
		return m.g
	}

	var g *global
	if v, ok := b.Get(NashornGlobal); ok {
		if m, ok := v.(*Mirror); ok && m.isGlobal() && m.g.engine == e {
			g = m.g
		}
	}
	if g == nil {
		g = e.newGlobal()
		b.Put(NashornGlobal, g.object)
	}
	g.load(ctx)
	return g
}

func readScript(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(errors.PhaseScript, errors.KindInvalidInput, err, "read script")
	}
	return string(data), nil
}

// CompiledScript is a script compiled once and evaluated any number of
// times.
type CompiledScript struct {
	engine  *Engine
	program *goja.Program
}

// Engine returns the engine the script was compiled by.
func (c *CompiledScript) Engine() *Engine { return c.engine }

// Eval runs the script in the engine's default context.
func (c *CompiledScript) Eval() (any, error) {
	return c.EvalContext(c.engine.ctx)
}

// EvalBindings runs the script with b as the engine scope.
func (c *CompiledScript) EvalBindings(b Bindings) (any, error) {
	return c.EvalContext(c.engine.contextWith(b))
}

// EvalContext runs the script in ctx.
func (c *CompiledScript) EvalContext(ctx *Context) (any, error) {
	g := c.engine.globalFor(ctx)
	return g.run(ctx, evalName, func() (goja.Value, error) {
		return g.vm.RunProgram(c.program)
	})
}

// Display formats a script result for printing.
func Display(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

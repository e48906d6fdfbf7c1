package compat

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/nashorn-compat/bootstrap"
	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/graph"
	"github.com/wippyai/nashorn-compat/host"
	"github.com/wippyai/nashorn-compat/scripting"
	"github.com/wippyai/nashorn-compat/wasm"
)

func kindOf(err error) errors.Kind {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newEngine(t *testing.T) *ScriptEngine {
	t.Helper()
	return WrapFactory(scripting.NewFactory()).ScriptEngine()
}

func eval(t *testing.T, e *ScriptEngine, script string) any {
	t.Helper()
	v, err := e.Eval(script)
	if err != nil {
		t.Fatalf("Eval(%q): %v", script, err)
	}
	return v
}

func mirror(t *testing.T, e *ScriptEngine, script string) *ScriptObjectMirror {
	t.Helper()
	m, ok := eval(t, e, script).(*ScriptObjectMirror)
	if !ok {
		t.Fatalf("%q did not produce a legacy mirror", script)
	}
	return m
}

func TestScriptEngine_Eval(t *testing.T) {
	e := newEngine(t)
	if got := eval(t, e, "1+1"); got != int64(2) {
		t.Errorf("1+1 = %#v", got)
	}
	if got := eval(t, e, "'x'"); got != "x" {
		t.Errorf("'x' = %#v", got)
	}
	if _, ok := eval(t, e, "({a: 1})").(*ScriptObjectMirror); !ok {
		t.Error("objects should come back as legacy mirrors")
	}
	if _, err := e.Eval("throw new Error('boom')"); err == nil {
		t.Error("thrown error should surface")
	} else {
		var se *scripting.ScriptError
		if !stderrors.As(err, &se) {
			t.Errorf("error = %T, want *scripting.ScriptError", err)
		}
	}
	if got, err := e.EvalReader(strings.NewReader("6*7")); err != nil || got != int64(42) {
		t.Errorf("EvalReader = %#v, %v", got, err)
	}
}

func TestScriptEngine_ArgumentsUnwrapped(t *testing.T) {
	e := newEngine(t)
	obj := mirror(t, e, "var o = {n: 1}; o")

	e.Put("same", obj)
	if got := eval(t, e, "same === o"); got != true {
		t.Error("a legacy mirror put into the engine should reach scripts as the original object")
	}

	eval(t, e, "function bump(x) { x.n++; return x }")
	got, err := e.InvokeFunction("bump", obj)
	if err != nil {
		t.Fatal(err)
	}
	back, ok := got.(*ScriptObjectMirror)
	if !ok || !back.Equals(obj) || back == obj {
		t.Errorf("InvokeFunction = %#v, want a fresh wrapper of the same object", got)
	}
	if obj.Member("n") != int64(2) {
		t.Errorf("n = %#v", obj.Member("n"))
	}

	if v, err := e.InvokeMethod(obj, "hasOwnProperty", "n"); err != nil || v != true {
		t.Errorf("InvokeMethod = %#v, %v", v, err)
	}
	if _, err := e.InvokeFunction("missing"); kindOf(err) != errors.KindNoSuchMethod {
		t.Errorf("missing function error = %v", err)
	}
}

func TestScriptEngine_LegacyMirrorInBindings(t *testing.T) {
	e := newEngine(t)
	m := mirror(t, e, "({a: 7})")

	b := scripting.NewSimpleBindings(nil)
	b.Put("o", m)
	if got, err := e.EvalBindings("o.a", b); err != nil || got != int64(7) {
		t.Errorf("EvalBindings = %#v, %v", got, err)
	}

	ctx := scripting.NewContext()
	if err := ctx.SetBindings(scripting.NewSimpleBindings(map[string]any{"o": m}), scripting.EngineScope); err != nil {
		t.Fatal(err)
	}
	if got, err := e.EvalContext("o.a + 1", ctx); err != nil || got != int64(8) {
		t.Errorf("EvalContext = %#v, %v", got, err)
	}

	e.Context().Bindings(scripting.GlobalScope).Put("shared", m)
	if got := eval(t, e, "shared.a"); got != int64(7) {
		t.Errorf("global scope = %#v", got)
	}
}

func TestScriptEngine_Bindings(t *testing.T) {
	e := newEngine(t)
	eng, ok := e.Bindings(scripting.EngineScope).(*ScriptObjectMirror)
	if !ok {
		t.Fatalf("engine scope = %T, want legacy mirror", e.Bindings(scripting.EngineScope))
	}
	eng.Put("x", 20)
	if got := eval(t, e, "x + 1"); got != int64(21) {
		t.Errorf("x + 1 = %#v", got)
	}
	if err := e.SetBindings(eng, scripting.EngineScope); err != nil {
		t.Errorf("SetBindings with its own wrapped global: %v", err)
	}

	if _, ok := e.CreateBindings().(*ScriptObjectMirror); !ok {
		t.Error("CreateBindings should return a legacy mirror")
	}

	b := scripting.NewSimpleBindings(nil)
	b.Put("y", 2)
	if got, err := e.EvalBindings("y * 3", b); err != nil || got != int64(6) {
		t.Errorf("EvalBindings = %#v, %v", got, err)
	}
	if _, ok := b.Get(NashornGlobal); !ok {
		t.Error("bindings should record the global created for them")
	}
	if e.Get("y") != nil {
		t.Error("EvalBindings must not leak into the engine scope")
	}
}

func TestScriptEngine_Equals(t *testing.T) {
	a, b := newEngine(t), newEngine(t)
	if !a.Equals(a.Instance) || !a.Equals(&ScriptEngine{Instance: a.Instance}) {
		t.Error("engine should equal its instance in either shape")
	}
	if a.Equals(b) {
		t.Error("distinct engines are not equal")
	}
	if a.Factory().EngineName() != scripting.NewFactory().EngineName() {
		t.Error("Factory should forward metadata")
	}
}

func TestConvert(t *testing.T) {
	e := newEngine(t)
	m := mirror(t, e, "({})")

	if got := ConvertMirror(m); got != m.Instance {
		t.Error("legacy mirror should unwrap to its instance")
	}
	if got, ok := ConvertMirror(m.Instance).(*ScriptObjectMirror); !ok || got.Instance != m.Instance {
		t.Error("instance should wrap to a legacy mirror")
	}
	if got := ConvertEngine(e); got != e.Instance {
		t.Error("legacy engine should unwrap to its instance")
	}
	if got, ok := ConvertEngine(e.Instance).(*ScriptEngine); !ok || got.Instance != e.Instance {
		t.Error("instance should wrap to a legacy engine")
	}
	for _, v := range []any{nil, 1, "s", e.Instance} {
		if ConvertMirror(v) != v {
			t.Errorf("ConvertMirror(%#v) should be the identity", v)
		}
	}
	if ConvertArgs(nil) != nil {
		t.Error("ConvertArgs(nil) should stay nil")
	}
	args := ConvertArgs([]any{m, e, 3})
	if args[0] != m.Instance || args[1] != e.Instance || args[2] != 3 {
		t.Errorf("ConvertArgs = %#v", args)
	}
}

func TestMirror(t *testing.T) {
	e := newEngine(t)
	m := mirror(t, e, "var holder = {inner: {v: 1}, list: [1, 2]}; holder")

	inner, ok := m.Member("inner").(*ScriptObjectMirror)
	if !ok {
		t.Fatalf("inner = %#v", m.Member("inner"))
	}
	if err := m.SetMember("copy", inner); err != nil {
		t.Fatal(err)
	}
	same, err := m.Eval("holder.copy === holder.inner")
	if err != nil || same != true {
		t.Errorf("legacy member should be stored unwrapped: %#v, %v", same, err)
	}

	list := m.Member("list").(*ScriptObjectMirror)
	if !list.IsArray() || list.Slot(1) != int64(2) {
		t.Error("array mirror")
	}
	if !m.ContainsValue(inner) {
		t.Error("ContainsValue should accept a legacy mirror")
	}
	for _, v := range m.Values() {
		if _, raw := v.(*scripting.Mirror); raw {
			t.Error("Values must not leak scripting mirrors")
		}
	}

	m.PutAll(map[string]any{"again": inner})
	if again, _ := m.Get("again"); !inner.Equals(again) {
		t.Error("PutAll should unwrap legacy values")
	}

	frozen := inner.Freeze()
	if !frozen.IsFrozen() || !frozen.Equals(inner) {
		t.Error("Freeze should return the same object")
	}
	if !Identical(inner, inner.Instance) || Identical(inner, list) {
		t.Error("Identical should compare across shapes")
	}
	if !IsUndefined(eval(t, e, "undefined")) {
		t.Error("undefined")
	}
}

func TestMirror_CallAndStatics(t *testing.T) {
	e := newEngine(t)
	ctor := mirror(t, e, "(function P(x) { this.x = x })")
	obj, err := ctor.New(5)
	if err != nil {
		t.Fatal(err)
	}
	inst, ok := obj.(*ScriptObjectMirror)
	if !ok || inst.Member("x") != int64(5) {
		t.Fatalf("New = %#v", obj)
	}
	if !ctor.IsInstance(inst) {
		t.Error("IsInstance should accept a legacy mirror")
	}

	id := mirror(t, e, "(function(v) { return v })")
	got, err := id.Call(nil, inst)
	if err != nil || !inst.Equals(got) {
		t.Errorf("Call = %#v, %v", got, err)
	}

	raw := Unwrap(inst, inst)
	if raw != inst.Object() {
		t.Error("Unwrap should produce the script object")
	}
	wrapped, ok := Wrap(raw, inst).(*ScriptObjectMirror)
	if !ok || !wrapped.Equals(inst) {
		t.Errorf("Wrap = %#v", wrapped)
	}
	all := UnwrapArray([]any{inst, 1}, inst)
	if all[0] != inst.Object() || all[1] != 1 {
		t.Errorf("UnwrapArray = %#v", all)
	}
	if back := WrapArray(all, inst); !inst.Equals(back[0]) {
		t.Errorf("WrapArray = %#v", back)
	}
}

func TestCanonical(t *testing.T) {
	e := newEngine(t)
	c := NewCanonical()
	m := eval(t, e, "var o = {}; o").(*ScriptObjectMirror)
	again := eval(t, e, "o").(*ScriptObjectMirror)
	if m == again {
		t.Fatal("plain conversion should not deduplicate")
	}
	if c.Mirror(m.Instance) != c.Mirror(again.Instance) {
		t.Error("canonical mirrors should be shared")
	}
	if c.Engine(e.Instance) != c.Value(e.Instance) {
		t.Error("canonical engines should be shared")
	}
	if c.Value(3) != 3 || c.Mirror(nil) != nil {
		t.Error("other values pass through")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}

type prefixFilter string

func (p prefixFilter) ExposeToScripts(name string) bool { return strings.HasPrefix(name, string(p)) }

func TestScriptEngineWithFilter(t *testing.T) {
	f := WrapFactory(scripting.NewFactory())
	e := f.ScriptEngineWithFilter(prefixFilter("allowed."))
	e.Instance.DefineType("allowed.Thing", 1)
	e.Instance.DefineType("hidden.Thing", 2)

	if _, err := e.Eval("Java.type('allowed.Thing')"); err != nil {
		t.Errorf("exposed type: %v", err)
	}
	if _, err := e.Eval("Java.type('hidden.Thing')"); err == nil {
		t.Error("filtered type should be rejected")
	}

	withArgs := f.ScriptEngineWithArgs("a", "b")
	if got := eval(t, withArgs, "arguments.length"); got != int64(2) {
		t.Errorf("arguments.length = %#v", got)
	}
}

func writeCore(t *testing.T, dir string) {
	t.Helper()
	d, err := graph.NewDescriptor("org.openjdk.nashorn").Version("15.4.0").
		Requires(host.ModuleTooling, "^9").
		Requires(host.ModuleScripting, "").
		Exports("org.openjdk.nashorn.api.scripting").
		Provides(host.ScriptEngineFactoryService, scripting.FactoryImpl).
		Seal()
	if err != nil {
		t.Fatal(err)
	}
	code, err := graph.EmbedDescriptor(wasm.NewBuilder().Build(), d)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nashorn-core-15.4.wasm"), code, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover(t *testing.T) {
	ctx := context.Background()
	h, err := host.New(ctx, host.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close(ctx)

	if err := scripting.Register(h, scripting.NewFactory()); err != nil {
		t.Fatal(err)
	}
	if _, err := NewScriptEngineFactory(h); kindOf(err) != errors.KindNotFound {
		t.Errorf("before bootstrap: %v, want not found", err)
	}

	dir := t.TempDir()
	writeCore(t, dir)
	cfg := bootstrap.DefaultConfig()
	cfg.Discovery = bootstrap.DiscoveryScan
	cfg.SearchPath = []string{dir}
	if _, err := bootstrap.Run(ctx, h, cfg); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	f, err := NewScriptEngineFactory(h)
	if err != nil {
		t.Fatalf("NewScriptEngineFactory: %v", err)
	}
	if len(Discover(h)) != 1 {
		t.Errorf("Discover = %d factories", len(Discover(h)))
	}
	if got := eval(t, f.ScriptEngine(), "1+1"); got != int64(2) {
		t.Errorf("1+1 = %#v", got)
	}
}

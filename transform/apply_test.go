package transform

import (
	"context"
	"slices"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/nashorn-compat/remap"
	"github.com/wippyai/nashorn-compat/wasm"
)

type grants []string

func (g *grants) Grant(pkg string) {
	if !slices.Contains(*g, pkg) {
		*g = append(*g, pkg)
	}
}

func legacyUnit() []byte {
	b := wasm.NewBuilder()
	eval := b.ImportFunc("jdk/nashorn/api/scripting", "eval", nil, []wasm.ValType{wasm.ValF64})
	b.Func("jdk.nashorn.internal.Run", nil, []wasm.ValType{wasm.ValF64}, wasm.Call(eval))
	b.Custom("jdk.nashorn.meta", []byte{1, 2, 3})
	b.ModuleName("jdk.nashorn.guest")
	b.Constants("load jdk.nashorn.api.scripting.ScriptObjectMirror", "plain", "org.openjdk.nashorn.Already")
	return b.Build()
}

func TestApply_NoLegacyReferences(t *testing.T) {
	b := wasm.NewBuilder()
	f := b.ImportFunc("org/openjdk/nashorn/api/scripting", "eval", nil, []wasm.ValType{wasm.ValF64})
	b.Func("run", nil, []wasm.ValType{wasm.ValF64}, wasm.Call(f))
	b.Constants("org.openjdk.nashorn.api.scripting.ScriptObjectMirror")
	code := b.Build()

	var g grants
	res, err := Apply(code, &g)
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || len(res.Bindings) != 0 {
		t.Errorf("unexpected rewrite: %+v", res.Bindings)
	}
	if &res.Code[0] != &code[0] || len(res.Code) != len(code) {
		t.Error("unchanged unit should be returned as the same slice")
	}
	if len(g) != 0 {
		t.Errorf("grants = %v, want none", g)
	}
}

func TestApply_RewritesEverySlot(t *testing.T) {
	var g grants
	res, err := Apply(legacyUnit(), &g)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Fatal("expected a rewrite")
	}
	if len(res.Bindings) != 6 {
		t.Errorf("bindings = %d, want 6: %+v", len(res.Bindings), res.Bindings)
	}

	u, err := wasm.Parse(res.Code)
	if err != nil {
		t.Fatalf("rewritten unit does not parse: %v", err)
	}
	if got := u.Imports[0].Module; got != "org/openjdk/nashorn/api/scripting" {
		t.Errorf("import module = %q", got)
	}
	if got := u.Imports[0].Name; got != "eval" {
		t.Errorf("import name = %q", got)
	}
	if got := u.Exports[0].Name; got != "org.openjdk.nashorn.internal.Run" {
		t.Errorf("export = %q", got)
	}
	if _, ok := u.CustomSection("org.openjdk.nashorn.meta"); !ok {
		t.Error("custom section was not renamed")
	}
	if u.Names == nil || u.Names.Module != "org.openjdk.nashorn.guest" {
		t.Errorf("module name = %+v", u.Names)
	}
	if got, _ := u.Names.FunctionName(1); got != "org.openjdk.nashorn.internal.Run" {
		t.Errorf("function name = %q", got)
	}
	want := []string{
		"load org.openjdk.nashorn.api.scripting.ScriptObjectMirror",
		"plain",
		"org.openjdk.nashorn.Already",
	}
	if !slices.Equal(u.Constants, want) {
		t.Errorf("constants = %q", u.Constants)
	}

	for _, pkg := range []string{"org.openjdk.nashorn.api.scripting", "org.openjdk.nashorn.internal", "org.openjdk.nashorn"} {
		if !slices.Contains(g, pkg) {
			t.Errorf("missing grant %q in %v", pkg, g)
		}
	}

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)
	if _, err := r.CompileModule(ctx, res.Code); err != nil {
		t.Errorf("rewritten unit does not compile: %v", err)
	}
}

func TestApply_Idempotent(t *testing.T) {
	first, err := Apply(legacyUnit(), nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Apply(first.Code, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Changed {
		t.Errorf("second pass rewrote %+v", second.Bindings)
	}
}

func TestApply_BindingKinds(t *testing.T) {
	res, err := Apply(legacyUnit(), nil)
	if err != nil {
		t.Fatal(err)
	}
	counts := make(map[remap.Kind]int)
	for _, b := range res.Bindings {
		counts[b.Kind]++
	}
	if counts[remap.KindPath] != 1 || counts[remap.KindQualified] != 4 || counts[remap.KindText] != 1 {
		t.Errorf("kinds = %v", counts)
	}
}

func TestApply_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"garbage", []byte("not a module")},
		{"truncated", legacyUnit()[:12]},
		{"bad version", []byte{0x00, 0x61, 0x73, 0x6d, 0x02, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Apply(tt.code, nil); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

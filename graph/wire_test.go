package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/wippyai/nashorn-compat/wasm"
)

// writeComponent packages b as a component file in dir.
func writeComponent(t *testing.T, dir, file string, b *DescriptorBuilder) string {
	t.Helper()
	d, err := b.Seal()
	if err != nil {
		t.Fatalf("seal %s: %v", b.Name(), err)
	}
	code, err := EmbedDescriptor(wasm.NewBuilder().Build(), d)
	if err != nil {
		t.Fatalf("embed %s: %v", b.Name(), err)
	}
	path := filepath.Join(dir, file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, code, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDescriptorWire_RoundTrip(t *testing.T) {
	d, err := NewDescriptor("org.openjdk.nashorn").
		Version("15.4.0").
		Open(true).
		Requires("java.scripting", ">=1.0.0", Transitive).
		Requires("java.logging", "", Static).
		Exports("org.openjdk.nashorn.api.scripting").
		Exports("org.openjdk.nashorn.internal", "org.openjdk.nashorn.shell").
		Provides("javax.script.ScriptEngineFactory", "org.openjdk.nashorn.api.scripting.NashornScriptEngineFactory").
		Uses("svc").
		Seal()
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	data, err := MarshalDescriptor(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := MarshalDescriptor(d)
	if err != nil || !bytes.Equal(data, again) {
		t.Fatal("canonical encoding must be deterministic")
	}

	b, err := UnmarshalDescriptor(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if b.Sealed() {
		t.Error("decoded descriptor must be editable")
	}
	got, err := b.Seal()
	if err != nil {
		t.Fatalf("Seal decoded: %v", err)
	}
	if got.Name() != d.Name() || !got.Open() || got.Version().String() != "15.4.0" {
		t.Errorf("header mismatch: %v", got)
	}
	reqs := got.Requires()
	if len(reqs) != 2 || !reqs[0].Transitive() || !reqs[1].Static() || reqs[0].Constraint != ">=1.0.0" {
		t.Errorf("requirements mismatch: %+v", reqs)
	}
	if !slices.Equal(got.Packages(), d.Packages()) {
		t.Errorf("packages = %v, want %v", got.Packages(), d.Packages())
	}
	if got.Exports()[1].Targets[0] != "org.openjdk.nashorn.shell" {
		t.Errorf("exports mismatch: %+v", got.Exports())
	}
}

func TestUnmarshalDescriptor_Invalid(t *testing.T) {
	if _, err := UnmarshalDescriptor([]byte{0xff, 0x00}); err == nil {
		t.Error("expected decode error")
	}
	if _, err := UnmarshalDescriptor([]byte{0xa0}); err == nil {
		t.Error("expected missing name error")
	}
}

func TestEmbedAndReadDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := writeComponent(t, dir, "nashorn-core-15.4.wasm",
		NewDescriptor("org.openjdk.nashorn").Version("15.4.0").Requires("org.objectweb.asm", ""))

	code, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ReadDescriptor(code)
	if err != nil {
		t.Fatalf("ReadDescriptor: %v", err)
	}
	if b.Name() != "org.openjdk.nashorn" || !slices.Equal(b.RequiredNames(), []string{"org.objectweb.asm"}) {
		t.Errorf("unexpected descriptor %s %v", b.Name(), b.RequiredNames())
	}

	// Re-embedding replaces the existing section.
	d, _ := NewDescriptor("other").Seal()
	code, err = EmbedDescriptor(code, d)
	if err != nil {
		t.Fatalf("EmbedDescriptor: %v", err)
	}
	unit, err := wasm.Parse(code)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, c := range unit.Customs {
		if c.Name == wasm.DescriptorSectionName {
			count++
		}
	}
	if count != 1 {
		t.Errorf("descriptor sections = %d, want 1", count)
	}
	if b, _ := ReadDescriptor(code); b.Name() != "other" {
		t.Errorf("name = %q, want other", b.Name())
	}

	if _, err := ReadDescriptor(wasm.NewBuilder().Build()); err == nil {
		t.Error("expected error for module without descriptor")
	}
}

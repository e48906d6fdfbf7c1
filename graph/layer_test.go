package graph

import (
	"sync"
	"testing"

	"github.com/wippyai/nashorn-compat/errors"
)

type testLoader string

func (l testLoader) Name() string { return string(l) }

func loaders(name string) Loader { return testLoader("platform") }

type fixture struct {
	graph *Graph
	cap   *Capability
	ctrl  *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	boot, err := DefineBootLayer(bootConfig(t), loaders)
	if err != nil {
		t.Fatalf("DefineBootLayer: %v", err)
	}
	g, err := New(boot)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfg, err := ResolveAndBind(refs(
		NewDescriptor("org.openjdk.nashorn").Version("15.4.0").
			Requires("java.scripting", "").
			Exports("org.openjdk.nashorn.api.scripting").
			Exports("org.openjdk.nashorn.internal.runtime", "org.openjdk.nashorn.shell").
			Packages("org.openjdk.nashorn.internal.objects"),
	), []*Configuration{boot.Configuration()}, Empty(), []string{"org.openjdk.nashorn"})
	if err != nil {
		t.Fatalf("ResolveAndBind: %v", err)
	}
	ctrl, err := DefineModules(cfg, []*Layer{boot}, func(name string) Loader { return testLoader("app") })
	if err != nil {
		t.Fatalf("DefineModules: %v", err)
	}

	c, err := g.Unlock()
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	return &fixture{graph: g, cap: c, ctrl: ctrl}
}

func TestDefineModules(t *testing.T) {
	f := newFixture(t)
	layer := f.ctrl.Layer()
	m := layer.FindModule("org.openjdk.nashorn")
	if m == nil || m.Layer() != layer || m.Loader().Name() != "app" {
		t.Fatalf("unexpected module %v", m)
	}
	if layer.IsBoot() || !f.graph.Boot().IsBoot() {
		t.Error("boot flag mismatch")
	}

	scripting := layer.FindModule("java.scripting")
	if scripting == nil || scripting.Layer() != f.graph.Boot() {
		t.Fatal("parent module lookup failed")
	}
	if !m.CanRead(scripting) || !m.CanRead(f.graph.Boot().FindModule("java.base")) {
		t.Error("nashorn should read its requirements")
	}
	if scripting.CanRead(m) {
		t.Error("boot module must not read nashorn")
	}
	if m.CanRead(Unnamed) {
		t.Error("named module does not read unnamed code by default")
	}
	if !Unnamed.CanRead(m) {
		t.Error("unnamed code reads every module")
	}
}

func TestDefineModules_Errors(t *testing.T) {
	boot, err := DefineBootLayer(bootConfig(t), loaders)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := ResolveAndBind(refs(NewDescriptor("split").Exports("javax.script")),
		[]*Configuration{boot.Configuration()}, Empty(), []string{"split"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DefineModules(cfg, []*Layer{boot}, loaders); err == nil || errorKind(t, err) != errors.KindDuplicate {
		t.Errorf("expected split package error, got %v", err)
	}

	if _, err := DefineModules(cfg, nil, loaders); err == nil {
		t.Error("expected parent mismatch error")
	}

	cfg, _ = ResolveAndBind(refs(NewDescriptor("x")), []*Configuration{boot.Configuration()}, Empty(), []string{"x"})
	if _, err := DefineModules(cfg, []*Layer{boot}, func(string) Loader { return nil }); err == nil {
		t.Error("expected missing loader error")
	}

	if _, err := DefineBootLayer(cfg, loaders); err == nil {
		t.Error("boot layer cannot have parents")
	}
}

func TestIsExported(t *testing.T) {
	f := newFixture(t)
	nashorn := f.ctrl.Layer().FindModule("org.openjdk.nashorn")
	scripting := f.graph.Boot().FindModule("java.scripting")

	tests := []struct {
		name string
		mod  *Module
		pkg  string
		to   *Module
		want bool
	}{
		{"boot export to unnamed", scripting, "javax.script", Unnamed, true},
		{"boot export to named", scripting, "javax.script", nashorn, true},
		{"child export to named", nashorn, "org.openjdk.nashorn.api.scripting", scripting, true},
		{"child export to unnamed needs grant", nashorn, "org.openjdk.nashorn.api.scripting", Unnamed, false},
		{"qualified export to other", nashorn, "org.openjdk.nashorn.internal.runtime", scripting, false},
		{"concealed package", nashorn, "org.openjdk.nashorn.internal.objects", scripting, false},
		{"self", nashorn, "org.openjdk.nashorn.internal.objects", nashorn, true},
		{"foreign package", nashorn, "javax.script", Unnamed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mod.IsExported(tt.pkg, tt.to); got != tt.want {
				t.Errorf("IsExported(%s, %s) = %v, want %v", tt.pkg, tt.to, got, tt.want)
			}
		})
	}
}

func TestCapabilityGrants(t *testing.T) {
	f := newFixture(t)
	nashorn := f.ctrl.Layer().FindModule("org.openjdk.nashorn")
	scripting := f.graph.Boot().FindModule("java.scripting")

	if err := nashorn.AddExportsToAllUnnamed(nil, "org.openjdk.nashorn.api.scripting"); err == nil {
		t.Fatal("grant without capability must fail")
	}
	if err := nashorn.AddExportsToAllUnnamed(&Capability{}, "org.openjdk.nashorn.api.scripting"); err == nil {
		t.Fatal("grant with a forged capability must fail")
	}

	if err := nashorn.AddExportsToAllUnnamed(f.cap, "org.openjdk.nashorn.api.scripting"); err != nil {
		t.Fatalf("AddExportsToAllUnnamed: %v", err)
	}
	if !nashorn.IsExported("org.openjdk.nashorn.api.scripting", Unnamed) {
		t.Error("granted package should be visible to unnamed code")
	}
	if err := nashorn.AddExportsToAllUnnamed(f.cap, "not.in.module"); err == nil {
		t.Error("expected error for foreign package")
	}

	if err := nashorn.AddReadsAllUnnamed(f.cap); err != nil {
		t.Fatal(err)
	}
	if !nashorn.CanRead(Unnamed) {
		t.Error("nashorn should read unnamed code")
	}

	if err := scripting.AddReads(f.cap, nashorn); err != nil {
		t.Fatal(err)
	}
	if !scripting.CanRead(nashorn) {
		t.Error("AddReads on a boot module should take effect")
	}

	if _, err := f.graph.Unlock(); err == nil || errorKind(t, err) != errors.KindAlreadyDone {
		t.Errorf("second Unlock should fail, got %v", err)
	}
}

func TestController(t *testing.T) {
	f := newFixture(t)
	nashorn := f.ctrl.Layer().FindModule("org.openjdk.nashorn")
	scripting := f.graph.Boot().FindModule("java.scripting")

	if err := f.ctrl.AddExports(nashorn, "org.openjdk.nashorn.internal.objects", scripting); err != nil {
		t.Fatal(err)
	}
	if !nashorn.IsExported("org.openjdk.nashorn.internal.objects", scripting) {
		t.Error("controller export should take effect")
	}
	if err := f.ctrl.AddReads(scripting, nashorn); err == nil {
		t.Error("controller must not touch modules of other layers")
	}
}

func TestGraph_Publish(t *testing.T) {
	f := newFixture(t)
	layer := f.ctrl.Layer()

	if f.graph.FindModule("org.openjdk.nashorn") != nil {
		t.Fatal("unpublished module must not be visible")
	}
	if err := f.graph.Publish(nil, layer); err == nil {
		t.Fatal("publish without capability must fail")
	}
	if err := f.graph.Publish(f.cap, layer); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := f.graph.Publish(f.cap, layer); err == nil {
		t.Error("second publish must fail")
	}

	m := f.graph.FindModule("org.openjdk.nashorn")
	if m == nil || f.graph.ModuleForPackage("org.openjdk.nashorn.api.scripting") != m {
		t.Error("published module not indexed")
	}
	if f.graph.ModuleForPackage("javax.script").Name() != "java.scripting" {
		t.Error("boot packages should stay indexed")
	}
	if len(f.graph.Layers()) != 2 || len(f.graph.Modules()) != 3 {
		t.Errorf("layers = %d, modules = %d", len(f.graph.Layers()), len(f.graph.Modules()))
	}

	other := newFixture(t)
	if err := f.graph.Publish(other.cap, other.ctrl.Layer()); err == nil {
		t.Error("capability of another graph must be rejected")
	}
}

func TestGraph_ConcurrentReaders(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = f.graph.ModuleForPackage("org.openjdk.nashorn.api.scripting")
				_ = f.graph.Modules()
			}
		}()
	}
	if err := f.graph.Publish(f.cap, f.ctrl.Layer()); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
}

func TestNew_RequiresBootLayer(t *testing.T) {
	f := newFixture(t)
	if _, err := New(f.ctrl.Layer()); err == nil {
		t.Error("expected error for non-boot layer")
	}
}

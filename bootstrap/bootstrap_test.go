package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/graph"
	"github.com/wippyai/nashorn-compat/host"
	"github.com/wippyai/nashorn-compat/wasm"
)

const target = "org.openjdk.nashorn"

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeComponent(t *testing.T, path string, b *graph.DescriptorBuilder) {
	t.Helper()
	d, err := b.Seal()
	if err != nil {
		t.Fatalf("seal %s: %v", b.Name(), err)
	}
	code, err := graph.EmbedDescriptor(wasm.NewBuilder().Build(), d)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, code)
}

func nashornCore(withSupport bool) *graph.DescriptorBuilder {
	b := graph.NewDescriptor(target).Version("15.4.0").
		Requires(host.ModuleTooling, "^9")
	if withSupport {
		b.Requires("nashorn.support", "^1")
	}
	return b.
		Requires(host.ModuleTooling+".util", "^9").
		Requires(host.ModuleScripting, "").
		Exports("org.openjdk.nashorn.api.scripting").
		Exports("org.openjdk.nashorn.api.tree").
		Packages("org.openjdk.nashorn.internal.runtime").
		Provides(host.ScriptEngineFactoryService, "org.openjdk.nashorn.api.scripting.NashornScriptEngineFactory")
}

// bundle lays out a bundle directory and returns it.
func bundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeComponent(t, filepath.Join(dir, "nashorn-core-15.4.wasm"), nashornCore(true))
	writeComponent(t, filepath.Join(dir, "deps", "support.wasm"),
		graph.NewDescriptor("nashorn.support").Version("1.2.0").Exports("nashorn.support"))
	writeFile(t, filepath.Join(dir, ManifestFile), []byte(`
[bundle]
name = "nashorn-compat"
version = "1.0.0"
dependencies = ["deps/support.wasm"]
`))
	return dir
}

func newHost(t *testing.T) *host.Host {
	t.Helper()
	ctx := context.Background()
	h, err := host.New(ctx, host.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = h.Close(ctx) })
	return h
}

func manifestConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.Bundle = dir
	cfg.SearchPath = nil
	return cfg
}

func TestRun_Manifest(t *testing.T) {
	h := newHost(t)
	dir := bundle(t)

	res, err := Run(context.Background(), h, manifestConfig(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	g := h.Graph()

	if res.Module.Name() != target || g.FindModule(target) != res.Module {
		t.Fatal("target should be published")
	}
	if res.Module.Loader() != h.AppLoader() {
		t.Error("target should be defined by the app loader")
	}
	support := g.FindModule("nashorn.support")
	if support == nil || support.Loader() != h.PlatformLoader() {
		t.Error("dependency should be defined by the platform loader")
	}
	if h.AppLoader().Find(target) == nil || h.PlatformLoader().Find("nashorn.support") == nil {
		t.Error("component code should be defined into the loaders")
	}

	var got []string
	for _, r := range res.Module.Descriptor().Requires() {
		got = append(got, r.Name)
	}
	want := []string{"nashorn.support", host.ModuleScripting}
	if !slices.Equal(got, want) {
		t.Errorf("requires = %v, want %v", got, want)
	}
	if dropped := res.Dropped[target]; !slices.Equal(dropped, []string{host.ModuleTooling, host.ModuleTooling + ".util"}) {
		t.Errorf("dropped = %v", dropped)
	}

	if !res.Module.CanRead(graph.Unnamed) {
		t.Error("target should read unnamed code")
	}
	compat := g.FindModule(host.ModuleCompat)
	if !res.Module.CanRead(compat) || !compat.CanRead(res.Module) {
		t.Error("target and compat should read each other")
	}
	if !res.Module.IsExported("org.openjdk.nashorn.api.scripting", graph.Unnamed) {
		t.Error("public package should be exported to unnamed code")
	}
	if res.Module.IsExported("org.openjdk.nashorn.internal.runtime", graph.Unnamed) {
		t.Error("internal package should stay hidden until a rewrite grants it")
	}

	comps := h.Components()
	if len(comps) != 1 || comps[0].Type != host.TypePluginService || comps[0].File != filepath.Join(res.Manifest.Dir, ManifestFile) {
		t.Errorf("components = %+v", comps)
	}
	if res.Manifest.Bundle.Name != "nashorn-compat" {
		t.Errorf("manifest = %+v", res.Manifest.Bundle)
	}
}

// startedHost bootstraps the bundle into a started host that serves the
// org/openjdk/nashorn/internal/runtime package to guests.
func startedHost(t *testing.T) (*host.Host, *Result) {
	t.Helper()
	h := newHost(t)
	res, err := Run(context.Background(), h, manifestConfig(bundle(t)))
	if err != nil {
		t.Fatal(err)
	}
	h.Start()

	err = h.RegisterHostModule(host.HostModule{
		Name: "org/openjdk/nashorn/internal/runtime",
		Funcs: []host.HostFunc{{
			Name:    "version",
			Results: []api.ValueType{api.ValueTypeF64},
			Fn: api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
				stack[0] = api.EncodeF64(15.4)
			}),
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return h, res
}

// legacyGuest imports the runtime package under its legacy name.
func legacyGuest() []byte {
	b := wasm.NewBuilder()
	f := b.ImportFunc("jdk/nashorn/internal/runtime", "version", nil, []wasm.ValType{wasm.ValF64})
	b.Func("run", nil, []wasm.ValType{wasm.ValF64}, wasm.Call(f))
	return b.Build()
}

func TestRun_GrantsFollowRewrites(t *testing.T) {
	ctx := context.Background()
	h, res := startedHost(t)

	inst, err := h.Instantiate(ctx, "legacy", legacyGuest())
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	out, err := inst.Call(ctx, "run")
	if err != nil || api.DecodeF64(out[0]) != 15.4 {
		t.Errorf("run() = %v, %v", out, err)
	}
	if !res.Module.IsExported("org.openjdk.nashorn.internal.runtime", graph.Unnamed) {
		t.Error("rewrite should have granted the package")
	}
}

func TestRun_ConcurrentLegacyGuests(t *testing.T) {
	ctx := context.Background()
	h, _ := startedHost(t)
	code := legacyGuest()

	const guests = 32
	var wg sync.WaitGroup
	errs := make(chan error, guests)
	for i := 0; i < guests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := h.Instantiate(ctx, fmt.Sprintf("legacy-%d", i), code)
			if err != nil {
				errs <- err
				return
			}
			out, err := inst.Call(ctx, "run")
			if err != nil {
				errs <- err
				return
			}
			if v := api.DecodeF64(out[0]); v != 15.4 {
				errs <- fmt.Errorf("legacy-%d: run() = %v", i, v)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for i := 0; i < guests; i++ {
		u := h.AppLoader().Find(fmt.Sprintf("legacy-%d", i))
		if u == nil {
			t.Fatalf("legacy-%d not defined", i)
		}
		parsed, err := wasm.Parse(u.Code)
		if err != nil {
			t.Fatal(err)
		}
		if got := parsed.Imports[0].Module; got != "org/openjdk/nashorn/internal/runtime" {
			t.Errorf("legacy-%d import = %q", i, got)
		}
	}
}

func TestFail_DetailVerbatim(t *testing.T) {
	err := fail(errors.KindNotFound, "locate 100%d target", stderrors.New("boom"))
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error = %T", err)
	}
	if e.Detail != "locate 100%d target" || e.Kind != errors.KindNotFound {
		t.Errorf("detail = %q, kind = %s", e.Detail, e.Kind)
	}
	if e.Cause == nil || e.Cause.Error() != "boom" {
		t.Errorf("cause = %v", e.Cause)
	}
}

func TestRun_Scan(t *testing.T) {
	dir := t.TempDir()
	writeComponent(t, filepath.Join(dir, "lib", "nashorn-core-15.4.wasm"), nashornCore(false))
	writeComponent(t, filepath.Join(dir, "lib", "unrelated.wasm"), graph.NewDescriptor("unrelated"))

	cfg := DefaultConfig()
	cfg.Discovery = DiscoveryScan
	cfg.SearchPath = []string{filepath.Join(dir, "lib"), filepath.Join(dir, "missing")}

	h := newHost(t)
	res, err := Run(context.Background(), h, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Layer.Modules()) != 1 {
		t.Errorf("layer = %v, want only the target", res.Layer.Modules())
	}
	if res.Manifest != nil {
		t.Error("scan discovery reads no manifest")
	}
	if h.Graph().FindModule("unrelated") != nil {
		t.Error("files outside the pattern must not be found")
	}
}

func TestRun_Compose(t *testing.T) {
	dir := bundle(t)
	// Shadowed by the bundle's own copy.
	other := t.TempDir()
	writeComponent(t, filepath.Join(other, "nashorn-core-99.wasm"), graph.NewDescriptor(target).Version("99.0.0"))

	cfg := manifestConfig(dir)
	cfg.Discovery = DiscoveryCompose
	cfg.SearchPath = []string{other}

	res, err := Run(context.Background(), newHost(t), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v := res.Module.Descriptor().Version(); v == nil || v.String() != "15.4.0" {
		t.Errorf("version = %v, want the bundle copy", v)
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, h *host.Host) Config
		kind  errors.Kind
	}{
		{
			name: "invalid config",
			setup: func(t *testing.T, _ *host.Host) Config {
				return Config{Discovery: DiscoveryManifest}
			},
			kind: errors.KindInvalidInput,
		},
		{
			name: "host started",
			setup: func(t *testing.T, h *host.Host) Config {
				h.Start()
				return manifestConfig(bundle(t))
			},
			kind: errors.KindAlreadyDone,
		},
		{
			name: "capability taken",
			setup: func(t *testing.T, h *host.Host) Config {
				if _, err := h.Graph().Unlock(); err != nil {
					t.Fatal(err)
				}
				return manifestConfig(bundle(t))
			},
			kind: errors.KindAccess,
		},
		{
			name: "missing manifest",
			setup: func(t *testing.T, _ *host.Host) Config {
				return manifestConfig(t.TempDir())
			},
			kind: errors.KindNotFound,
		},
		{
			name: "missing target",
			setup: func(t *testing.T, _ *host.Host) Config {
				dir := bundle(t)
				if err := os.Remove(filepath.Join(dir, "nashorn-core-15.4.wasm")); err != nil {
					t.Fatal(err)
				}
				return manifestConfig(dir)
			},
			kind: errors.KindNotFound,
		},
		{
			name: "tooling requirement kept",
			setup: func(t *testing.T, _ *host.Host) Config {
				cfg := manifestConfig(bundle(t))
				cfg.ToolingPrefix = ""
				return cfg
			},
			kind: errors.KindMissingRequire,
		},
		{
			name: "dependency missing",
			setup: func(t *testing.T, _ *host.Host) Config {
				dir := t.TempDir()
				writeComponent(t, filepath.Join(dir, "nashorn-core-15.4.wasm"), nashornCore(true))
				cfg := DefaultConfig()
				cfg.Discovery = DiscoveryScan
				cfg.SearchPath = []string{dir}
				return cfg
			},
			kind: errors.KindMissingRequire,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHost(t)
			res, err := Run(context.Background(), h, tt.setup(t, h))
			if err == nil {
				t.Fatalf("expected failure, got %+v", res)
			}
			if !errors.IsFatal(err) {
				t.Errorf("bootstrap errors must be fatal: %v", err)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseBootstrap || e.Kind != tt.kind {
				t.Errorf("error = %v, want bootstrap %s", err, tt.kind)
			}
		})
	}
}

func TestOnce(t *testing.T) {
	h := newHost(t)
	cfg := manifestConfig(bundle(t))
	first, err := Once(context.Background(), h, cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Once(context.Background(), newHost(t), Config{})
	if err != nil || second != first {
		t.Errorf("second call = %p, %v; want the first result", second, err)
	}
}

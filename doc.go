// Package nashorncompat splices the Nashorn script engine into a running
// WebAssembly plugin host and keeps plugins written against the legacy
// jdk.nashorn namespace working against it.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	nashorncompat/       Root package (documentation only)
//	├── errors/          Structured error types with phase, kind and fatal marking
//	├── wasm/            Code unit structural view: imports, exports, names, constants
//	├── remap/           Legacy to new namespace remapping with package grants
//	├── transform/       Code transform pipeline, launch plugin and metrics
//	├── graph/           Module descriptors, finders, resolution, layers, readability
//	├── host/            wazero plugin host: loaders, transformers, native providers
//	├── bootstrap/       Locates, resolves and publishes the nashorn component
//	├── scripting/       org.openjdk.nashorn.api.scripting engine on goja
//	├── compat/          jdk.nashorn.api.scripting wrappers over scripting
//	└── cmd/nashorn-compat/  CLI: bootstrap, run guests, evaluate scripts
//
// # Quick Start
//
// Bootstrap the component and obtain a legacy engine:
//
//	h, err := host.New(ctx, host.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close(ctx)
//
//	if err := scripting.Register(h, scripting.NewFactory()); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := bootstrap.Run(ctx, h, bootstrap.DefaultConfig()); err != nil {
//	    log.Fatal(err) // always errors.IsFatal
//	}
//	h.Start()
//
//	f, err := compat.NewScriptEngineFactory(h)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := f.ScriptEngine().Eval("1+1")
//	fmt.Println(v) // 2
//
// # Legacy Guests
//
// After bootstrap every guest defined through the host loaders passes the
// NashornCompatRemapper transformer. Imports, exports, names and constants
// under jdk/nashorn/ are rewritten to org/openjdk/nashorn/, and each package
// a rewrite lands in is exported to unnamed code so the guest can link.
//
// # Thread Safety
//
// Host, Graph and the remapper plugin are safe for concurrent use. A script
// engine wraps a single goja runtime and must be used by one goroutine at a
// time; the native eval binding serializes guest calls itself.
package nashorncompat

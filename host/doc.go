// Package host is the plugin host: a wazero runtime, the layered module
// graph, two code loaders and the load-time transformer table.
//
// Every code unit that enters the host passes through Load, which runs the
// installed transformers that handle the unit's load reason:
//
//	h, _ := host.New(ctx, host.Options{})
//	inst, err := h.Instantiate(ctx, "guest", code)
//
// Guest code is unnamed code. Before a guest is instantiated each of its
// import module names is read as a package ("org/openjdk/nashorn/api/scripting"
// is package "org.openjdk.nashorn.api.scripting"); when a published module owns
// that package it must export it to unnamed code.
//
// # Registration
//
// Transformers normally register with RegisterTransformer once the host has
// been started. Components that must be active earlier install themselves
// with InstallPlugin, which requires the graph capability and writes the
// plugin table and the component listing directly.
//
// # Natives
//
// Components implemented in Go bind themselves to the graph through two
// tables: host modules that guests import, and service providers keyed by
// implementation name. Services only returns providers whose implementation
// is declared by a published module.
package host

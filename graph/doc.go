// Package graph models the host's layered module graph.
//
// A module is described by a Descriptor: its name, version, required modules,
// the packages it contains and exports, and the services it provides or
// uses. Descriptors are assembled with a DescriptorBuilder and become
// immutable once sealed. Packaged components carry their descriptor as
// canonical CBOR in the "nashorn.module" custom section of their code.
//
// Resolution happens in two steps, mirroring how the host starts:
//
//	cfg, err := graph.ResolveAndBind(finder, []*graph.Configuration{boot}, graph.Empty(), []string{"org.openjdk.nashorn"})
//	ctrl, err := graph.DefineModules(cfg, []*graph.Layer{g.Boot()}, loaderFor)
//
// ResolveAndBind seals every descriptor it resolves, so edits must happen on
// the builders returned by a Finder before resolution.
//
// # Access
//
// Code outside any named module belongs to the Unnamed module. It can use a
// package when the owning module lives in the boot layer and exports the
// package without qualification, or when the package was explicitly exported
// to all unnamed code. Changing readability or exports after definition
// requires the Capability handed out once by Graph.Unlock.
package graph

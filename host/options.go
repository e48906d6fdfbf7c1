package host

import "github.com/wippyai/nashorn-compat/graph"

// Version is the version reported by the host's own modules.
const Version = "21.0.0"

// ScriptEngineFactoryService is the service scripting engines provide.
const ScriptEngineFactoryService = "javax.script.ScriptEngineFactory"

// Module names of the default layers.
const (
	ModuleBase      = "java.base"
	ModuleScripting = "java.scripting"
	ModuleTooling   = "org.objectweb.asm"
	ModuleCompat    = "nashorn.compat"
)

// Options configures a Host.
type Options struct {
	// Boot describes the boot layer. Defaults to DefaultBoot().
	Boot []*graph.DescriptorBuilder

	// Services describes the service layer, a child of the boot layer that
	// holds plugins and their libraries. Defaults to DefaultServices().
	Services []*graph.DescriptorBuilder

	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the wazero
	// default.
	MemoryLimitPages uint32
}

// DefaultBoot returns the descriptors of the default boot layer.
func DefaultBoot() []*graph.DescriptorBuilder {
	return []*graph.DescriptorBuilder{
		graph.NewDescriptor(ModuleBase).Version(Version).
			Exports("java.lang").
			Exports("java.util"),
		graph.NewDescriptor(ModuleScripting).Version(Version).
			Requires(ModuleBase, "", graph.Transitive).
			Exports("javax.script").
			Uses(ScriptEngineFactoryService),
	}
}

// DefaultServices returns the descriptors of the default service layer: the
// compat plugin and the bytecode tooling it depends on.
func DefaultServices() []*graph.DescriptorBuilder {
	return []*graph.DescriptorBuilder{
		graph.NewDescriptor(ModuleTooling).Version("9.5.0").
			Exports("org.objectweb.asm"),
		graph.NewDescriptor(ModuleTooling+".commons").Version("9.5.0").
			Requires(ModuleTooling, "^9", graph.Transitive).
			Exports("org.objectweb.asm.commons"),
		graph.NewDescriptor(ModuleCompat).Version("1.0.0").
			Requires(ModuleScripting, "").
			Requires(ModuleTooling+".commons", "^9").
			Exports("nashorn.compat").
			Packages("nashorn.compat.remapper"),
	}
}

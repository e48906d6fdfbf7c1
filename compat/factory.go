package compat

import (
	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/host"
	"github.com/wippyai/nashorn-compat/scripting"
)

// ClassFilter is the legacy class filter shape.
type ClassFilter interface {
	ExposeToScripts(name string) bool
}

type classFilter struct{ legacy ClassFilter }

func (f classFilter) Exposed(name string) bool { return f.legacy.ExposeToScripts(name) }

// ScriptEngineFactory wraps a scripting.Factory.
type ScriptEngineFactory struct {
	Instance *scripting.Factory
}

// WrapFactory wraps f.
func WrapFactory(f *scripting.Factory) *ScriptEngineFactory {
	return &ScriptEngineFactory{Instance: f}
}

// Discover wraps every script engine factory published in h.
func Discover(h *host.Host) []*ScriptEngineFactory {
	var out []*ScriptEngineFactory
	for _, p := range h.Services(host.ScriptEngineFactoryService) {
		if f, ok := p.(*scripting.Factory); ok {
			out = append(out, WrapFactory(f))
		}
	}
	return out
}

// NewScriptEngineFactory returns the first factory Discover finds. It fails
// until the scripting component has been bootstrapped into h.
func NewScriptEngineFactory(h *host.Host) (*ScriptEngineFactory, error) {
	found := Discover(h)
	if len(found) == 0 {
		return nil, errors.NotFound(errors.PhaseScript, "script engine factory", scripting.FactoryImpl)
	}
	return found[0], nil
}

func (f *ScriptEngineFactory) EngineName() string      { return f.Instance.EngineName() }
func (f *ScriptEngineFactory) EngineVersion() string   { return f.Instance.EngineVersion() }
func (f *ScriptEngineFactory) Extensions() []string    { return f.Instance.Extensions() }
func (f *ScriptEngineFactory) LanguageName() string    { return f.Instance.LanguageName() }
func (f *ScriptEngineFactory) LanguageVersion() string { return f.Instance.LanguageVersion() }
func (f *ScriptEngineFactory) MimeTypes() []string     { return f.Instance.MimeTypes() }
func (f *ScriptEngineFactory) Names() []string         { return f.Instance.Names() }

func (f *ScriptEngineFactory) MethodCallSyntax(obj, method string, args ...string) string {
	return f.Instance.MethodCallSyntax(obj, method, args...)
}

func (f *ScriptEngineFactory) OutputStatement(s string) string {
	return f.Instance.OutputStatement(s)
}

func (f *ScriptEngineFactory) Parameter(key string) any {
	return toLegacy(f.Instance.Parameter(key))
}

func (f *ScriptEngineFactory) Program(statements ...string) string {
	return f.Instance.Program(statements...)
}

// ScriptEngine creates an engine.
func (f *ScriptEngineFactory) ScriptEngine() *ScriptEngine {
	return &ScriptEngine{Instance: f.Instance.NewEngine()}
}

// ScriptEngineWithFilter creates an engine whose Java.type lookups pass
// through filter.
func (f *ScriptEngineFactory) ScriptEngineWithFilter(filter ClassFilter) *ScriptEngine {
	return f.ScriptEngineWith(nil, nil, filter)
}

// ScriptEngineWithArgs creates an engine exposing args to scripts.
func (f *ScriptEngineFactory) ScriptEngineWithArgs(args ...string) *ScriptEngine {
	return f.ScriptEngineWith(args, nil, nil)
}

// ScriptEngineWith creates an engine with any of args, loader and filter.
func (f *ScriptEngineFactory) ScriptEngineWith(args []string, loader *host.Loader, filter ClassFilter) *ScriptEngine {
	var opts []scripting.EngineOption
	if args != nil {
		opts = append(opts, scripting.WithArgs(args...))
	}
	if loader != nil {
		opts = append(opts, scripting.WithLoader(loader))
	}
	if filter != nil {
		opts = append(opts, scripting.WithClassFilter(classFilter{filter}))
	}
	return &ScriptEngine{Instance: f.Instance.NewEngine(opts...)}
}

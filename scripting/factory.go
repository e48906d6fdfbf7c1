package scripting

import (
	"strings"

	"github.com/wippyai/nashorn-compat/host"
)

// FactoryImpl is the provider name the factory is registered under.
const FactoryImpl = "org.openjdk.nashorn.api.scripting.NashornScriptEngineFactory"

// Parameter keys understood by Factory.Parameter.
const (
	KeyEngine          = "javax.script.engine"
	KeyEngineVersion   = "javax.script.engine_version"
	KeyLanguage        = "javax.script.language"
	KeyLanguageVersion = "javax.script.language_version"
	KeyName            = "javax.script.name"
	KeyThreading       = "THREADING"
)

const (
	engineName      = "OpenJDK Nashorn"
	engineVersion   = "15.4"
	languageName    = "ECMAScript"
	languageVersion = "ECMA - 262 Edition 5.1"
)

var (
	names      = []string{"nashorn", "Nashorn", "js", "JS", "JavaScript", "javascript", "ECMAScript", "ecmascript"}
	mimeTypes  = []string{"application/javascript", "application/ecmascript", "text/javascript", "text/ecmascript"}
	extensions = []string{"js"}
)

// Factory describes the engine and creates instances of it.
type Factory struct {
	global *SimpleBindings
}

// NewFactory creates a factory. Engines it creates share one global-scope
// bindings table.
func NewFactory() *Factory {
	return &Factory{global: NewSimpleBindings(nil)}
}

func (f *Factory) EngineName() string      { return engineName }
func (f *Factory) EngineVersion() string   { return engineVersion }
func (f *Factory) LanguageName() string    { return languageName }
func (f *Factory) LanguageVersion() string { return languageVersion }
func (f *Factory) Names() []string         { return append([]string(nil), names...) }
func (f *Factory) MimeTypes() []string     { return append([]string(nil), mimeTypes...) }
func (f *Factory) Extensions() []string    { return append([]string(nil), extensions...) }

// Parameter returns engine metadata by key. Threading reports nil: engines
// are not safe for concurrent use.
func (f *Factory) Parameter(key string) any {
	switch key {
	case KeyName:
		return "javascript"
	case KeyEngine:
		return engineName
	case KeyEngineVersion:
		return engineVersion
	case KeyLanguage:
		return languageName
	case KeyLanguageVersion:
		return languageVersion
	}
	return nil
}

// MethodCallSyntax returns the expression that calls method on obj.
func (f *Factory) MethodCallSyntax(obj, method string, args ...string) string {
	return obj + "." + method + "(" + strings.Join(args, ", ") + ")"
}

// OutputStatement returns a statement that prints s.
func (f *Factory) OutputStatement(s string) string {
	return "print(" + quote(s) + ")"
}

// Program joins statements into one script.
func (f *Factory) Program(statements ...string) string {
	var b strings.Builder
	for _, s := range statements {
		b.WriteString(s)
		b.WriteByte(';')
	}
	return b.String()
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithArgs exposes args to scripts as the global arguments array.
func WithArgs(args ...string) EngineOption {
	return func(e *Engine) { e.args = append([]string(nil), args...) }
}

// WithClassFilter restricts which names Java.type resolves.
func WithClassFilter(f ClassFilter) EngineOption {
	return func(e *Engine) { e.filter = f }
}

// WithLoader lets Java.type resolve code units defined by l.
func WithLoader(l *host.Loader) EngineOption {
	return func(e *Engine) { e.loader = l }
}

// NewEngine creates an engine with its own default global.
func (f *Factory) NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{factory: f, types: make(map[string]any)}
	for _, o := range opts {
		o(e)
	}
	g := e.newGlobal()
	e.global = g
	e.ctx = NewContext()
	e.ctx.engine = g.object
	e.ctx.global = f.global
	Logger().Debug("engine created")
	return e
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

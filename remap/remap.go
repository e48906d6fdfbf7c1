package remap

import "strings"

// Namespace prefixes. Both spellings have the same length.
const (
	LegacyQualified = "jdk.nashorn."
	NewQualified    = "org.openjdk.nashorn."
	LegacyPath      = "jdk/nashorn/"
	NewPath         = "org/openjdk/nashorn/"

	prefixLen = len(LegacyQualified)

	doubledQualified = "org.open" + NewQualified
	doubledPath      = "org/open" + NewPath
)

// Kind is the kind of name a binding was produced for.
type Kind uint8

const (
	KindQualified Kind = iota // dotted type or package name
	KindPath                  // path-style name
	KindText                  // free-text constant
)

func (k Kind) String() string {
	switch k {
	case KindQualified:
		return "qualified"
	case KindPath:
		return "path"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Binding records one performed rewrite.
type Binding struct {
	Legacy      string
	Replacement string
	Kind        Kind
}

// Granter receives packages, in dotted spelling, that must be exported to
// code outside any named module.
type Granter interface {
	Grant(pkg string)
}

// GranterFunc adapts a function to Granter.
type GranterFunc func(pkg string)

// Grant calls f(pkg).
func (f GranterFunc) Grant(pkg string) { f(pkg) }

// Remapper rewrites names and records what it did.
type Remapper struct {
	granter  Granter
	bindings []Binding
}

// New creates a Remapper reporting package grants to g. g may be nil.
func New(g Granter) *Remapper {
	return &Remapper{granter: g}
}

// Map rewrites name. When prefixed is true only a leading legacy prefix is
// considered; otherwise name is treated as free text.
func (r *Remapper) Map(name string, prefixed bool) string {
	if prefixed {
		out, kind, ok := rewritePrefix(name)
		if ok {
			r.record(kind, name, out)
		}
		return out
	}
	return r.MapValue(name)
}

// MapType rewrites a type name in prefix form. On rewrite the enclosing
// package is granted.
func (r *Remapper) MapType(name string) string {
	out, kind, ok := rewritePrefix(name)
	if !ok {
		return name
	}
	r.record(kind, name, out)
	if pkg := enclosingPackage(out); pkg != "" {
		r.grant(pkg)
	}
	return out
}

// MapPackage rewrites a package name in prefix form and grants it.
func (r *Remapper) MapPackage(name string) string {
	out, kind, ok := rewritePrefix(name)
	if !ok {
		return name
	}
	r.record(kind, name, out)
	r.grant(strings.TrimRight(out, "./"))
	return out
}

// MapValue rewrites a free-text constant in substring form.
func (r *Remapper) MapValue(s string) string {
	out, ok := rewriteText(s)
	if ok {
		r.record(KindText, s, out)
	}
	return out
}

// Remapped reports whether any rewrite occurred.
func (r *Remapper) Remapped() bool {
	return len(r.bindings) > 0
}

// Count returns the number of rewrites performed.
func (r *Remapper) Count() int {
	return len(r.bindings)
}

// Bindings returns the performed rewrites in order.
func (r *Remapper) Bindings() []Binding {
	return append([]Binding(nil), r.bindings...)
}

func (r *Remapper) record(kind Kind, legacy, replacement string) {
	r.bindings = append(r.bindings, Binding{Kind: kind, Legacy: legacy, Replacement: replacement})
}

func (r *Remapper) grant(pkg string) {
	if r.granter == nil || pkg == "" {
		return
	}
	r.granter.Grant(strings.ReplaceAll(pkg, "/", "."))
}

// Legacy reports whether name starts with a legacy prefix in either spelling.
func Legacy(name string) bool {
	_, _, ok := rewritePrefix(name)
	return ok
}

// Rewrite applies the prefix form without recording anything.
func Rewrite(name string) (string, bool) {
	out, _, ok := rewritePrefix(name)
	return out, ok
}

// RewriteText applies the substring form without recording anything.
func RewriteText(s string) (string, bool) {
	return rewriteText(s)
}

func rewritePrefix(name string) (string, Kind, bool) {
	if len(name) < prefixLen {
		return name, 0, false
	}
	switch name[:prefixLen] {
	case LegacyQualified:
		return NewQualified + name[prefixLen:], KindQualified, true
	case LegacyPath:
		return NewPath + name[prefixLen:], KindPath, true
	}
	return name, 0, false
}

// rewriteText covers both spellings in one pass over s. The result counts as
// a rewrite only when it differs from the input.
func rewriteText(s string) (string, bool) {
	if len(s) < prefixLen {
		return s, false
	}
	out := s
	if strings.Contains(out, LegacyQualified) {
		out = strings.ReplaceAll(out, LegacyQualified, NewQualified)
		out = strings.ReplaceAll(out, doubledQualified, NewQualified)
	}
	if strings.Contains(out, LegacyPath) {
		out = strings.ReplaceAll(out, LegacyPath, NewPath)
		out = strings.ReplaceAll(out, doubledPath, NewPath)
	}
	return out, out != s
}

func enclosingPackage(name string) string {
	i := strings.LastIndexAny(name, "./")
	if i < 0 {
		return ""
	}
	return name[:i]
}

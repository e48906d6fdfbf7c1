package compat

import (
	"github.com/dop251/goja"

	"github.com/wippyai/nashorn-compat/scripting"
)

// ScriptObjectMirror wraps a scripting.Mirror. It satisfies
// scripting.Bindings, so it can stand in wherever bindings are accepted.
type ScriptObjectMirror struct {
	Instance *scripting.Mirror
}

var (
	_ scripting.Bindings     = (*ScriptObjectMirror)(nil)
	_ scripting.MirrorHolder = (*ScriptObjectMirror)(nil)
)

// ScriptMirror returns the wrapped mirror, so a legacy mirror stored in
// bindings reaches scripts as the object it mirrors.
func (m *ScriptObjectMirror) ScriptMirror() *scripting.Mirror { return m.instance() }

func wrapMirror(m *scripting.Mirror) *ScriptObjectMirror {
	if m == nil {
		return nil
	}
	return &ScriptObjectMirror{Instance: m}
}

func (m *ScriptObjectMirror) ClassName() string   { return m.Instance.ClassName() }
func (m *ScriptObjectMirror) IsFunction() bool    { return m.Instance.IsFunction() }
func (m *ScriptObjectMirror) IsArray() bool       { return m.Instance.IsArray() }
func (m *ScriptObjectMirror) Export() any         { return m.Instance.Export() }
func (m *ScriptObjectMirror) Object() *goja.Object { return m.Instance.Object() }

func (m *ScriptObjectMirror) Call(thiz any, args ...any) (any, error) {
	return result(m.Instance.Call(fromLegacy(thiz), ConvertArgs(args)...))
}

func (m *ScriptObjectMirror) New(args ...any) (any, error) {
	return result(m.Instance.New(ConvertArgs(args)...))
}

func (m *ScriptObjectMirror) Eval(s string) (any, error) {
	return result(m.Instance.Eval(s))
}

func (m *ScriptObjectMirror) CallMember(name string, args ...any) (any, error) {
	return result(m.Instance.CallMember(name, ConvertArgs(args)...))
}

func (m *ScriptObjectMirror) Member(name string) any { return toLegacy(m.Instance.Member(name)) }
func (m *ScriptObjectMirror) Slot(index int) any     { return toLegacy(m.Instance.Slot(index)) }

func (m *ScriptObjectMirror) HasMember(name string) bool { return m.Instance.HasMember(name) }
func (m *ScriptObjectMirror) HasSlot(index int) bool     { return m.Instance.HasSlot(index) }

func (m *ScriptObjectMirror) RemoveMember(name string) error {
	return m.Instance.RemoveMember(name)
}

func (m *ScriptObjectMirror) SetMember(name string, value any) error {
	return m.Instance.SetMember(name, fromLegacy(value))
}

func (m *ScriptObjectMirror) SetSlot(index int, value any) error {
	return m.Instance.SetSlot(index, fromLegacy(value))
}

func (m *ScriptObjectMirror) IsInstance(v any) bool {
	return m.Instance.IsInstance(fromLegacy(v))
}

func (m *ScriptObjectMirror) Get(key string) (any, bool) {
	v, ok := m.Instance.Get(key)
	return toLegacy(v), ok
}

func (m *ScriptObjectMirror) Put(key string, value any) any {
	return toLegacy(m.Instance.Put(key, fromLegacy(value)))
}

func (m *ScriptObjectMirror) Remove(key string) any {
	return toLegacy(m.Instance.Remove(key))
}

func (m *ScriptObjectMirror) ContainsKey(key string) bool { return m.Instance.ContainsKey(key) }
func (m *ScriptObjectMirror) Keys() []string              { return m.Instance.Keys() }
func (m *ScriptObjectMirror) Len() int                    { return m.Instance.Len() }
func (m *ScriptObjectMirror) IsEmpty() bool               { return m.Instance.IsEmpty() }
func (m *ScriptObjectMirror) Values() []any               { return toLegacyAll(m.Instance.Values()) }
func (m *ScriptObjectMirror) Clear()                      { m.Instance.Clear() }

func (m *ScriptObjectMirror) ContainsValue(v any) bool {
	return m.Instance.ContainsValue(fromLegacy(v))
}

func (m *ScriptObjectMirror) PutAll(values map[string]any) {
	in := make(map[string]any, len(values))
	for k, v := range values {
		in[k] = fromLegacy(v)
	}
	m.Instance.PutAll(in)
}

func (m *ScriptObjectMirror) Proto() any { return toLegacy(m.Instance.Proto()) }

func (m *ScriptObjectMirror) SetProto(proto any) error {
	return m.Instance.SetProto(fromLegacy(proto))
}

func (m *ScriptObjectMirror) OwnPropertyDescriptor(key string) any {
	return toLegacy(m.Instance.OwnPropertyDescriptor(key))
}

func (m *ScriptObjectMirror) OwnKeys(all bool) []string { return m.Instance.OwnKeys(all) }

func (m *ScriptObjectMirror) PreventExtensions() *ScriptObjectMirror {
	return wrapMirror(m.Instance.PreventExtensions())
}

func (m *ScriptObjectMirror) Seal() *ScriptObjectMirror   { return wrapMirror(m.Instance.Seal()) }
func (m *ScriptObjectMirror) Freeze() *ScriptObjectMirror { return wrapMirror(m.Instance.Freeze()) }
func (m *ScriptObjectMirror) IsExtensible() bool          { return m.Instance.IsExtensible() }
func (m *ScriptObjectMirror) IsSealed() bool              { return m.Instance.IsSealed() }
func (m *ScriptObjectMirror) IsFrozen() bool              { return m.Instance.IsFrozen() }
func (m *ScriptObjectMirror) ToNumber() float64           { return m.Instance.ToNumber() }
func (m *ScriptObjectMirror) String() string              { return m.Instance.String() }

// Equals reports whether other mirrors the same object, in either shape.
func (m *ScriptObjectMirror) Equals(other any) bool {
	return m.Instance.Equals(fromLegacy(other))
}

// IsUndefined reports whether v is undefined.
func IsUndefined(v any) bool { return scripting.IsUndefined(fromLegacy(v)) }

// Wrap converts a script value homed in home's global to its legacy Go form.
func Wrap(v any, home *ScriptObjectMirror) any {
	return toLegacy(scripting.Wrap(v, home.instance()))
}

// Unwrap converts a mirror of home's global back to the script object.
func Unwrap(v any, home *ScriptObjectMirror) any {
	return scripting.Unwrap(fromLegacy(v), home.instance())
}

func WrapArray(args []any, home *ScriptObjectMirror) []any {
	return toLegacyAll(scripting.WrapArray(args, home.instance()))
}

func UnwrapArray(args []any, home *ScriptObjectMirror) []any {
	return scripting.UnwrapArray(ConvertArgs(args), home.instance())
}

// Identical reports whether a and b are the same object in either shape, or
// equal comparable values.
func Identical(a, b any) bool {
	return scripting.Identical(fromLegacy(a), fromLegacy(b))
}

func (m *ScriptObjectMirror) instance() *scripting.Mirror {
	if m == nil {
		return nil
	}
	return m.Instance
}

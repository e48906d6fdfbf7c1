package scripting

import (
	"math"
	"reflect"
	"strconv"

	"github.com/dop251/goja"

	"github.com/wippyai/nashorn-compat/errors"
)

// Mirror is a script object seen from Go. Its map view covers the object's
// own enumerable properties.
type Mirror struct {
	g   *global
	obj *goja.Object
}

// MirrorHolder is implemented by values that wrap a Mirror. Holders are
// unwrapped wherever they are handed to a script, including values stored
// in bindings.
type MirrorHolder interface {
	ScriptMirror() *Mirror
}

func (m *Mirror) isGlobal() bool {
	return m.obj == m.g.vm.GlobalObject()
}

// Global returns the mirror of the global m belongs to.
func (m *Mirror) Global() *Mirror { return m.g.object }

// Object returns the underlying script object.
func (m *Mirror) Object() *goja.Object { return m.obj }

// Export returns the object converted to plain Go values.
func (m *Mirror) Export() any { return m.obj.Export() }

// ClassName returns the object's internal class, such as "Object" or
// "Array".
func (m *Mirror) ClassName() string { return m.obj.ClassName() }

// IsFunction reports whether the object is callable.
func (m *Mirror) IsFunction() bool {
	_, ok := goja.AssertFunction(m.obj)
	return ok
}

// IsArray reports whether the object is an array.
func (m *Mirror) IsArray() bool { return m.obj.ClassName() == "Array" }

// Call calls the object as a function with thiz as the receiver.
func (m *Mirror) Call(thiz any, args ...any) (any, error) {
	fn, ok := goja.AssertFunction(m.obj)
	if !ok {
		return nil, notCallable(m.ClassName())
	}
	return m.g.run(m.g.ctx, evalName, func() (goja.Value, error) {
		return fn(m.g.value(thiz), m.g.values(args)...)
	})
}

// New calls the object as a constructor.
func (m *Mirror) New(args ...any) (any, error) {
	return m.g.run(m.g.ctx, evalName, func() (goja.Value, error) {
		obj, err := m.g.vm.New(m.obj, m.g.values(args)...)
		if err != nil {
			return nil, err
		}
		return obj, nil
	})
}

// Eval evaluates s in the global m belongs to.
func (m *Mirror) Eval(s string) (any, error) {
	ctx := m.g.ctx
	if ctx == nil {
		ctx = m.g.engine.ctx
	}
	return m.g.run(ctx, evalName, func() (goja.Value, error) {
		return m.g.vm.RunScript(evalName, s)
	})
}

// CallMember calls method name of the object.
func (m *Mirror) CallMember(name string, args ...any) (any, error) {
	fn, ok := goja.AssertFunction(m.obj.Get(name))
	if !ok {
		return nil, noSuchMethod(name)
	}
	return m.g.run(m.g.ctx, evalName, func() (goja.Value, error) {
		return fn(m.obj, m.g.values(args)...)
	})
}

// Member returns property name, or Undefined.
func (m *Mirror) Member(name string) any {
	return m.g.export(m.obj.Get(name))
}

// Slot returns the element at index, or Undefined.
func (m *Mirror) Slot(index int) any {
	return m.Member(strconv.Itoa(index))
}

// HasMember reports whether name is a property of the object or its
// prototype chain.
func (m *Mirror) HasMember(name string) bool {
	v, err := m.g.builtin(m.g.reflect, "has", m.obj, m.g.vm.ToValue(name))
	return err == nil && v.ToBoolean()
}

// HasSlot reports whether index is present.
func (m *Mirror) HasSlot(index int) bool {
	return m.HasMember(strconv.Itoa(index))
}

// RemoveMember deletes property name.
func (m *Mirror) RemoveMember(name string) error {
	return m.obj.Delete(name)
}

// SetMember sets property name.
func (m *Mirror) SetMember(name string, value any) error {
	return m.obj.Set(name, m.g.value(value))
}

// SetSlot sets the element at index.
func (m *Mirror) SetSlot(index int, value any) error {
	return m.SetMember(strconv.Itoa(index), value)
}

// IsInstance reports whether v was constructed by the object, which must be
// a function.
func (m *Mirror) IsInstance(v any) bool {
	other, ok := v.(*Mirror)
	if !ok || !m.IsFunction() {
		return false
	}
	proto, ok := m.obj.Get("prototype").(*goja.Object)
	if !ok {
		return false
	}
	for p := other.obj.Prototype(); p != nil; p = p.Prototype() {
		if p.SameAs(proto) {
			return true
		}
	}
	return false
}

// Get implements Bindings.
func (m *Mirror) Get(key string) (any, bool) {
	if !m.HasMember(key) {
		return nil, false
	}
	return m.Member(key), true
}

// Put implements Bindings.
func (m *Mirror) Put(key string, value any) any {
	prev, _ := m.Get(key)
	_ = m.SetMember(key, value)
	return prev
}

// Remove implements Bindings.
func (m *Mirror) Remove(key string) any {
	prev, _ := m.Get(key)
	_ = m.RemoveMember(key)
	return prev
}

// ContainsKey implements Bindings.
func (m *Mirror) ContainsKey(key string) bool { return m.HasMember(key) }

// Keys returns the object's own enumerable property names.
func (m *Mirror) Keys() []string { return m.obj.Keys() }

// Len returns the number of own enumerable properties.
func (m *Mirror) Len() int { return len(m.obj.Keys()) }

// IsEmpty reports whether Len is zero.
func (m *Mirror) IsEmpty() bool { return m.Len() == 0 }

// Values returns the values of Keys in order.
func (m *Mirror) Values() []any {
	keys := m.Keys()
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = m.Member(k)
	}
	return out
}

// ContainsValue reports whether some own enumerable property holds v.
func (m *Mirror) ContainsValue(v any) bool {
	for _, x := range m.Values() {
		if Identical(x, v) {
			return true
		}
	}
	return false
}

// Clear deletes every own enumerable property.
func (m *Mirror) Clear() {
	for _, k := range m.Keys() {
		_ = m.obj.Delete(k)
	}
}

// PutAll sets every entry of values.
func (m *Mirror) PutAll(values map[string]any) {
	for k, v := range values {
		_ = m.SetMember(k, v)
	}
}

// Proto returns the object's prototype as a mirror, or nil.
func (m *Mirror) Proto() any {
	p := m.obj.Prototype()
	if p == nil {
		return nil
	}
	return m.g.export(p)
}

// SetProto replaces the object's prototype with a mirror of the same
// global, or removes it when proto is nil.
func (m *Mirror) SetProto(proto any) error {
	switch p := proto.(type) {
	case nil:
		return m.obj.SetPrototype(nil)
	case *Mirror:
		if p.g != m.g {
			return errors.InvalidInput(errors.PhaseScript, "prototype belongs to another global")
		}
		return m.obj.SetPrototype(p.obj)
	default:
		return errors.New(errors.PhaseScript, errors.KindInvalidInput).
			Value(proto).
			Detail("prototype must be a script object").
			Build()
	}
}

// OwnPropertyDescriptor returns the descriptor of own property key, or
// Undefined.
func (m *Mirror) OwnPropertyDescriptor(key string) any {
	v, err := m.g.builtin(m.g.objectCtor, "getOwnPropertyDescriptor", m.obj, m.g.vm.ToValue(key))
	if err != nil {
		return Undefined
	}
	return m.g.export(v)
}

// OwnKeys returns own property names; all includes non-enumerable ones.
func (m *Mirror) OwnKeys(all bool) []string {
	if !all {
		return m.Keys()
	}
	v, err := m.g.builtin(m.g.objectCtor, "getOwnPropertyNames", m.obj)
	if err != nil {
		return nil
	}
	var keys []string
	if err := m.g.vm.ExportTo(v, &keys); err != nil {
		return nil
	}
	return keys
}

func (m *Mirror) apply(fn string) *Mirror {
	_, _ = m.g.builtin(m.g.objectCtor, fn, m.obj)
	return m
}

func (m *Mirror) test(fn string) bool {
	v, err := m.g.builtin(m.g.objectCtor, fn, m.obj)
	return err == nil && v.ToBoolean()
}

func (m *Mirror) PreventExtensions() *Mirror { return m.apply("preventExtensions") }
func (m *Mirror) IsExtensible() bool         { return m.test("isExtensible") }
func (m *Mirror) Seal() *Mirror              { return m.apply("seal") }
func (m *Mirror) IsSealed() bool             { return m.test("isSealed") }
func (m *Mirror) Freeze() *Mirror            { return m.apply("freeze") }
func (m *Mirror) IsFrozen() bool             { return m.test("isFrozen") }

// ToNumber converts the object as the Number function would.
func (m *Mirror) ToNumber() float64 {
	v, err := m.g.toNumber(goja.Undefined(), m.obj)
	if err != nil {
		return math.NaN()
	}
	return v.ToFloat()
}

// String converts the object as the String function would.
func (m *Mirror) String() string {
	v, err := m.g.toString(goja.Undefined(), m.obj)
	if err != nil {
		return "[object " + m.ClassName() + "]"
	}
	return v.String()
}

// Equals reports whether other mirrors the same object.
func (m *Mirror) Equals(other any) bool {
	o, ok := other.(*Mirror)
	return ok && m.obj.SameAs(o.obj)
}

// IsUndefined reports whether v is the script value undefined in either
// its Go or script form.
func IsUndefined(v any) bool {
	switch x := v.(type) {
	case undefined:
		return true
	case goja.Value:
		return goja.IsUndefined(x)
	}
	return false
}

// Wrap converts a script value homed in home's global to its Go form.
// Other values are returned unchanged.
func Wrap(v any, home *Mirror) any {
	if x, ok := v.(goja.Value); ok && home != nil {
		return home.g.export(x)
	}
	return v
}

// Unwrap converts a mirror of home's global back to the script object.
// Other values are returned unchanged.
func Unwrap(v any, home *Mirror) any {
	if m, ok := v.(*Mirror); ok && home != nil && m.g == home.g {
		return m.obj
	}
	return v
}

// WrapArray applies Wrap to every element.
func WrapArray(args []any, home *Mirror) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = Wrap(a, home)
	}
	return out
}

// UnwrapArray applies Unwrap to every element.
func UnwrapArray(args []any, home *Mirror) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = Unwrap(a, home)
	}
	return out
}

// Identical reports whether a and b are the same object, or equal
// comparable values.
func Identical(a, b any) bool {
	if ma, ok := a.(*Mirror); ok {
		return ma.Equals(b)
	}
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func notCallable(class string) error {
	return errors.New(errors.PhaseScript, errors.KindInvalidInput).
		Value(class).
		Detail("%s is not a function", class).
		Build()
}

package compat

import "github.com/wippyai/nashorn-compat/scripting"

// ConvertEngine swaps an engine between its two shapes: a scripting engine
// is wrapped, a legacy engine is unwrapped. Anything else is returned as is.
func ConvertEngine(v any) any {
	switch e := v.(type) {
	case *scripting.Engine:
		return &ScriptEngine{Instance: e}
	case *ScriptEngine:
		return e.Instance
	}
	return v
}

// ConvertMirror swaps a mirror between its two shapes, as ConvertEngine
// does for engines.
func ConvertMirror(v any) any {
	switch m := v.(type) {
	case *scripting.Mirror:
		return &ScriptObjectMirror{Instance: m}
	case *ScriptObjectMirror:
		return m.Instance
	}
	return v
}

// toLegacy translates a value returned by an instance.
func toLegacy(v any) any {
	switch x := v.(type) {
	case *scripting.Mirror:
		return &ScriptObjectMirror{Instance: x}
	case *scripting.Engine:
		return &ScriptEngine{Instance: x}
	}
	return v
}

// fromLegacy translates a value passed to an instance.
func fromLegacy(v any) any {
	switch x := v.(type) {
	case *ScriptObjectMirror:
		return x.Instance
	case *ScriptEngine:
		return x.Instance
	}
	return v
}

// ConvertArgs unwraps every legacy value in args into a new slice.
func ConvertArgs(args []any) []any {
	if args == nil {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = fromLegacy(a)
	}
	return out
}

func toLegacyAll(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = toLegacy(v)
	}
	return out
}

func legacyBindings(b scripting.Bindings) scripting.Bindings {
	if m, ok := b.(*scripting.Mirror); ok {
		return &ScriptObjectMirror{Instance: m}
	}
	return b
}

func instanceBindings(b scripting.Bindings) scripting.Bindings {
	if m, ok := b.(*ScriptObjectMirror); ok {
		return m.Instance
	}
	return b
}

func result(v any, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return toLegacy(v), nil
}

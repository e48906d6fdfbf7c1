package compat

import (
	"sync"

	"github.com/dop251/goja"

	"github.com/wippyai/nashorn-compat/scripting"
)

// Canonical hands out one wrapper per underlying object, so wrappers can be
// compared with ==. The plain conversions allocate a fresh wrapper per call.
// Entries are never evicted; a Canonical should live no longer than the
// engines it serves.
type Canonical struct {
	mu      sync.Mutex
	mirrors map[*goja.Object]*ScriptObjectMirror
	engines map[*scripting.Engine]*ScriptEngine
}

func NewCanonical() *Canonical {
	return &Canonical{
		mirrors: make(map[*goja.Object]*ScriptObjectMirror),
		engines: make(map[*scripting.Engine]*ScriptEngine),
	}
}

// Mirror returns the wrapper for m.
func (c *Canonical) Mirror(m *scripting.Mirror) *ScriptObjectMirror {
	if m == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.mirrors[m.Object()]; ok {
		return w
	}
	w := &ScriptObjectMirror{Instance: m}
	c.mirrors[m.Object()] = w
	return w
}

// Engine returns the wrapper for e.
func (c *Canonical) Engine(e *scripting.Engine) *ScriptEngine {
	if e == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.engines[e]; ok {
		return w
	}
	w := &ScriptEngine{Instance: e}
	c.engines[e] = w
	return w
}

// Value translates v like the engine wrappers do, reusing wrappers.
func (c *Canonical) Value(v any) any {
	switch x := v.(type) {
	case *scripting.Mirror:
		return c.Mirror(x)
	case *scripting.Engine:
		return c.Engine(x)
	}
	return v
}

// Len returns the number of cached wrappers.
func (c *Canonical) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mirrors) + len(c.engines)
}

package scripting

import (
	"io"
	"os"

	"github.com/wippyai/nashorn-compat/errors"
)

// Scopes of a Context.
const (
	EngineScope = 100
	GlobalScope = 200
)

// Context holds the bindings and streams a script runs with.
type Context struct {
	engine Bindings
	global Bindings

	Reader      io.Reader
	Writer      io.Writer
	ErrorWriter io.Writer
}

// NewContext creates a context with empty engine-scope bindings and no
// global scope, writing to the process's standard streams.
func NewContext() *Context {
	return &Context{
		engine:      NewSimpleBindings(nil),
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}
}

// Scopes lists the valid scope values.
func (c *Context) Scopes() []int {
	return []int{EngineScope, GlobalScope}
}

// Bindings returns the bindings of scope, or nil for an unknown or unset
// scope.
func (c *Context) Bindings(scope int) Bindings {
	switch scope {
	case EngineScope:
		return c.engine
	case GlobalScope:
		return c.global
	}
	return nil
}

// SetBindings replaces the bindings of scope. Engine-scope bindings cannot
// be nil.
func (c *Context) SetBindings(b Bindings, scope int) error {
	switch scope {
	case EngineScope:
		if b == nil {
			return errors.InvalidInput(errors.PhaseScript, "engine scope bindings cannot be nil")
		}
		c.engine = b
	case GlobalScope:
		c.global = b
	default:
		return invalidScope(scope)
	}
	return nil
}

// Attribute looks name up in the engine scope, then the global scope, and
// returns the value with the scope it was found in, or -1.
func (c *Context) Attribute(name string) (any, int) {
	for _, scope := range c.Scopes() {
		if b := c.Bindings(scope); b != nil {
			if v, ok := b.Get(name); ok {
				return v, scope
			}
		}
	}
	return nil, -1
}

// SetAttribute sets name in scope.
func (c *Context) SetAttribute(name string, value any, scope int) error {
	b := c.Bindings(scope)
	if b == nil {
		return invalidScope(scope)
	}
	b.Put(name, value)
	return nil
}

// RemoveAttribute removes name from scope and returns its previous value.
func (c *Context) RemoveAttribute(name string, scope int) (any, error) {
	b := c.Bindings(scope)
	if b == nil {
		return nil, invalidScope(scope)
	}
	return b.Remove(name), nil
}

func (c *Context) writer() io.Writer {
	if c == nil || c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

func invalidScope(scope int) error {
	return errors.New(errors.PhaseScript, errors.KindInvalidInput).
		Value(scope).
		Detail("invalid scope").
		Build()
}

package host

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
)

// Unit is a defined code unit.
type Unit struct {
	Compiled wazero.CompiledModule
	Loader   *Loader
	ID       string
	Code     []byte
}

// Loader defines code units into the runtime. Lookups delegate to the
// parent first.
type Loader struct {
	host   *Host
	parent *Loader
	units  map[string]*Unit
	name   string
	mu     sync.RWMutex
}

func (l *Loader) Name() string { return l.name }

func (l *Loader) Parent() *Loader { return l.parent }

// Define loads code with ReasonDefine, compiles the result and records it
// under id.
func (l *Loader) Define(ctx context.Context, id string, code []byte) (*Unit, error) {
	if len(code) == 0 {
		return nil, errors.Load(id, "empty code unit", nil)
	}
	if u := l.Find(id); u != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindDuplicate).
			Unit(id).
			Detail("unit already defined by %s loader", u.Loader.name).
			Build()
	}

	final, err := l.host.Load(ctx, id, code, ReasonDefine)
	if err != nil {
		return nil, err
	}
	compiled, err := l.host.runtime.CompileModule(ctx, final)
	if err != nil {
		return nil, errors.Load(id, "compile", err)
	}

	u := &Unit{Compiled: compiled, Loader: l, ID: id, Code: final}

	l.mu.Lock()
	if _, dup := l.units[id]; dup {
		l.mu.Unlock()
		_ = compiled.Close(ctx)
		return nil, errors.New(errors.PhaseLoad, errors.KindDuplicate).
			Unit(id).
			Detail("unit defined concurrently").
			Build()
	}
	l.units[id] = u
	l.mu.Unlock()

	Logger().Debug("unit defined",
		zap.String("unit", id),
		zap.String("loader", l.name),
		zap.Int("size", len(final)))
	return u, nil
}

// Find returns the unit defined under id by l or an ancestor.
func (l *Loader) Find(id string) *Unit {
	if l.parent != nil {
		if u := l.parent.Find(id); u != nil {
			return u
		}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.units[id]
}

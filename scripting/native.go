package scripting

import (
	"context"
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/host"
)

// ModulePath is the import module name guests use to reach the engine.
const ModulePath = "org/openjdk/nashorn/api/scripting"

// Register binds f to h: as the native provider of the script engine
// factory service, and as the host module at ModulePath. Guests get two
// functions sharing one engine:
//
//	eval(ptr, len i32) f64                      evaluates to a number, NaN on error
//	eval_string(ptr, len, out, cap i32) i32     writes the result as a string,
//	                                            returns its full length or -1
func Register(h *host.Host, f *Factory) error {
	if err := h.RegisterProvider(FactoryImpl, f); err != nil {
		return err
	}
	n := &native{engine: f.NewEngine()}
	i32 := api.ValueTypeI32
	return h.RegisterHostModule(host.HostModule{
		Name: ModulePath,
		Funcs: []host.HostFunc{
			{
				Name:    "eval",
				Params:  []api.ValueType{i32, i32},
				Results: []api.ValueType{api.ValueTypeF64},
				Fn:      api.GoModuleFunc(n.eval),
			},
			{
				Name:    "eval_string",
				Params:  []api.ValueType{i32, i32, i32, i32},
				Results: []api.ValueType{i32},
				Fn:      api.GoModuleFunc(n.evalString),
			},
		},
	})
}

// native serializes guest calls onto one engine.
type native struct {
	mu     sync.Mutex
	engine *Engine
}

func (n *native) run(mod api.Module, ptr, size uint32) (any, bool) {
	mem := mod.Memory()
	if mem == nil {
		Logger().Debug("guest exports no memory", zap.String("module", mod.Name()))
		return nil, false
	}
	src, ok := mem.Read(ptr, size)
	if !ok {
		Logger().Debug("script out of guest memory", zap.String("module", mod.Name()))
		return nil, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	v, err := n.engine.Eval(string(src))
	if err != nil {
		Logger().Debug("guest script failed", zap.String("module", mod.Name()), zap.Error(err))
		return nil, false
	}
	return v, true
}

func (n *native) eval(_ context.Context, mod api.Module, stack []uint64) {
	v, ok := n.run(mod, uint32(stack[0]), uint32(stack[1]))
	if !ok {
		stack[0] = api.EncodeF64(math.NaN())
		return
	}
	stack[0] = api.EncodeF64(toFloat(v))
}

func (n *native) evalString(_ context.Context, mod api.Module, stack []uint64) {
	out, limit := uint32(stack[2]), uint32(stack[3])
	v, ok := n.run(mod, uint32(stack[0]), uint32(stack[1]))
	if !ok {
		stack[0] = api.EncodeI32(-1)
		return
	}
	s := []byte(Display(v))
	w := s
	if uint32(len(w)) > limit {
		w = w[:limit]
	}
	if !mod.Memory().Write(out, w) {
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(int32(len(s)))
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case *Mirror:
		return x.ToNumber()
	}
	return math.NaN()
}

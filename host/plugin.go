package host

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/graph"
)

// Reason tells transformers why a code unit is being loaded.
type Reason uint8

const (
	// ReasonDefine means the unit is about to be defined into the runtime.
	ReasonDefine Reason = iota
	// ReasonAnalysis is a read-only inspection pass.
	ReasonAnalysis
	// ReasonVerify validates a unit without defining it.
	ReasonVerify
)

func (r Reason) String() string {
	switch r {
	case ReasonDefine:
		return "define"
	case ReasonAnalysis:
		return "analysis"
	case ReasonVerify:
		return "verify"
	default:
		return "unknown"
	}
}

// Transformer rewrites code units as they are loaded. Transform may be
// called concurrently and reentrantly.
type Transformer interface {
	Name() string
	// Handles decides whether Transform runs for a unit.
	Handles(id string, empty bool, reason Reason) bool
	// Transform returns the replacement code and whether it differs.
	Transform(ctx context.Context, id string, code []byte) ([]byte, bool, error)
}

// Component types in the listing.
const (
	TypePluginService = "PLUGINSERVICE"
	TypeTransformer   = "TRANSFORMER"
)

// Component is an entry of the externally visible component listing.
type Component struct {
	Name string
	Type string
	File string
}

// RegisterTransformer adds t through the normal path, which is open only
// after Start.
func (h *Host) RegisterTransformer(t Transformer) error {
	if !h.started.Load() {
		return errors.Registration(t.Name(), errors.New(errors.PhasePlugin, errors.KindRegistration).
			Detail("registration is not open before start").
			Build())
	}
	return h.addPlugin(t, Component{Name: t.Name(), Type: TypeTransformer})
}

// InstallPlugin writes t into the plugin table and the component listing
// directly. It works before Start and requires the graph capability.
func (h *Host) InstallPlugin(c *graph.Capability, t Transformer, file string) error {
	if err := c.Verify(h.graph); err != nil {
		return errors.Registration(t.Name(), err)
	}
	return h.addPlugin(t, Component{Name: t.Name(), Type: TypePluginService, File: file})
}

func (h *Host) addPlugin(t Transformer, entry Component) error {
	h.pluginMu.Lock()
	defer h.pluginMu.Unlock()

	cur := *h.plugins.Load()
	for _, p := range cur {
		if p.Name() == t.Name() {
			return errors.Registration(t.Name(), errors.New(errors.PhasePlugin, errors.KindDuplicate).
				Value(t.Name()).
				Detail("plugin already installed").
				Build())
		}
	}
	next := append(slices.Clone(cur), t)
	h.plugins.Store(&next)
	h.components = append(h.components, entry)

	Logger().Info("plugin installed",
		zap.String("name", entry.Name),
		zap.String("type", entry.Type),
		zap.String("file", entry.File))
	return nil
}

// Plugins returns the installed transformers in installation order.
func (h *Host) Plugins() []Transformer {
	return slices.Clone(*h.plugins.Load())
}

// Components returns the component listing.
func (h *Host) Components() []Component {
	h.pluginMu.Lock()
	defer h.pluginMu.Unlock()
	return slices.Clone(h.components)
}

// Load passes code through every transformer that handles it. No lock is
// held while a transformer runs, so transformers may load other units.
func (h *Host) Load(ctx context.Context, id string, code []byte, reason Reason) ([]byte, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	out := code
	for _, t := range *h.plugins.Load() {
		if !t.Handles(id, len(out) == 0, reason) {
			continue
		}
		next, changed, err := t.Transform(ctx, id, out)
		if err != nil {
			if errors.IsFatal(err) {
				return nil, err
			}
			return nil, errors.Load(id, "transform by "+t.Name(), err)
		}
		if changed {
			Logger().Debug("unit transformed",
				zap.String("unit", id),
				zap.String("plugin", t.Name()),
				zap.Stringer("reason", reason))
			out = next
		}
	}
	return out, nil
}

package transform

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
	"github.com/wippyai/nashorn-compat/graph"
	"github.com/wippyai/nashorn-compat/host"
	"github.com/wippyai/nashorn-compat/remap"
)

// PluginName is the name the remapper is listed under.
const PluginName = "NashornCompatRemapper"

// Plugin runs Apply for every unit the host defines.
type Plugin struct {
	granter atomic.Pointer[granterBox]
	metrics *Metrics
	file    string
}

type granterBox struct{ g remap.Granter }

// PluginOption configures a Plugin.
type PluginOption func(*Plugin)

// WithMetrics records work into m.
func WithMetrics(m *Metrics) PluginOption {
	return func(p *Plugin) { p.metrics = m }
}

// WithFile sets the location shown in the component listing.
func WithFile(file string) PluginOption {
	return func(p *Plugin) { p.file = file }
}

// NewPlugin creates an uninstalled plugin with no granter.
func NewPlugin(opts ...PluginOption) *Plugin {
	p := &Plugin{}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements host.Transformer.
func (p *Plugin) Name() string { return PluginName }

// File returns the location shown in the component listing.
func (p *Plugin) File() string { return p.file }

// Handles implements host.Transformer.
func (p *Plugin) Handles(_ string, empty bool, reason host.Reason) bool {
	if p.metrics != nil && !empty {
		p.metrics.inspected.WithLabelValues(reason.String()).Inc()
	}
	return !empty && reason == host.ReasonDefine
}

// SetGranter replaces the sink for package grants. It is safe to call while
// transformations run; each transformation sees one granter throughout.
func (p *Plugin) SetGranter(g remap.Granter) {
	p.granter.Store(&granterBox{g: g})
}

func (p *Plugin) currentGranter() remap.Granter {
	if b := p.granter.Load(); b != nil {
		return b.g
	}
	return nil
}

// Transform implements host.Transformer.
func (p *Plugin) Transform(_ context.Context, id string, code []byte) ([]byte, bool, error) {
	start := time.Now()
	res, err := Apply(code, p.currentGranter())
	if err != nil {
		return nil, false, errors.Fatal(errors.New(errors.PhaseTransform, errors.KindInvalidData).
			Unit(id).
			Cause(err).
			Detail("decode code unit").
			Build())
	}
	if p.metrics != nil {
		p.metrics.observe(res, time.Since(start).Seconds())
	}
	if res.Changed {
		Logger().Debug("legacy references rewritten",
			zap.String("unit", id),
			zap.Int("rewrites", len(res.Bindings)))
	}
	return res.Code, res.Changed, nil
}

// Install registers p in h's plugin table and component listing through the
// privileged path.
func (p *Plugin) Install(h *host.Host, c *graph.Capability) error {
	return h.InstallPlugin(c, p, p.file)
}

var _ host.Transformer = (*Plugin)(nil)

package pricer

import (
	"log/slog"

	"github.com/meenmo/fxtree/config"
	"github.com/meenmo/fxtree/internal/metrics"
)

// Option configures an ImpliedTreeBarrierPricer.
type Option func(*ImpliedTreeBarrierPricer)

// WithConfig replaces the default numeric configuration. Steps is taken from the
// constructor argument, not from cfg.
func WithConfig(cfg config.Config) Option {
	return func(p *ImpliedTreeBarrierPricer) { p.cfg = cfg }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(p *ImpliedTreeBarrierPricer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records calibrations and failures on m.
func WithMetrics(m *metrics.Pricing) Option {
	return func(p *ImpliedTreeBarrierPricer) { p.metrics = m }
}

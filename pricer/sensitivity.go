package pricer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/fxtree/fx"
	"github.com/meenmo/fxtree/market"
)

// Greeks are bump-and-revalue sensitivities of the per-unit price.
type Greeks struct {
	Price float64
	// Delta and Gamma are with respect to the spot rate.
	Delta float64
	Gamma float64
	// Vega is per unit of parallel volatility shift.
	Vega float64
	// Rho is per unit of parallel shift of the counter currency zero rates.
	Rho float64
}

// Sensitivities reprices the option under central bumps of spot, volatility and
// the counter rate. Every scenario calibrates its own tree; scenarios run
// concurrently and the first failure cancels those not yet started.
func (p *ImpliedTreeBarrierPricer) Sensitivities(ctx context.Context, option fx.SingleBarrierOption, rates market.RatesProvider, vols market.VolatilityProvider) (Greeks, error) {
	pair := option.Underlying.Pair
	spot, err := rates.FxRate(pair)
	if err != nil {
		return Greeks{}, err
	}
	cfg := p.cfg

	type scenario struct {
		rates market.RatesProvider
		vols  market.VolatilityProvider
	}
	scenarios := []scenario{
		{rates, vols},
		{market.ShiftSpot(rates, pair, cfg.SpotBump), vols},
		{market.ShiftSpot(rates, pair, -cfg.SpotBump), vols},
		{rates, market.ShiftVolatility(vols, cfg.VolBump)},
		{rates, market.ShiftVolatility(vols, -cfg.VolBump)},
		{market.ShiftRate(rates, pair.Counter, cfg.RateBump), vols},
		{market.ShiftRate(rates, pair.Counter, -cfg.RateBump), vols},
	}
	prices := make([]float64, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range scenarios {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := p.Price(option, s.rates, s.vols)
			if err != nil {
				return err
			}
			prices[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Greeks{}, err
	}

	h := spot * cfg.SpotBump
	return Greeks{
		Price: prices[0],
		Delta: (prices[1] - prices[2]) / (2 * h),
		Gamma: (prices[1] - 2*prices[0] + prices[2]) / (h * h),
		Vega:  (prices[3] - prices[4]) / (2 * cfg.VolBump),
		Rho:   (prices[5] - prices[6]) / (2 * cfg.RateBump),
	}, nil
}

// Package market holds the rate and volatility inputs of the FX option pricers.
package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/meenmo/fxtree/fx"
)

var (
	// ErrMissingCurve is returned when no discount curve exists for a currency.
	ErrMissingCurve = errors.New("missing discount curve")
	// ErrMissingFxRate is returned when a pair cannot be quoted.
	ErrMissingFxRate = errors.New("missing fx rate")
	// ErrInvalidSurface is returned for malformed volatility grids or lookups
	// on a pair the surface does not quote.
	ErrInvalidSurface = errors.New("invalid volatility surface")
)

// DiscountFactors is a discount curve on a year-fraction axis.
type DiscountFactors interface {
	DiscountFactor(t float64) float64
	// ZeroRate is the continuously compounded zero rate at t.
	ZeroRate(t float64) float64
}

// RatesProvider supplies FX spot rates and discount curves.
type RatesProvider interface {
	ValuationDate() time.Time
	FxRate(pair fx.CurrencyPair) (float64, error)
	DiscountFactors(ccy fx.Currency) (DiscountFactors, error)
}

// VolatilityProvider supplies Black volatilities of one currency pair.
type VolatilityProvider interface {
	ValuationDateTime() time.Time
	// RelativeTime is the ACT/365F year fraction from the valuation instant.
	RelativeTime(t time.Time) float64
	Volatility(pair fx.CurrencyPair, t, strike, forward float64) (float64, error)
}

// ImmutableRatesProvider is a fixed snapshot of spots and curves.
type ImmutableRatesProvider struct {
	valuation time.Time
	spots     map[fx.CurrencyPair]float64
	curves    map[fx.Currency]DiscountFactors
}

// NewImmutableRatesProvider copies the given spots and curves.
func NewImmutableRatesProvider(valuation time.Time, spots map[fx.CurrencyPair]float64, curves map[fx.Currency]DiscountFactors) (*ImmutableRatesProvider, error) {
	p := &ImmutableRatesProvider{
		valuation: valuation,
		spots:     make(map[fx.CurrencyPair]float64, len(spots)),
		curves:    make(map[fx.Currency]DiscountFactors, len(curves)),
	}
	for pair, s := range spots {
		if !(s > 0) {
			return nil, fmt.Errorf("%w: %s spot %v", ErrMissingFxRate, pair, s)
		}
		p.spots[pair] = s
	}
	for ccy, c := range curves {
		if c == nil {
			return nil, fmt.Errorf("%w: nil curve for %s", ErrMissingCurve, ccy)
		}
		p.curves[ccy] = c
	}
	return p, nil
}

func (p *ImmutableRatesProvider) ValuationDate() time.Time { return p.valuation }

// FxRate returns the spot of pair, inverting a quote of the reversed pair if needed.
func (p *ImmutableRatesProvider) FxRate(pair fx.CurrencyPair) (float64, error) {
	if pair.Base == pair.Counter {
		return 1, nil
	}
	if s, ok := p.spots[pair]; ok {
		return s, nil
	}
	if s, ok := p.spots[pair.Inverse()]; ok {
		return 1 / s, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingFxRate, pair)
}

func (p *ImmutableRatesProvider) DiscountFactors(ccy fx.Currency) (DiscountFactors, error) {
	c, ok := p.curves[ccy]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingCurve, ccy)
	}
	return c, nil
}

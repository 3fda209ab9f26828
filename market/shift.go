package market

import (
	"math"
	"time"

	"github.com/meenmo/fxtree/fx"
)

// ShiftSpot returns a view of r with the spot of pair scaled by (1 + relative).
// The inverse pair moves consistently.
func ShiftSpot(r RatesProvider, pair fx.CurrencyPair, relative float64) RatesProvider {
	return spotShift{RatesProvider: r, pair: pair, factor: 1 + relative}
}

type spotShift struct {
	RatesProvider
	pair   fx.CurrencyPair
	factor float64
}

func (s spotShift) FxRate(pair fx.CurrencyPair) (float64, error) {
	v, err := s.RatesProvider.FxRate(pair)
	if err != nil {
		return 0, err
	}
	switch pair {
	case s.pair:
		return v * s.factor, nil
	case s.pair.Inverse():
		return v / s.factor, nil
	}
	return v, nil
}

// ShiftRate returns a view of r with the zero rates of ccy moved by shift.
func ShiftRate(r RatesProvider, ccy fx.Currency, shift float64) RatesProvider {
	return rateShift{RatesProvider: r, ccy: ccy, shift: shift}
}

type rateShift struct {
	RatesProvider
	ccy   fx.Currency
	shift float64
}

func (s rateShift) DiscountFactors(ccy fx.Currency) (DiscountFactors, error) {
	df, err := s.RatesProvider.DiscountFactors(ccy)
	if err != nil || ccy != s.ccy {
		return df, err
	}
	return shiftedCurve{base: df, shift: s.shift}, nil
}

type shiftedCurve struct {
	base  DiscountFactors
	shift float64
}

func (c shiftedCurve) ZeroRate(t float64) float64 { return c.base.ZeroRate(t) + c.shift }

func (c shiftedCurve) DiscountFactor(t float64) float64 {
	if t <= 0 {
		return c.base.DiscountFactor(t)
	}
	return c.base.DiscountFactor(t) * math.Exp(-c.shift*t)
}

// ShiftVolatility returns a view of v with every volatility moved by shift.
func ShiftVolatility(v VolatilityProvider, shift float64) VolatilityProvider {
	return volShift{base: v, shift: shift}
}

type volShift struct {
	base  VolatilityProvider
	shift float64
}

func (s volShift) ValuationDateTime() time.Time     { return s.base.ValuationDateTime() }
func (s volShift) RelativeTime(t time.Time) float64 { return s.base.RelativeTime(t) }

func (s volShift) Volatility(pair fx.CurrencyPair, t, strike, forward float64) (float64, error) {
	v, err := s.base.Volatility(pair, t, strike, forward)
	if err != nil {
		return 0, err
	}
	return v + s.shift, nil
}

// Package input reads the TOML market and trade description used by barrierprice.
package input

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/meenmo/fxtree/curve"
	"github.com/meenmo/fxtree/fx"
	"github.com/meenmo/fxtree/market"
	"github.com/meenmo/fxtree/utils"
)

// File is the input schema.
//
// Conventions:
// - rates are continuously compounded decimals (0.011 means 1.1%)
// - curve times and volatility expiries are ACT/365F year fractions
// - dates are YYYY-MM-DD
type File struct {
	ValuationDate string     `toml:"valuation_date"`
	Pair          string     `toml:"pair"`
	Spot          float64    `toml:"spot"`
	Curves        []Curve    `toml:"curves"`
	Volatility    Volatility `toml:"volatility"`
	Option        Option     `toml:"option"`
	Barrier       Barrier    `toml:"barrier"`
	Rebate        *Rebate    `toml:"rebate"`
}

// Curve is either zero-rate pillars (times, rates) or dated discount factors
// (dates, discount_factors).
type Curve struct {
	Currency        string    `toml:"currency"`
	Times           []float64 `toml:"times"`
	Rates           []float64 `toml:"rates"`
	Dates           []string  `toml:"dates"`
	DiscountFactors []float64 `toml:"discount_factors"`
	DayCount        string    `toml:"day_count"` // for dated discount factors, default ACT/365F
}

// Volatility is a flat vol or an expiry x strike grid.
type Volatility struct {
	Flat     float64     `toml:"flat"`
	Expiries []float64   `toml:"expiries"`
	Strikes  []float64   `toml:"strikes"`
	Vols     [][]float64 `toml:"vols"`
}

type Option struct {
	PutCall   string  `toml:"put_call"`
	LongShort string  `toml:"long_short"`
	Strike    float64 `toml:"strike"`
	Notional  float64 `toml:"notional"`
	Expiry    string  `toml:"expiry"`
}

type Barrier struct {
	Direction string  `toml:"direction"` // up or down
	Knock     string  `toml:"knock"`     // in or out
	Level     float64 `toml:"level"`
}

type Rebate struct {
	Currency string  `toml:"currency"`
	Amount   float64 `toml:"amount"`
}

// Case is a decoded input ready for pricing.
type Case struct {
	Rates  market.RatesProvider
	Vols   market.VolatilityProvider
	Option fx.SingleBarrierOption
	// FlatVol is set when the volatility section is flat.
	FlatVol float64
}

// Load decodes a file. Unknown keys are rejected.
func Load(path string) (*File, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	return &f, nil
}

// Parse decodes from a reader.
func Parse(r io.Reader) (*File, error) {
	var f File
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	return &f, nil
}

func checkUndecoded(md toml.MetaData) error {
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(names, ", "))
	}
	return nil
}

// Build validates the file and assembles the market and the option.
func (f *File) Build() (*Case, error) {
	val, err := utils.ParseDate(f.ValuationDate)
	if err != nil {
		return nil, fmt.Errorf("invalid valuation_date: %v", err)
	}
	pair, err := fx.ParsePair(f.Pair)
	if err != nil {
		return nil, err
	}
	if f.Spot <= 0 {
		return nil, fmt.Errorf("spot is required")
	}

	curves := make(map[fx.Currency]market.DiscountFactors, len(f.Curves))
	for i, c := range f.Curves {
		ccy, err := fx.ParseCurrency(c.Currency)
		if err != nil {
			return nil, fmt.Errorf("curves[%d]: %w", i, err)
		}
		dfs, err := c.build(val)
		if err != nil {
			return nil, fmt.Errorf("curves[%d] (%s): %w", i, ccy, err)
		}
		curves[ccy] = dfs
	}
	rates, err := market.NewImmutableRatesProvider(val, map[fx.CurrencyPair]float64{pair: f.Spot}, curves)
	if err != nil {
		return nil, err
	}

	vols, flat, err := f.Volatility.build(pair, val)
	if err != nil {
		return nil, err
	}

	option, err := f.option(pair)
	if err != nil {
		return nil, err
	}
	return &Case{Rates: rates, Vols: vols, Option: option, FlatVol: flat}, nil
}

func (c Curve) build(val time.Time) (*curve.Curve, error) {
	switch {
	case len(c.Times) > 0:
		if len(c.Times) != len(c.Rates) {
			return nil, fmt.Errorf("%d times but %d rates", len(c.Times), len(c.Rates))
		}
		pillars := make([]curve.Pillar, len(c.Times))
		for i := range c.Times {
			pillars[i] = curve.Pillar{Time: c.Times[i], Rate: c.Rates[i]}
		}
		return curve.New(pillars)
	case len(c.Dates) > 0:
		if len(c.Dates) != len(c.DiscountFactors) {
			return nil, fmt.Errorf("%d dates but %d discount factors", len(c.Dates), len(c.DiscountFactors))
		}
		dfs := make(map[time.Time]float64, len(c.Dates))
		for i, s := range c.Dates {
			d, err := utils.ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q: %v", s, err)
			}
			dfs[d] = c.DiscountFactors[i]
		}
		return curve.FromDiscountFactors(val, dfs, c.DayCount)
	case len(c.Rates) == 1:
		return curve.Flat(c.Rates[0]), nil
	}
	return nil, fmt.Errorf("curve needs times/rates, dates/discount_factors or a single rate")
}

func (v Volatility) build(pair fx.CurrencyPair, val time.Time) (market.VolatilityProvider, float64, error) {
	if len(v.Vols) > 0 {
		s, err := market.NewSmileVolatility(pair, val, v.Expiries, v.Strikes, v.Vols)
		return s, 0, err
	}
	if v.Flat <= 0 {
		return nil, 0, fmt.Errorf("volatility needs flat or expiries/strikes/vols")
	}
	return market.FlatVolatility{Pair: pair, Valuation: val, Vol: v.Flat}, v.Flat, nil
}

func (f *File) option(pair fx.CurrencyPair) (fx.SingleBarrierOption, error) {
	o := f.Option
	pc, err := fx.ParsePutCall(o.PutCall)
	if err != nil {
		return fx.SingleBarrierOption{}, err
	}
	ls := fx.Long
	if o.LongShort != "" {
		if ls, err = fx.ParseLongShort(o.LongShort); err != nil {
			return fx.SingleBarrierOption{}, err
		}
	}
	expiry, err := utils.ParseDate(o.Expiry)
	if err != nil {
		return fx.SingleBarrierOption{}, fmt.Errorf("invalid option.expiry: %v", err)
	}
	u, err := fx.NewVanillaOption(ls, pc, pair, o.Strike, decimal.NewFromFloat(o.Notional), expiry)
	if err != nil {
		return fx.SingleBarrierOption{}, err
	}

	b := fx.ConstantContinuousBarrier{Level: f.Barrier.Level}
	switch strings.ToLower(f.Barrier.Direction) {
	case "up":
		b.BarrierType = fx.Up
	case "down":
		b.BarrierType = fx.Down
	default:
		return fx.SingleBarrierOption{}, fmt.Errorf("invalid barrier.direction %q (use up or down)", f.Barrier.Direction)
	}
	switch strings.ToLower(f.Barrier.Knock) {
	case "in":
		b.KnockType = fx.KnockIn
	case "out":
		b.KnockType = fx.KnockOut
	default:
		return fx.SingleBarrierOption{}, fmt.Errorf("invalid barrier.knock %q (use in or out)", f.Barrier.Knock)
	}

	var rebate *fx.CurrencyAmount
	if f.Rebate != nil {
		ccy, err := fx.ParseCurrency(f.Rebate.Currency)
		if err != nil {
			return fx.SingleBarrierOption{}, err
		}
		r := fx.NewCurrencyAmount(ccy, f.Rebate.Amount)
		rebate = &r
	}
	return fx.NewSingleBarrierOption(u, b, rebate)
}

// Package pricer prices FX single-barrier options on implied trinomial trees.
package pricer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/fxtree/config"
	"github.com/meenmo/fxtree/fx"
	"github.com/meenmo/fxtree/internal/logging"
	"github.com/meenmo/fxtree/internal/metrics"
	"github.com/meenmo/fxtree/market"
	"github.com/meenmo/fxtree/tree"
	"github.com/meenmo/fxtree/utils"
)

// ImpliedTreeBarrierPricer calibrates a trinomial tree to the FX volatility
// surface and prices continuous single-barrier options on it. Knock-in options
// are priced through in/out parity. Prices are per unit of base notional, in
// counter currency.
type ImpliedTreeBarrierPricer struct {
	steps   int
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Pricing
}

// NewImpliedTreeBarrierPricer returns a pricer building trees of the given number
// of steps, which must be greater than 2.
func NewImpliedTreeBarrierPricer(steps int, opts ...Option) (*ImpliedTreeBarrierPricer, error) {
	if steps <= 2 {
		return nil, fmt.Errorf("%w: number of time steps must be greater than 2, got %d", tree.ErrInvalidArgument, steps)
	}
	p := &ImpliedTreeBarrierPricer{
		steps:  steps,
		cfg:    config.DefaultConfig,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cfg.Steps = steps
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Steps is the number of time steps of the trees this pricer builds.
func (p *ImpliedTreeBarrierPricer) Steps() int { return p.steps }

// Config returns the numeric configuration in use.
func (p *ImpliedTreeBarrierPricer) Config() config.Config { return p.cfg }

// curves resolves the spot and the two discount curves of a pair.
type curves struct {
	spot    float64
	base    market.DiscountFactors
	counter market.DiscountFactors
}

func resolve(pair fx.CurrencyPair, rates market.RatesProvider) (curves, error) {
	spot, err := rates.FxRate(pair)
	if err != nil {
		return curves{}, err
	}
	base, err := rates.DiscountFactors(pair.Base)
	if err != nil {
		return curves{}, err
	}
	counter, err := rates.DiscountFactors(pair.Counter)
	if err != nil {
		return curves{}, err
	}
	return curves{spot: spot, base: base, counter: counter}, nil
}

// Calibrate builds the implied tree for the option's pair and expiry. The counter
// currency curve drives discounting; the base currency curve plays the dividend.
// Unsupported barriers and market data from different valuation dates are
// rejected with tree.ErrInvalidArgument before any tree is built.
func (p *ImpliedTreeBarrierPricer) Calibrate(option fx.SingleBarrierOption, rates market.RatesProvider, vols market.VolatilityProvider) (*tree.Data, error) {
	if _, err := checkOption(option, rates, vols); err != nil {
		p.metrics.ObserveError("validation")
		p.logger.Warn("barrier option rejected", "error", err)
		return nil, err
	}
	u := option.Underlying
	c, err := resolve(u.Pair, rates)
	if err != nil {
		p.metrics.ObserveError("market_data")
		return nil, err
	}
	T := vols.RelativeTime(u.Expiry)
	if !(T > 0) {
		p.metrics.ObserveError("validation")
		return nil, fmt.Errorf("%w: option expired (%s)", tree.ErrInvalidArgument, u.Expiry.Format(time.RFC3339))
	}

	// The calibrator sees only floats; keep the first lookup error for the caller.
	var volErr error
	surface := func(t, strike float64) float64 {
		fwd := c.spot * c.base.DiscountFactor(t) / c.counter.DiscountFactor(t)
		v, err := vols.Volatility(u.Pair, t, strike, fwd)
		if err != nil {
			if volErr == nil {
				volErr = err
			}
			return math.NaN()
		}
		return v
	}

	cal := tree.Calibrator{Steps: p.steps, TimeToExpiry: T, Config: p.cfg, Logger: p.logger}
	start := time.Now()
	data, err := cal.Calibrate(surface, c.spot, c.counter.ZeroRate, c.base.ZeroRate)
	if err != nil {
		if volErr != nil {
			err = errors.Join(err, volErr)
		}
		p.metrics.ObserveError("calibration")
		p.logger.Warn("calibration failed", "pair", u.Pair.String(), "steps", p.steps, "error", err)
		return nil, err
	}
	elapsed := time.Since(start)
	p.metrics.ObserveCalibration(elapsed, data.FallbackNodes())
	p.logger.Debug("calibrated",
		"pair", u.Pair.String(),
		"steps", p.steps,
		"expiry", T,
		"fallback_nodes", data.FallbackNodes(),
		"elapsed", elapsed,
	)
	return data, nil
}

// Price calibrates a tree and prices the option on it.
func (p *ImpliedTreeBarrierPricer) Price(option fx.SingleBarrierOption, rates market.RatesProvider, vols market.VolatilityProvider) (float64, error) {
	data, err := p.Calibrate(option, rates, vols)
	if err != nil {
		return 0, err
	}
	return p.PriceWithData(option, rates, vols, data)
}

// PriceWithData prices the option on a tree calibrated beforehand, typically
// shared between options of the same pair and expiry.
//
// A knock-in is vanilla + R·df(T) − KO, where KO pays R·df(T)/df(t) on a hit at
// t. Unlike vanilla − KO with a negated rebate series, this pays the knock-in
// rebate at expiry when the barrier was never touched.
func (p *ImpliedTreeBarrierPricer) PriceWithData(option fx.SingleBarrierOption, rates market.RatesProvider, vols market.VolatilityProvider, data *tree.Data) (float64, error) {
	barrier, T, err := p.validate(option, rates, vols, data)
	if err != nil {
		p.metrics.ObserveError("validation")
		p.logger.Warn("barrier option rejected", "error", err)
		return 0, err
	}
	u := option.Underlying
	counter, err := rates.DiscountFactors(u.Pair.Counter)
	if err != nil {
		p.metrics.ObserveError("market_data")
		return 0, err
	}

	pc := tree.Call
	if u.PutCall == fx.Put {
		pc = tree.Put
	}
	bt := tree.Down
	if barrier.BarrierType == fx.Up {
		bt = tree.Up
	}
	rebate := rebatePerUnit(option, barrier.Level)
	n := p.steps

	if barrier.KnockType == fx.KnockOut {
		ko, err := tree.NewKnockOutPayoff(u.Strike, T, pc, bt, barrier.Level, tree.ConstantRebates(rebate, n))
		if err != nil {
			return 0, err
		}
		return p.price(ko, data)
	}

	// Knock-in: the rebate is paid at expiry if the barrier was never hit.
	// A knock-out paying R*df(T)/df(t) on hit at t closes the parity.
	vanilla, err := tree.NewVanillaPayoff(u.Strike, T, pc)
	if err != nil {
		return 0, err
	}
	dfT := counter.DiscountFactor(T)
	dt := data.Dt()
	series := make([]float64, n+1)
	for i := range series {
		series[i] = rebate * dfT / counter.DiscountFactor(dt*float64(i))
	}
	ko, err := tree.NewKnockOutPayoff(u.Strike, T, pc, bt, barrier.Level, series)
	if err != nil {
		return 0, err
	}
	v, err := p.price(vanilla, data)
	if err != nil {
		return 0, err
	}
	k, err := p.price(ko, data)
	if err != nil {
		return 0, err
	}
	return v + rebate*dfT - k, nil
}

func (p *ImpliedTreeBarrierPricer) price(payoff tree.Payoff, data *tree.Data) (float64, error) {
	v, err := tree.Price(payoff, data)
	if err != nil {
		p.metrics.ObserveError("pricing")
		p.logger.Warn("tree pricing failed", "kind", payoff.Kind.String(), "error", err)
	}
	return v, err
}

// checkOption rejects what no tree can price: barriers other than constant
// continuous ones, and market data from different valuation dates.
func checkOption(option fx.SingleBarrierOption, rates market.RatesProvider, vols market.VolatilityProvider) (fx.ConstantContinuousBarrier, error) {
	barrier, ok := option.Barrier.(fx.ConstantContinuousBarrier)
	if !ok {
		return barrier, fmt.Errorf("%w: barrier type not supported: %T", tree.ErrInvalidArgument, option.Barrier)
	}
	if !utils.SameDate(vols.ValuationDateTime(), rates.ValuationDate()) {
		return barrier, fmt.Errorf("%w: volatility and rate data must be for the same date", tree.ErrInvalidArgument)
	}
	return barrier, nil
}

func (p *ImpliedTreeBarrierPricer) validate(option fx.SingleBarrierOption, rates market.RatesProvider, vols market.VolatilityProvider, data *tree.Data) (fx.ConstantContinuousBarrier, float64, error) {
	barrier, err := checkOption(option, rates, vols)
	if err != nil {
		return barrier, 0, err
	}
	if data == nil {
		return barrier, 0, fmt.Errorf("%w: nil tree data", tree.ErrInvalidArgument)
	}
	T := vols.RelativeTime(option.Underlying.Expiry)
	if math.Abs(data.TimeToExpiry()-T) > p.cfg.ExpiryTolerance {
		return barrier, 0, fmt.Errorf("%w: time to expiry mismatch between tree (%v) and option (%v)",
			tree.ErrInvalidArgument, data.TimeToExpiry(), T)
	}
	if data.Steps() != p.steps {
		return barrier, 0, fmt.Errorf("%w: tree has %d steps, pricer expects %d", tree.ErrInvalidArgument, data.Steps(), p.steps)
	}
	return barrier, T, nil
}

// rebatePerUnit converts the rebate to counter currency per unit of base
// notional. A base-currency rebate is exchanged at the barrier level.
func rebatePerUnit(option fx.SingleBarrierOption, level float64) float64 {
	r := option.Rebate
	if r == nil {
		return 0
	}
	notional := option.Underlying.Notional.InexactFloat64()
	amount := r.Float64()
	if r.Currency == option.Underlying.Pair.Counter {
		return amount / notional
	}
	return amount * level / notional
}

// PresentValue is the signed counter-currency value of the position:
// price times notional, negated for a short.
func (p *ImpliedTreeBarrierPricer) PresentValue(option fx.SingleBarrierOption, rates market.RatesProvider, vols market.VolatilityProvider) (fx.CurrencyAmount, error) {
	price, err := p.Price(option, rates, vols)
	if err != nil {
		return fx.CurrencyAmount{}, err
	}
	return presentValue(option.Underlying, price), nil
}

func presentValue(u fx.VanillaOption, price float64) fx.CurrencyAmount {
	amount := decimal.NewFromFloat(price).Mul(u.Notional)
	if u.LongShort == fx.Short {
		amount = amount.Neg()
	}
	return fx.CurrencyAmount{Currency: u.Pair.Counter, Amount: amount}
}

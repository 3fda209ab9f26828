package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/meenmo/fxtree/fx"
	"github.com/meenmo/fxtree/utils"
)

// quote maps a lookup to the surface's own quoting direction.
func quote(surface, pair fx.CurrencyPair, strike float64) (float64, error) {
	switch pair {
	case surface:
		return strike, nil
	case surface.Inverse():
		return 1 / strike, nil
	}
	return 0, fmt.Errorf("%w: surface quotes %s, asked for %s", ErrInvalidSurface, surface, pair)
}

// FlatVolatility is one volatility for every expiry and strike.
type FlatVolatility struct {
	Pair      fx.CurrencyPair
	Valuation time.Time
	Vol       float64
}

func (v FlatVolatility) ValuationDateTime() time.Time { return v.Valuation }

func (v FlatVolatility) RelativeTime(t time.Time) float64 { return utils.RelativeTime(v.Valuation, t) }

func (v FlatVolatility) Volatility(pair fx.CurrencyPair, t, strike, forward float64) (float64, error) {
	if _, err := quote(v.Pair, pair, strike); err != nil {
		return 0, err
	}
	return v.Vol, nil
}

// SmileVolatility interpolates a grid of Black volatilities. Each expiry row is
// linear in strike; between expiries total variance is linear in time. Outside
// the grid the nearest row or strike is held flat.
type SmileVolatility struct {
	pair      fx.CurrencyPair
	valuation time.Time
	expiries  []float64
	strikes   []float64
	rows      []interp.PiecewiseLinear
	vols      [][]float64
}

// NewSmileVolatility builds a surface from vols[i][j] at expiries[i] and strikes[j].
// Both axes must be strictly increasing with at least two strikes.
func NewSmileVolatility(pair fx.CurrencyPair, valuation time.Time, expiries, strikes []float64, vols [][]float64) (*SmileVolatility, error) {
	if len(expiries) == 0 || len(strikes) < 2 || len(vols) != len(expiries) {
		return nil, fmt.Errorf("%w: %d expiries, %d strikes, %d rows", ErrInvalidSurface, len(expiries), len(strikes), len(vols))
	}
	if !increasing(expiries) || !increasing(strikes) || expiries[0] <= 0 {
		return nil, fmt.Errorf("%w: axes must be positive and strictly increasing", ErrInvalidSurface)
	}
	s := &SmileVolatility{
		pair:      pair,
		valuation: valuation,
		expiries:  append([]float64(nil), expiries...),
		strikes:   append([]float64(nil), strikes...),
		rows:      make([]interp.PiecewiseLinear, len(expiries)),
		vols:      make([][]float64, len(expiries)),
	}
	for i, row := range vols {
		if len(row) != len(strikes) {
			return nil, fmt.Errorf("%w: row %d has %d vols for %d strikes", ErrInvalidSurface, i, len(row), len(strikes))
		}
		for _, v := range row {
			if !(v > 0) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: volatility %v in row %d", ErrInvalidSurface, v, i)
			}
		}
		s.vols[i] = append([]float64(nil), row...)
		if err := s.rows[i].Fit(s.strikes, s.vols[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSurface, err)
		}
	}
	return s, nil
}

func increasing(xs []float64) bool {
	return sort.SliceIsSorted(xs, func(i, j int) bool { return xs[i] < xs[j] }) && !hasDuplicates(xs)
}

func hasDuplicates(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] == xs[i-1] {
			return true
		}
	}
	return false
}

func (s *SmileVolatility) ValuationDateTime() time.Time { return s.valuation }

func (s *SmileVolatility) RelativeTime(t time.Time) float64 { return utils.RelativeTime(s.valuation, t) }

func (s *SmileVolatility) rowVol(i int, k float64) float64 {
	lo, hi := s.strikes[0], s.strikes[len(s.strikes)-1]
	k = math.Min(math.Max(k, lo), hi)
	return s.rows[i].Predict(k)
}

func (s *SmileVolatility) Volatility(pair fx.CurrencyPair, t, strike, forward float64) (float64, error) {
	k, err := quote(s.pair, pair, strike)
	if err != nil {
		return 0, err
	}
	l := utils.LowerBoundIndex(s.expiries, t)
	switch {
	case l < 0:
		return s.rowVol(0, k), nil
	case l == len(s.expiries)-1:
		return s.rowVol(l, k), nil
	}
	t0, t1 := s.expiries[l], s.expiries[l+1]
	v0, v1 := s.rowVol(l, k), s.rowVol(l+1, k)
	w := (t - t0) / (t1 - t0)
	variance := (1-w)*v0*v0*t0 + w*v1*v1*t1
	return math.Sqrt(variance / t), nil
}

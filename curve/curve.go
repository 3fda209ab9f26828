// Package curve provides zero-rate curves on a year-fraction axis.
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/meenmo/fxtree/utils"
)

// ErrInvalidPillars is returned for empty, unsorted or non-finite pillars.
var ErrInvalidPillars = errors.New("invalid curve pillars")

// Pillar is a continuously compounded zero rate at a year fraction.
type Pillar struct {
	Time float64
	Rate float64
}

// Curve interpolates zero rates linearly between pillars and holds them flat
// outside. Immutable once built.
type Curve struct {
	pillars []Pillar
	zeros   interp.PiecewiseLinear
}

// Flat returns a curve with a single constant zero rate.
func Flat(rate float64) *Curve {
	return &Curve{pillars: []Pillar{{Time: 1, Rate: rate}}}
}

// New builds a curve from pillars. Pillars are sorted by time; duplicate times
// are rejected.
func New(pillars []Pillar) (*Curve, error) {
	if len(pillars) == 0 {
		return nil, fmt.Errorf("%w: no pillars", ErrInvalidPillars)
	}
	ps := append([]Pillar(nil), pillars...)
	sort.Slice(ps, func(i, j int) bool { return ps[i].Time < ps[j].Time })
	for i, p := range ps {
		if !(p.Time > 0) || math.IsInf(p.Time, 0) {
			return nil, fmt.Errorf("%w: pillar time %v", ErrInvalidPillars, p.Time)
		}
		if math.IsNaN(p.Rate) || math.IsInf(p.Rate, 0) {
			return nil, fmt.Errorf("%w: rate %v at t=%v", ErrInvalidPillars, p.Rate, p.Time)
		}
		if i > 0 && p.Time == ps[i-1].Time {
			return nil, fmt.Errorf("%w: duplicate pillar at t=%v", ErrInvalidPillars, p.Time)
		}
	}
	c := &Curve{pillars: ps}
	if len(ps) == 1 {
		return c, nil
	}
	xs := make([]float64, len(ps))
	ys := make([]float64, len(ps))
	for i, p := range ps {
		xs[i], ys[i] = p.Time, p.Rate
	}
	if err := c.zeros.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPillars, err)
	}
	return c, nil
}

// FromDiscountFactors builds a curve from dated discount factors. Times are
// measured from valuation with the given day count; dates on or before the
// valuation date are ignored.
func FromDiscountFactors(valuation time.Time, dfs map[time.Time]float64, dayCount string) (*Curve, error) {
	dates := make([]time.Time, 0, len(dfs))
	for d := range dfs {
		dates = append(dates, d)
	}
	utils.SortDates(dates)

	var pillars []Pillar
	for _, d := range dates {
		t, err := utils.YearFraction(valuation, d, dayCount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPillars, err)
		}
		if t <= 0 {
			continue
		}
		df := dfs[d]
		if !(df > 0) || math.IsInf(df, 0) {
			return nil, fmt.Errorf("%w: discount factor %v on %s", ErrInvalidPillars, df, d.Format(utils.DateLayout))
		}
		pillars = append(pillars, Pillar{Time: t, Rate: -math.Log(df) / t})
	}
	return New(pillars)
}

// ZeroRate returns the continuously compounded zero rate at t.
func (c *Curve) ZeroRate(t float64) float64 {
	ps := c.pillars
	if len(ps) == 1 || t <= ps[0].Time {
		return ps[0].Rate
	}
	if last := ps[len(ps)-1]; t >= last.Time {
		return last.Rate
	}
	return c.zeros.Predict(t)
}

// DiscountFactor returns exp(-z(t) t); 1 for t <= 0.
func (c *Curve) DiscountFactor(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return math.Exp(-c.ZeroRate(t) * t)
}

// Pillars returns a copy of the curve pillars.
func (c *Curve) Pillars() []Pillar {
	return append([]Pillar(nil), c.pillars...)
}

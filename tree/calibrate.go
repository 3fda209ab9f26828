package tree

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/fxtree/analytic"
	"github.com/meenmo/fxtree/config"
)

// VolSurface returns the Black implied volatility for expiry t and strike level.
type VolSurface func(t, level float64) float64

// RateFunc returns a continuously compounded zero rate for time t.
type RateFunc func(t float64) float64

// Calibrator fits an implied trinomial tree to a volatility surface.
//
// Each layer is the forward-grown image of the previous one, widened by the local
// volatility at the edges. Transition probabilities put every parent's forward on
// its middle child and reprice the surface call (upper half) or put (lower half)
// struck at that child. Nodes where this gives an inadmissible triple fall back to
// local moment matching.
type Calibrator struct {
	Steps        int
	TimeToExpiry float64
	Config       config.Config
	Logger       *slog.Logger
}

// NewCalibrator returns a calibrator with the default configuration.
func NewCalibrator(steps int, timeToExpiry float64) Calibrator {
	return Calibrator{Steps: steps, TimeToExpiry: timeToExpiry, Config: config.DefaultConfig}
}

// layerCurve holds the curve quantities of one layer time.
type layerCurve struct {
	logDf  float64 // ln df(t)
	logFwd float64 // ln F(t)/spot
}

// Calibrate builds the tree. Failures of the surface or the rate curves are
// reported as ErrCalibration; nothing is returned on failure.
func (c Calibrator) Calibrate(surface VolSurface, spot float64, interestRate, dividendRate RateFunc) (*Data, error) {
	n, T := c.Steps, c.TimeToExpiry
	if n < minSteps {
		return nil, fmt.Errorf("%w: tree needs at least %d steps, got %d", ErrInvalidArgument, minSteps, n)
	}
	cfg := c.Config
	if cfg == (config.Config{}) {
		cfg = config.DefaultConfig
	}
	// The calibrator's own step count wins over the config's.
	cfg.Steps = n
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if !(T > 0) || math.IsInf(T, 0) {
		return nil, fmt.Errorf("%w: time to expiry must be positive, got %v", ErrInvalidArgument, T)
	}
	if !(spot > 0) || math.IsInf(spot, 0) {
		return nil, fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidArgument, spot)
	}
	if surface == nil || interestRate == nil || dividendRate == nil {
		return nil, fmt.Errorf("%w: nil surface or rate function", ErrInvalidArgument)
	}

	dt := T / float64(n)
	edge := math.Sqrt(2 * dt)

	curves := make([]layerCurve, n+1)
	for k := 1; k <= n; k++ {
		tk := dt * float64(k)
		r, q := interestRate(tk), dividendRate(tk)
		if !finite(r) || !finite(q) {
			return nil, fmt.Errorf("%w: non-finite rate at t=%v (r=%v, q=%v)", ErrCalibration, tk, r, q)
		}
		curves[k] = layerCurve{logDf: -r * tk, logFwd: (r - q) * tk}
	}

	vol := func(t, level float64) (float64, error) {
		v := surface(t, level)
		if !(v > 0) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: volatility %v at t=%v, level=%v", ErrCalibration, v, t, level)
		}
		return v, nil
	}

	states := make([][]float64, n+1)
	states[0] = []float64{spot}
	probs := make([]*mat.Dense, n)
	dfs := make([]float64, n)
	ad := []float64{1}
	fallbacks := 0

	for k := 1; k <= n; k++ {
		tk := dt * float64(k)
		prev := states[k-1]
		m := len(prev)
		growth := math.Exp(curves[k].logFwd - curves[k-1].logFwd)
		stepDf := math.Exp(curves[k].logDf - curves[k-1].logDf)
		forward := spot * math.Exp(curves[k].logFwd)
		df := math.Exp(curves[k].logDf)

		// next[i+1] is both the middle child and the forward of parent i.
		next := make([]float64, m+2)
		for j, s := range prev {
			next[j+1] = s * growth
		}
		volLo, err := vol(tk, next[1])
		if err != nil {
			return nil, err
		}
		volHi, err := vol(tk, next[m])
		if err != nil {
			return nil, err
		}
		next[0] = next[1] * math.Exp(-volLo*edge)
		next[m+1] = next[m] * math.Exp(volHi*edge)
		if !(next[0] < next[1]) || !(next[m] < next[m+1]) || !finite(next[0]) || !finite(next[m+1]) {
			return nil, fmt.Errorf("%w: degenerate edge nodes at layer %d", ErrCalibration, k)
		}

		p := mat.NewDense(m, 3, nil)
		solve := func(i int, up, down float64) error {
			mid := 1 - up - down
			if ad[i] < cfg.MinArrowDebreu || !inUnit(up) || !inUnit(down) || !inUnit(mid) {
				sigma, err := vol(tk, prev[i])
				if err != nil {
					return err
				}
				up, mid, down, err = momentMatch(next, i, sigma, dt)
				if err != nil {
					return fmt.Errorf("%w: layer %d node %d: %v", ErrCalibration, k, i, err)
				}
				fallbacks++
			}
			p.SetRow(i, []float64{down, mid, up})
			return nil
		}

		// Upper half, top down: calls struck at the middle child.
		var adAbove, fwdAbove float64
		for i := m - 1; i >= k-1; i-- {
			strike := next[i+1]
			sigma, err := vol(tk, strike)
			if err != nil {
				return nil, err
			}
			call := df * analytic.BlackPrice(forward, strike, tk, sigma, true)
			d, e := next[i+1]-next[i], next[i+2]-next[i+1]
			up := (call/stepDf - (fwdAbove - adAbove*strike)) / (ad[i] * e)
			if err := solve(i, up, up*e/d); err != nil {
				return nil, err
			}
			adAbove += ad[i]
			fwdAbove += ad[i] * next[i+1]
		}

		// Lower half, bottom up: puts struck at the middle child.
		var adBelow, fwdBelow float64
		for i := 0; i < k-1; i++ {
			strike := next[i+1]
			sigma, err := vol(tk, strike)
			if err != nil {
				return nil, err
			}
			put := df * analytic.BlackPrice(forward, strike, tk, sigma, false)
			d, e := next[i+1]-next[i], next[i+2]-next[i+1]
			down := (put/stepDf - (adBelow*strike - fwdBelow)) / (ad[i] * d)
			if err := solve(i, down*d/e, down); err != nil {
				return nil, err
			}
			adBelow += ad[i]
			fwdBelow += ad[i] * next[i+1]
		}

		nextAD := make([]float64, m+2)
		for i, lambda := range ad {
			w := stepDf * lambda
			nextAD[i] += w * p.At(i, 0)
			nextAD[i+1] += w * p.At(i, 1)
			nextAD[i+2] += w * p.At(i, 2)
		}

		states[k] = next
		probs[k-1] = p
		dfs[k-1] = stepDf
		ad = nextAD
	}

	data, err := newData(T, states, probs, dfs, cfg.ProbabilityTolerance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalibration, err)
	}
	data.fallbackNodes = fallbacks
	if c.Logger != nil {
		c.Logger.Debug("implied tree calibrated",
			"steps", n,
			"expiry", T,
			"fallback_nodes", fallbacks,
		)
	}
	return data, nil
}

// momentMatch gives parent i the probabilities whose mean is its forward next[i+1]
// and whose variance is sigma^2 F^2 dt, capped at what the node spacing can carry.
// sigma is the local volatility at the parent's level.
func momentMatch(next []float64, i int, sigma, dt float64) (up, mid, down float64, err error) {
	f := next[i+1]
	d, e := next[i+1]-next[i], next[i+2]-next[i+1]
	v := math.Min(sigma*sigma*f*f*dt, d*e)
	up = v / (e * (d + e))
	down = v / (d * (d + e))
	// At the variance cap up+down is 1 up to rounding.
	mid = math.Max(1-up-down, 0)
	if !inUnit(up) || !inUnit(down) || !finite(mid) {
		return 0, 0, 0, fmt.Errorf("moment matching gives up=%v down=%v", up, down)
	}
	return up, mid, down, nil
}

func inUnit(x float64) bool { return x >= 0 && x <= 1 }

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

package tree

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/fxtree/config"
)

// minSteps is the smallest tree that can bracket a barrier.
const minSteps = 3

// Data is a recombining trinomial tree. It is immutable once built and may be
// shared between goroutines.
type Data struct {
	steps        int
	timeToExpiry float64
	states       [][]float64  // layer 0..n, 2k+1 ascending levels
	probs        []*mat.Dense // probs[k-1]: layer k-1 -> k, (2k-1) x 3, columns down, middle, up
	dfs          []float64    // dfs[k-1]: discount factor from layer k back to k-1

	fallbackNodes int
}

// NewData validates and copies a tree description.
//
// states holds n+1 layers. probs and discountFactors hold n entries where entry
// k-1 belongs to layer k: the transition matrix from layer k-1 into layer k and
// the discount factor applied when stepping from layer k back to layer k-1.
func NewData(timeToExpiry float64, states [][]float64, probs []*mat.Dense, discountFactors []float64) (*Data, error) {
	cs := make([][]float64, len(states))
	for i, s := range states {
		cs[i] = append([]float64(nil), s...)
	}
	cp := make([]*mat.Dense, len(probs))
	for i, p := range probs {
		if p == nil {
			return nil, fmt.Errorf("%w: nil transition matrix for layer %d", ErrInvalidArgument, i+1)
		}
		cp[i] = mat.DenseCopyOf(p)
	}
	return newData(timeToExpiry, cs, cp, append([]float64(nil), discountFactors...),
		config.DefaultConfig.ProbabilityTolerance)
}

// newData takes ownership of its slices.
func newData(timeToExpiry float64, states [][]float64, probs []*mat.Dense, dfs []float64, tol float64) (*Data, error) {
	n := len(states) - 1
	if n < minSteps {
		return nil, fmt.Errorf("%w: tree needs at least %d steps, got %d", ErrInvalidArgument, minSteps, n)
	}
	if !(timeToExpiry > 0) || math.IsInf(timeToExpiry, 0) {
		return nil, fmt.Errorf("%w: time to expiry must be positive, got %v", ErrInvalidArgument, timeToExpiry)
	}
	if len(probs) != n || len(dfs) != n {
		return nil, fmt.Errorf("%w: %d layers need %d transition matrices and discount factors, got %d and %d",
			ErrInvalidArgument, n+1, n, len(probs), len(dfs))
	}
	for k, s := range states {
		if err := checkLayer(k, s); err != nil {
			return nil, err
		}
	}
	for k := 1; k <= n; k++ {
		if err := checkTransitions(k, probs[k-1], tol); err != nil {
			return nil, err
		}
		df := dfs[k-1]
		if !(df > 0) || math.IsInf(df, 0) {
			return nil, fmt.Errorf("%w: discount factor of layer %d is %v", ErrInvalidArgument, k, df)
		}
	}
	return &Data{
		steps:        n,
		timeToExpiry: timeToExpiry,
		states:       states,
		probs:        probs,
		dfs:          dfs,
	}, nil
}

func checkLayer(k int, s []float64) error {
	if len(s) != 2*k+1 {
		return fmt.Errorf("%w: layer %d has %d nodes, want %d", ErrInvalidArgument, k, len(s), 2*k+1)
	}
	for j, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: layer %d node %d is %v", ErrInvalidArgument, k, j, v)
		}
		if j > 0 && !(v > s[j-1]) {
			return fmt.Errorf("%w: layer %d is not strictly increasing at node %d", ErrInvalidArgument, k, j)
		}
	}
	return nil
}

func checkTransitions(k int, p *mat.Dense, tol float64) error {
	r, c := p.Dims()
	if r != 2*k-1 || c != 3 {
		return fmt.Errorf("%w: transition matrix of layer %d is %dx%d, want %dx3", ErrInvalidArgument, k, r, c, 2*k-1)
	}
	for i := 0; i < r; i++ {
		row := p.RawRowView(i)
		for _, v := range row {
			if !(v >= 0 && v <= 1) {
				return fmt.Errorf("%w: layer %d row %d has probability %v", ErrInvalidArgument, k, i, v)
			}
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > tol {
			return fmt.Errorf("%w: layer %d row %d sums to %.17g", ErrInvalidArgument, k, i, sum)
		}
	}
	return nil
}

// Steps is the number of time steps n; the tree has n+1 layers.
func (d *Data) Steps() int { return d.steps }

// TimeToExpiry is the horizon of the last layer in years.
func (d *Data) TimeToExpiry() float64 { return d.timeToExpiry }

// Dt is the length of one time step.
func (d *Data) Dt() float64 { return d.timeToExpiry / float64(d.steps) }

// StateValues returns a copy of the node levels of a layer.
func (d *Data) StateValues(layer int) []float64 {
	return append([]float64(nil), d.states[layer]...)
}

// Span returns the lowest and highest node level of a layer.
func (d *Data) Span(layer int) (lo, hi float64) {
	s := d.states[layer]
	return s[0], s[len(s)-1]
}

// TransitionProbabilities returns a copy of the (2*layer-1) x 3 matrix of
// (down, middle, up) probabilities into layer, for layer in 1..n.
func (d *Data) TransitionProbabilities(layer int) mat.Matrix {
	return mat.DenseCopyOf(d.probs[layer-1])
}

// DiscountFactor is the one-period discount factor from layer back to layer-1,
// for layer in 1..n.
func (d *Data) DiscountFactor(layer int) float64 {
	return d.dfs[layer-1]
}

// FallbackNodes counts the calibrated nodes whose probabilities came from the
// moment-matching fallback rather than from option prices.
func (d *Data) FallbackNodes() int { return d.fallbackNodes }

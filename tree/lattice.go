package tree

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// TrinomialParams describes one step of a uniform trinomial lattice.
type TrinomialParams struct {
	UpFactor     float64
	MiddleFactor float64
	DownFactor   float64

	UpProbability     float64
	MiddleProbability float64
	DownProbability   float64
}

// LatticeSpec computes the step parameters of a uniform lattice from the
// volatility, the drift rate and the time step.
type LatticeSpec func(vol, rate, dt float64) (TrinomialParams, error)

// CoxRossRubinstein is the trinomial lattice obtained by merging two binomial
// Cox-Ross-Rubinstein steps of length dt/2.
func CoxRossRubinstein(vol, rate, dt float64) (TrinomialParams, error) {
	if err := checkLatticeInputs(vol, rate, dt); err != nil {
		return TrinomialParams{}, err
	}
	dx := vol * math.Sqrt(2*dt)
	upHalf := math.Exp(0.5 * dx)
	downHalf := 1 / upHalf
	growthHalf := math.Exp(0.5 * rate * dt)
	width := upHalf - downHalf

	pu := math.Pow((growthHalf-downHalf)/width, 2)
	pd := math.Pow((upHalf-growthHalf)/width, 2)
	p := TrinomialParams{
		UpFactor:          math.Exp(dx),
		MiddleFactor:      1,
		DownFactor:        math.Exp(-dx),
		UpProbability:     pu,
		MiddleProbability: 1 - pu - pd,
		DownProbability:   pd,
	}
	return p, p.validate()
}

// Trigeorgis is the log-space trinomial lattice with step vol*sqrt(3dt) matching
// the first two moments of the log return.
func Trigeorgis(vol, rate, dt float64) (TrinomialParams, error) {
	if err := checkLatticeInputs(vol, rate, dt); err != nil {
		return TrinomialParams{}, err
	}
	nu := rate - 0.5*vol*vol
	dx := vol * math.Sqrt(3*dt)
	part := (vol*vol*dt + nu*nu*dt*dt) / (dx * dx)
	drift := nu * dt / dx
	p := TrinomialParams{
		UpFactor:          math.Exp(dx),
		MiddleFactor:      1,
		DownFactor:        math.Exp(-dx),
		UpProbability:     0.5 * (part + drift),
		MiddleProbability: 1 - part,
		DownProbability:   0.5 * (part - drift),
	}
	return p, p.validate()
}

func checkLatticeInputs(vol, rate, dt float64) error {
	if !(vol > 0) || math.IsInf(vol, 0) {
		return fmt.Errorf("%w: volatility must be positive, got %v", ErrInvalidArgument, vol)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidArgument, rate)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: time step must be positive, got %v", ErrInvalidArgument, dt)
	}
	return nil
}

func (p TrinomialParams) validate() error {
	for _, v := range []float64{p.UpProbability, p.MiddleProbability, p.DownProbability} {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("%w: lattice probability %v outside [0,1]", ErrInvalidArgument, v)
		}
	}
	if !(p.DownFactor > 0 && p.DownFactor < p.MiddleFactor && p.MiddleFactor < p.UpFactor) {
		return fmt.Errorf("%w: lattice factors must satisfy 0 < down < middle < up", ErrInvalidArgument)
	}
	if math.Abs(p.UpFactor*p.DownFactor-p.MiddleFactor*p.MiddleFactor) > 1e-12 {
		return fmt.Errorf("%w: lattice does not recombine", ErrInvalidArgument)
	}
	return nil
}

// NewUniformData builds a tree with constant factors and probabilities.
// Node j of layer k sits at spot * middle^k * (up/middle)^(j-k); the lattice drift
// is interestRate - dividendRate and every step discounts at exp(-interestRate*dt).
func NewUniformData(spec LatticeSpec, spot, vol, interestRate, dividendRate, timeToExpiry float64, steps int) (*Data, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil lattice spec", ErrInvalidArgument)
	}
	if steps < minSteps {
		return nil, fmt.Errorf("%w: tree needs at least %d steps, got %d", ErrInvalidArgument, minSteps, steps)
	}
	if !(spot > 0) || math.IsInf(spot, 0) {
		return nil, fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidArgument, spot)
	}
	if !(timeToExpiry > 0) || math.IsInf(timeToExpiry, 0) {
		return nil, fmt.Errorf("%w: time to expiry must be positive, got %v", ErrInvalidArgument, timeToExpiry)
	}
	if math.IsNaN(interestRate) || math.IsInf(interestRate, 0) {
		return nil, fmt.Errorf("%w: interest rate must be finite, got %v", ErrInvalidArgument, interestRate)
	}
	dt := timeToExpiry / float64(steps)
	p, err := spec(vol, interestRate-dividendRate, dt)
	if err != nil {
		return nil, err
	}
	step := p.UpFactor / p.MiddleFactor
	df := math.Exp(-interestRate * dt)

	states := make([][]float64, steps+1)
	probs := make([]*mat.Dense, steps)
	dfs := make([]float64, steps)
	for k := 0; k <= steps; k++ {
		layer := make([]float64, 2*k+1)
		base := spot * math.Pow(p.MiddleFactor, float64(k))
		for j := range layer {
			layer[j] = base * math.Pow(step, float64(j-k))
		}
		states[k] = layer
		if k == 0 {
			continue
		}
		m := mat.NewDense(2*k-1, 3, nil)
		for i := 0; i < 2*k-1; i++ {
			m.SetRow(i, []float64{p.DownProbability, p.MiddleProbability, p.UpProbability})
		}
		probs[k-1] = m
		dfs[k-1] = df
	}
	return newData(timeToExpiry, states, probs, dfs, latticeTolerance)
}

// latticeTolerance bounds the row-sum error of analytic lattice probabilities,
// where pm = 1 - pu - pd is formed in floating point.
const latticeTolerance = 1e-12

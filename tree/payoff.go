package tree

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/fxtree/utils"
)

// PayoffKind selects how a Payoff values nodes.
type PayoffKind int

const (
	Vanilla PayoffKind = iota
	KnockOut
)

func (k PayoffKind) String() string {
	switch k {
	case Vanilla:
		return "vanilla"
	case KnockOut:
		return "knock-out"
	default:
		return fmt.Sprintf("PayoffKind(%d)", int(k))
	}
}

// PutCall is +1 for a call and -1 for a put.
type PutCall int

const (
	Call PutCall = 1
	Put  PutCall = -1
)

// Sign returns the payoff sign as a float.
func (pc PutCall) Sign() float64 { return float64(pc) }

// BarrierType is the direction from which the barrier is approached.
type BarrierType int

const (
	Down BarrierType = iota
	Up
)

func (b BarrierType) String() string {
	if b == Up {
		return "up"
	}
	return "down"
}

// Payoff is a European payoff valued on a tree. Build it with NewVanillaPayoff or
// NewKnockOutPayoff; the barrier fields are only read for KnockOut.
type Payoff struct {
	Kind         PayoffKind
	Strike       float64
	TimeToExpiry float64
	PutCall      PutCall

	BarrierType  BarrierType
	BarrierLevel float64
	// Rebates[i] is paid at layer i when the barrier is breached.
	Rebates []float64
}

// NewVanillaPayoff returns a European call or put.
func NewVanillaPayoff(strike, timeToExpiry float64, pc PutCall) (Payoff, error) {
	if err := checkPayoff(strike, timeToExpiry, pc); err != nil {
		return Payoff{}, err
	}
	return Payoff{Kind: Vanilla, Strike: strike, TimeToExpiry: timeToExpiry, PutCall: pc}, nil
}

// NewKnockOutPayoff returns a single-barrier knock-out call or put paying
// rebates[i] when the barrier is breached at layer i. The rebate slice is copied.
func NewKnockOutPayoff(strike, timeToExpiry float64, pc PutCall, bt BarrierType, level float64, rebates []float64) (Payoff, error) {
	if err := checkPayoff(strike, timeToExpiry, pc); err != nil {
		return Payoff{}, err
	}
	if bt != Up && bt != Down {
		return Payoff{}, fmt.Errorf("%w: unknown barrier type %d", ErrInvalidArgument, int(bt))
	}
	if !(level > 0) || math.IsInf(level, 0) {
		return Payoff{}, fmt.Errorf("%w: barrier level must be positive, got %v", ErrInvalidArgument, level)
	}
	if len(rebates) == 0 {
		return Payoff{}, fmt.Errorf("%w: empty rebate vector", ErrInvalidArgument)
	}
	for i, r := range rebates {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Payoff{}, fmt.Errorf("%w: rebate %d is %v", ErrInvalidArgument, i, r)
		}
	}
	return Payoff{
		Kind:         KnockOut,
		Strike:       strike,
		TimeToExpiry: timeToExpiry,
		PutCall:      pc,
		BarrierType:  bt,
		BarrierLevel: level,
		Rebates:      append([]float64(nil), rebates...),
	}, nil
}

// ConstantRebates returns a rebate vector of n+1 equal amounts.
func ConstantRebates(amount float64, steps int) []float64 {
	r := make([]float64, steps+1)
	for i := range r {
		r[i] = amount
	}
	return r
}

func checkPayoff(strike, timeToExpiry float64, pc PutCall) error {
	if !(strike >= 0) || math.IsInf(strike, 0) {
		return fmt.Errorf("%w: strike must be non-negative, got %v", ErrInvalidArgument, strike)
	}
	if !(timeToExpiry > 0) || math.IsInf(timeToExpiry, 0) {
		return fmt.Errorf("%w: time to expiry must be positive, got %v", ErrInvalidArgument, timeToExpiry)
	}
	if pc != Call && pc != Put {
		return fmt.Errorf("%w: put/call sign must be +1 or -1, got %d", ErrInvalidArgument, int(pc))
	}
	return nil
}

func (p Payoff) intrinsic(s float64) float64 {
	return math.Max(p.PutCall.Sign()*(s-p.Strike), 0)
}

func (p Payoff) breached(s float64) bool {
	if p.BarrierType == Up {
		return s >= p.BarrierLevel
	}
	return s <= p.BarrierLevel
}

// Layer holds the option values on one tree layer. Raw carries the knock-out
// values with the barrier moved out to the first breached node of every layer;
// the boundary correction blends it with the rebate at the surviving node next
// to the barrier. Raw is nil for vanilla payoffs.
type Layer struct {
	Values []float64
	Raw    []float64
}

// PayoffAtExpiry returns the option value at every node of the expiry layer.
// A knock-out barrier must lie strictly inside the layer's span.
func (p Payoff) PayoffAtExpiry(states []float64) ([]float64, error) {
	l, err := p.ExpiryLayer(states)
	if err != nil {
		return nil, err
	}
	return l.Values, nil
}

// ExpiryLayer is PayoffAtExpiry together with the raw knock-out values that
// backward induction starts from.
func (p Payoff) ExpiryLayer(states []float64) (Layer, error) {
	switch p.Kind {
	case Vanilla:
		values := make([]float64, len(states))
		for i, s := range states {
			values[i] = p.intrinsic(s)
		}
		return Layer{Values: values}, nil
	case KnockOut:
		if len(states) < 3 || len(states)%2 == 0 {
			return Layer{}, fmt.Errorf("%w: expiry layer has %d nodes", ErrInvalidArgument, len(states))
		}
		n := (len(states) - 1) / 2
		if len(p.Rebates) < n+1 {
			return Layer{}, fmt.Errorf("%w: %d rebates for a %d-step tree", ErrInvalidArgument, len(p.Rebates), n)
		}
		if !(states[0] < p.BarrierLevel && p.BarrierLevel < states[len(states)-1]) {
			return Layer{}, fmt.Errorf("%w: barrier not covered by tree: %v outside (%v, %v)",
				ErrInvalidArgument, p.BarrierLevel, states[0], states[len(states)-1])
		}
		rebate := p.Rebates[n]
		raw := make([]float64, len(states))
		for i, s := range states {
			if p.breached(s) {
				raw[i] = rebate
			} else {
				raw[i] = p.intrinsic(s)
			}
		}
		values := append([]float64(nil), raw...)
		p.correctBoundary(states, values, raw, rebate)
		return Layer{Values: values, Raw: raw}, nil
	default:
		return Layer{}, fmt.Errorf("%w: unknown payoff kind %v", ErrInvalidArgument, p.Kind)
	}
}

// NextLayerValues rolls child, the values of layer+1, back to layer. probs is the
// transition matrix into layer+1 and df the matching one-period discount factor.
func (p Payoff) NextLayerValues(df float64, probs mat.Matrix, states []float64, child Layer, layer int) (Layer, error) {
	rows, cols := probs.Dims()
	if rows != len(states) || cols != 3 || len(child.Values) != len(states)+2 {
		return Layer{}, fmt.Errorf("%w: layer %d has %d nodes, %dx%d probabilities and %d child values",
			ErrInvalidArgument, layer, len(states), rows, cols, len(child.Values))
	}
	values := rollBack(df, probs, child.Values)
	if p.Kind != KnockOut {
		return Layer{Values: values}, nil
	}
	if len(child.Raw) != len(child.Values) {
		return Layer{}, fmt.Errorf("%w: layer %d: %d raw child values, want %d",
			ErrInvalidArgument, layer, len(child.Raw), len(child.Values))
	}
	if layer < 0 || layer >= len(p.Rebates) {
		return Layer{}, fmt.Errorf("%w: no rebate for layer %d", ErrInvalidArgument, layer)
	}
	raw := rollBack(df, probs, child.Raw)
	rebate := p.Rebates[layer]
	for j, s := range states {
		if p.breached(s) {
			values[j] = rebate
			raw[j] = rebate
		}
	}
	p.correctBoundary(states, values, raw, rebate)
	return Layer{Values: values, Raw: raw}, nil
}

func rollBack(df float64, probs mat.Matrix, child []float64) []float64 {
	parent := make([]float64, len(child)-2)
	for j := range parent {
		parent[j] = df * (probs.At(j, 0)*child[j] + probs.At(j, 1)*child[j+1] + probs.At(j, 2)*child[j+2])
	}
	return parent
}

// correctBoundary sets the surviving node next to the barrier to a blend of the
// rebate and its raw value, the rebate weight growing as the barrier nears the
// node. A path revisiting the node is blended once, not at every visit. Layers
// that do not bracket the barrier are left alone; a node exactly on the barrier
// already holds the rebate.
func (p Payoff) correctBoundary(states, values, raw []float64, rebate float64) {
	l := utils.LowerBoundIndex(states, p.BarrierLevel)
	if l < 0 || l >= len(states)-1 || states[l] == p.BarrierLevel {
		return
	}
	alive, knocked := l, l+1
	if p.BarrierType == Down {
		alive, knocked = l+1, l
	}
	gap := states[l+1] - states[l]
	w := math.Abs(states[knocked]-p.BarrierLevel) / gap
	values[alive] = w*rebate + (1-w)*raw[alive]
}

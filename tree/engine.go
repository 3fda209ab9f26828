package tree

import "fmt"

// Price values a payoff on a tree by backward induction and returns the value at
// the root. Data is only read, so one dataset may price many payoffs concurrently.
func Price(p Payoff, data *Data) (float64, error) {
	if data == nil {
		return 0, fmt.Errorf("%w: nil tree data", ErrInvalidArgument)
	}
	n := data.steps
	if p.Kind == KnockOut && len(p.Rebates) < n+1 {
		return 0, fmt.Errorf("%w: %d rebates for a %d-step tree", ErrInvalidArgument, len(p.Rebates), n)
	}
	cur, err := p.ExpiryLayer(data.states[n])
	if err != nil {
		return 0, err
	}
	for layer := n - 1; layer >= 0; layer-- {
		cur, err = p.NextLayerValues(data.dfs[layer], data.probs[layer], data.states[layer], cur, layer)
		if err != nil {
			return 0, err
		}
	}
	return cur.Values[0], nil
}

// PriceUniform builds a uniform lattice from spec and prices the payoff on it,
// using the payoff's time to expiry as the horizon.
func PriceUniform(spec LatticeSpec, p Payoff, spot, vol, interestRate, dividendRate float64, steps int) (float64, error) {
	data, err := NewUniformData(spec, spot, vol, interestRate, dividendRate, p.TimeToExpiry, steps)
	if err != nil {
		return 0, err
	}
	return Price(p, data)
}

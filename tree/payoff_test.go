package tree_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/fxtree/tree"
)

// uniformCRR returns a 50-step CRR tree on a unit spot and its up factor.
func uniformCRR(t *testing.T) (*tree.Data, float64) {
	t.Helper()
	const (
		n   = 50
		vol = 0.2
		T   = 1.0
	)
	data, err := tree.NewUniformData(tree.CoxRossRubinstein, 1.0, vol, 0.02, 0.01, T, n)
	require.NoError(t, err)
	p, err := tree.CoxRossRubinstein(vol, 0.02-0.01, T/float64(n))
	require.NoError(t, err)
	return data, p.UpFactor / p.MiddleFactor
}

func TestPayoff_VanillaExpiry(t *testing.T) {
	t.Parallel()

	states := []float64{0.8, 0.9, 1.0, 1.1, 1.2}
	call, err := tree.NewVanillaPayoff(1.0, 1, tree.Call)
	require.NoError(t, err)
	put, err := tree.NewVanillaPayoff(1.0, 1, tree.Put)
	require.NoError(t, err)

	got, err := call.PayoffAtExpiry(states)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0.1, 0.2}, got, 1e-15)

	got, err = put.PayoffAtExpiry(states)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.2, 0.1, 0, 0, 0}, got, 1e-15)
}

func TestPayoff_ExactNodeBarrier(t *testing.T) {
	t.Parallel()

	data, step := uniformCRR(t)
	n := data.Steps()
	states := data.StateValues(n)
	const rebate = 0.3

	upLevel := math.Pow(step, 5)
	require.Equal(t, upLevel, states[n+5])
	up, err := tree.NewKnockOutPayoff(1.0, 1, tree.Call, tree.Up, upLevel, tree.ConstantRebates(rebate, n))
	require.NoError(t, err)
	v, err := up.PayoffAtExpiry(states)
	require.NoError(t, err)
	assert.Equal(t, rebate, v[n+5])
	assert.Equal(t, states[n+4]-1.0, v[n+4], "node below the barrier must not be blended")
	for j := n + 5; j < len(states); j++ {
		assert.Equal(t, rebate, v[j])
	}

	downLevel := math.Pow(step, -5)
	require.Equal(t, downLevel, states[n-5])
	down, err := tree.NewKnockOutPayoff(0.5, 1, tree.Call, tree.Down, downLevel, tree.ConstantRebates(rebate, n))
	require.NoError(t, err)
	v, err = down.PayoffAtExpiry(states)
	require.NoError(t, err)
	assert.Equal(t, rebate, v[n-5])
	assert.Equal(t, states[n-4]-0.5, v[n-4])
}

func TestPayoff_BoundaryBlend(t *testing.T) {
	t.Parallel()

	states := []float64{0.8, 0.9, 1.0, 1.1, 1.2}
	const rebate = 0.05

	cases := []struct {
		name  string
		bt    tree.BarrierType
		level float64
		want  []float64
	}{
		// Up at 1.075: node 1.0 survives; rebate weight (1.1-1.075)/0.1 = 0.25.
		{"up quarter", tree.Up, 1.075, []float64{0, 0, 0.25 * rebate, rebate, rebate}},
		// Up at 1.025: the barrier hugs node 1.0, rebate weight 0.75.
		{"up three quarters", tree.Up, 1.025, []float64{0, 0, 0.75 * rebate, rebate, rebate}},
		// Down at 0.925: node 1.0 survives; rebate weight (0.925-0.9)/0.1 = 0.25.
		{"down quarter", tree.Down, 0.925, []float64{rebate, rebate, 0.25 * rebate, 0.1, 0.2}},
		// Down at 0.975: the barrier hugs node 1.0, rebate weight 0.75.
		{"down three quarters", tree.Down, 0.975, []float64{rebate, rebate, 0.75 * rebate, 0.1, 0.2}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := tree.NewKnockOutPayoff(1.0, 1, tree.Call, tc.bt, tc.level, tree.ConstantRebates(rebate, 2))
			require.NoError(t, err)
			got, err := p.PayoffAtExpiry(states)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tc.want, got, 1e-12)
		})
	}
}

func TestPayoff_BarrierNotCovered(t *testing.T) {
	t.Parallel()

	data, _ := uniformCRR(t)
	n := data.Steps()
	lo, hi := data.Span(n)

	for _, tc := range []struct {
		name  string
		bt    tree.BarrierType
		level float64
	}{
		{"up above span", tree.Up, hi * 1.01},
		{"up on top node", tree.Up, hi},
		{"down below span", tree.Down, lo * 0.99},
		{"down on bottom node", tree.Down, lo},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := tree.NewKnockOutPayoff(1.0, 1, tree.Call, tc.bt, tc.level, tree.ConstantRebates(0, n))
			require.NoError(t, err)
			_, err = tree.Price(p, data)
			require.ErrorIs(t, err, tree.ErrInvalidArgument)
			assert.Contains(t, err.Error(), "barrier not covered by tree")
		})
	}
}

func TestPayoff_ShortRebateVector(t *testing.T) {
	t.Parallel()

	data, _ := uniformCRR(t)
	p, err := tree.NewKnockOutPayoff(1.0, 1, tree.Call, tree.Up, 1.3, tree.ConstantRebates(0, data.Steps()-1))
	require.NoError(t, err)
	_, err = tree.Price(p, data)
	require.ErrorIs(t, err, tree.ErrInvalidArgument)
}

func TestPayoff_FactoryValidation(t *testing.T) {
	t.Parallel()

	_, err := tree.NewVanillaPayoff(-1, 1, tree.Call)
	assert.ErrorIs(t, err, tree.ErrInvalidArgument)
	_, err = tree.NewVanillaPayoff(1, 0, tree.Call)
	assert.ErrorIs(t, err, tree.ErrInvalidArgument)
	_, err = tree.NewVanillaPayoff(1, 1, tree.PutCall(0))
	assert.ErrorIs(t, err, tree.ErrInvalidArgument)
	_, err = tree.NewKnockOutPayoff(1, 1, tree.Call, tree.Up, 0, []float64{0})
	assert.ErrorIs(t, err, tree.ErrInvalidArgument)
	_, err = tree.NewKnockOutPayoff(1, 1, tree.Call, tree.Up, 1.2, nil)
	assert.ErrorIs(t, err, tree.ErrInvalidArgument)
	_, err = tree.NewKnockOutPayoff(1, 1, tree.Call, tree.BarrierType(7), 1.2, []float64{0})
	assert.ErrorIs(t, err, tree.ErrInvalidArgument)
}

func TestPayoff_RebatesAreCopied(t *testing.T) {
	t.Parallel()

	r := []float64{1, 1, 1}
	p, err := tree.NewKnockOutPayoff(1, 1, tree.Call, tree.Up, 1.2, r)
	require.NoError(t, err)
	r[0] = 99
	assert.Equal(t, 1.0, p.Rebates[0])
}

func TestPayoff_NextLayerBlendsRawContinuation(t *testing.T) {
	t.Parallel()

	const rebate = 0.05
	states := []float64{0.9, 1.0, 1.1}
	probs := mat.NewDense(3, 3, []float64{
		0.25, 0.5, 0.25,
		0.25, 0.5, 0.25,
		0.25, 0.5, 0.25,
	})
	child := tree.Layer{
		Values: []float64{0, 0.1, 0.2, 0.3, 0.4},
		Raw:    []float64{0, 0.1, 0.2, 0.7, 0.4},
	}
	// Up at 1.075: node 1.0 survives with rebate weight 0.25 against its raw
	// continuation 0.25*0.1 + 0.5*0.2 + 0.25*0.7 = 0.3.
	p, err := tree.NewKnockOutPayoff(1.0, 1, tree.Call, tree.Up, 1.075, tree.ConstantRebates(rebate, 2))
	require.NoError(t, err)
	got, err := p.NextLayerValues(1, probs, states, child, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, 0.25*rebate + 0.75*0.3, rebate}, got.Values, 1e-14)
	assert.InDeltaSlice(t, []float64{0.1, 0.3, rebate}, got.Raw, 1e-14)

	vanilla, err := tree.NewVanillaPayoff(1.0, 1, tree.Call)
	require.NoError(t, err)
	got, err = vanilla.NextLayerValues(0.5, probs, states, tree.Layer{Values: child.Values}, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.05, 0.1, 0.15}, got.Values, 1e-14)
	assert.Nil(t, got.Raw)
}

func TestPayoff_NextLayerSizeMismatch(t *testing.T) {
	t.Parallel()

	states := []float64{0.9, 1.0, 1.1}
	probs := mat.NewDense(3, 3, nil)
	ko, err := tree.NewKnockOutPayoff(1.0, 1, tree.Call, tree.Up, 1.075, tree.ConstantRebates(0, 2))
	require.NoError(t, err)

	cases := map[string]struct {
		probs mat.Matrix
		child tree.Layer
		layer int
	}{
		"short child":      {probs, tree.Layer{Values: make([]float64, 4), Raw: make([]float64, 4)}, 1},
		"probability rows": {mat.NewDense(2, 3, nil), tree.Layer{Values: make([]float64, 5), Raw: make([]float64, 5)}, 1},
		"missing raw":      {probs, tree.Layer{Values: make([]float64, 5)}, 1},
		"no rebate":        {probs, tree.Layer{Values: make([]float64, 5), Raw: make([]float64, 5)}, 3},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ko.NextLayerValues(1, tc.probs, states, tc.child, tc.layer)
			assert.ErrorIs(t, err, tree.ErrInvalidArgument)
		})
	}
}

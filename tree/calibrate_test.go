package tree_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fxtree/analytic"
	"github.com/meenmo/fxtree/config"
	"github.com/meenmo/fxtree/internal/logging"
	"github.com/meenmo/fxtree/tree"
)

// EUR/USD-like flat market.
const (
	spot    = 1.4
	flatVol = 0.18
	usdRate = 0.011 // counter, interest rate
	eurRate = 0.015 // base, dividend rate
	expiry  = 1.0
)

func flat(v float64) tree.VolSurface { return func(float64, float64) float64 { return v } }

func constRate(r float64) tree.RateFunc { return func(float64) float64 { return r } }

func smile(t, k float64) float64 {
	x := math.Log(k / spot)
	return flatVol - 0.05*x + 0.4*x*x
}

func calibrate(t *testing.T, steps int, surface tree.VolSurface) *tree.Data {
	t.Helper()
	c := tree.NewCalibrator(steps, expiry)
	c.Logger = logging.NewNop()
	data, err := c.Calibrate(surface, spot, constRate(usdRate), constRate(eurRate))
	require.NoError(t, err)
	return data
}

func assertValidTree(t *testing.T, data *tree.Data) {
	t.Helper()
	for k := 0; k <= data.Steps(); k++ {
		s := data.StateValues(k)
		require.Len(t, s, 2*k+1)
		for j := 1; j < len(s); j++ {
			require.Greaterf(t, s[j], s[j-1], "layer %d node %d", k, j)
		}
		if k == 0 {
			continue
		}
		p := data.TransitionProbabilities(k)
		r, c := p.Dims()
		require.Equal(t, 2*k-1, r)
		require.Equal(t, 3, c)
		for i := 0; i < r; i++ {
			sum := 0.0
			for col := 0; col < 3; col++ {
				v := p.At(i, col)
				require.Truef(t, v >= 0 && v <= 1, "layer %d row %d col %d = %v", k, i, col, v)
				sum += v
			}
			require.InDeltaf(t, 1.0, sum, 1e-12, "layer %d row %d", k, i)
		}
		df := data.DiscountFactor(k)
		require.Greater(t, df, 0.0)
	}
}

func TestCalibrate_TreeInvariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		surface tree.VolSurface
		steps   int
	}{
		{"flat 3 steps", flat(flatVol), 3},
		{"flat 51 steps", flat(flatVol), 51},
		{"smile 51 steps", smile, 51},
		{"high vol", flat(0.6), 31},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			data := calibrate(t, tc.steps, tc.surface)
			assert.Equal(t, tc.steps, data.Steps())
			assert.InDelta(t, expiry/float64(tc.steps), data.Dt(), 1e-15)
			assertValidTree(t, data)
		})
	}
}

func TestCalibrate_DiscountFactorsFollowInterestRate(t *testing.T) {
	t.Parallel()

	data := calibrate(t, 20, flat(flatVol))
	prod := 1.0
	for k := 1; k <= data.Steps(); k++ {
		prod *= data.DiscountFactor(k)
	}
	assert.InDelta(t, math.Exp(-usdRate*expiry), prod, 1e-14)
}

func TestCalibrate_FallbackInTails(t *testing.T) {
	t.Parallel()

	// Edge nodes drift ~sqrt(2n) standard deviations out; their Arrow-Debreu
	// prices underflow the solve threshold.
	data := calibrate(t, 51, flat(flatVol))
	assert.Greater(t, data.FallbackNodes(), 0)
}

func TestCalibrate_VanillaMatchesBlack(t *testing.T) {
	t.Parallel()

	data := calibrate(t, 151, flat(flatVol))
	for _, strike := range []float64{1.35, 1.45} {
		for _, pc := range []tree.PutCall{tree.Call, tree.Put} {
			p, err := tree.NewVanillaPayoff(strike, expiry, pc)
			require.NoError(t, err)
			got, err := tree.Price(p, data)
			require.NoError(t, err)
			want := analytic.BlackScholes(spot, strike, expiry, usdRate, eurRate, flatVol, pc == tree.Call)
			assert.InDeltaf(t, want, got, 5e-4, "strike %v sign %d", strike, pc)
		}
	}
}

func TestCalibrate_SmileVanillaMatchesSurface(t *testing.T) {
	t.Parallel()

	// The tree reprices surface calls struck near its nodes.
	data := calibrate(t, 101, smile)
	strike := 1.45
	p, err := tree.NewVanillaPayoff(strike, expiry, tree.Call)
	require.NoError(t, err)
	got, err := tree.Price(p, data)
	require.NoError(t, err)
	want := analytic.BlackScholes(spot, strike, expiry, usdRate, eurRate, smile(expiry, strike), true)
	assert.InDelta(t, want, got, 1e-3)
}

func TestCalibrate_Errors(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	cases := []struct {
		name    string
		steps   int
		expiry  float64
		spot    float64
		surface tree.VolSurface
		rate    tree.RateFunc
		want    error
	}{
		{"too few steps", 2, expiry, spot, flat(flatVol), constRate(usdRate), tree.ErrInvalidArgument},
		{"zero expiry", 10, 0, spot, flat(flatVol), constRate(usdRate), tree.ErrInvalidArgument},
		{"negative spot", 10, expiry, -1, flat(flatVol), constRate(usdRate), tree.ErrInvalidArgument},
		{"nil surface", 10, expiry, spot, nil, constRate(usdRate), tree.ErrInvalidArgument},
		{"nan vol", 10, expiry, spot, flat(nan), constRate(usdRate), tree.ErrCalibration},
		{"negative vol", 10, expiry, spot, flat(-0.1), constRate(usdRate), tree.ErrCalibration},
		{"zero vol", 10, expiry, spot, flat(0), constRate(usdRate), tree.ErrCalibration},
		{"infinite rate", 10, expiry, spot, flat(flatVol), constRate(math.Inf(1)), tree.ErrCalibration},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := tree.Calibrator{Steps: tc.steps, TimeToExpiry: tc.expiry, Config: config.DefaultConfig}
			data, err := c.Calibrate(tc.surface, tc.spot, tc.rate, constRate(eurRate))
			require.ErrorIs(t, err, tc.want)
			assert.Nil(t, data)
		})
	}
}

func TestCalibrate_ZeroConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	c := tree.Calibrator{Steps: 10, TimeToExpiry: expiry}
	data, err := c.Calibrate(flat(flatVol), spot, constRate(usdRate), constRate(eurRate))
	require.NoError(t, err)
	assertValidTree(t, data)
}

func TestCalibrate_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig
	cfg.ProbabilityTolerance = 0
	c := tree.Calibrator{Steps: 10, TimeToExpiry: expiry, Config: cfg}
	data, err := c.Calibrate(flat(flatVol), spot, constRate(usdRate), constRate(eurRate))
	require.ErrorIs(t, err, tree.ErrInvalidArgument)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Nil(t, data)

	// The config's step count is ignored in favour of the calibrator's.
	cfg = config.DefaultConfig
	cfg.Steps = 0
	c = tree.Calibrator{Steps: 10, TimeToExpiry: expiry, Config: cfg}
	data, err = c.Calibrate(flat(flatVol), spot, constRate(usdRate), constRate(eurRate))
	require.NoError(t, err)
	assert.Equal(t, 10, data.Steps())
}

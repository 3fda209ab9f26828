// Package analytic holds closed-form lognormal prices used as references for the tree.
package analytic

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// BlackPrice returns the undiscounted Black price of a European option on a forward.
//
// Parameters:
//   - forward: forward of the underlying at expiry
//   - strike: strike of the option
//   - t: time to expiry in years
//   - vol: lognormal volatility
//   - isCall: true for a call, false for a put
//
// With no time value (t <= 0 or vol <= 0) the intrinsic value is returned.
func BlackPrice(forward, strike, t, vol float64, isCall bool) float64 {
	sign := 1.0
	if !isCall {
		sign = -1.0
	}
	if strike <= 0 {
		return math.Max(sign*(forward-strike), 0)
	}
	sigmaSqrtT := vol * math.Sqrt(t)
	if t <= 0 || vol <= 0 || sigmaSqrtT < 1e-16 {
		return math.Max(sign*(forward-strike), 0)
	}
	d1 := math.Log(forward/strike)/sigmaSqrtT + 0.5*sigmaSqrtT
	d2 := d1 - sigmaSqrtT
	return sign * (forward*normCDF(sign*d1) - strike*normCDF(sign*d2))
}

// BlackScholes prices a European option on a spot with continuous rate and
// dividend (foreign rate) yields.
func BlackScholes(spot, strike, t, rate, dividend, vol float64, isCall bool) float64 {
	forward := spot * math.Exp((rate-dividend)*t)
	return math.Exp(-rate*t) * BlackPrice(forward, strike, t, vol, isCall)
}

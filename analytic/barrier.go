package analytic

import (
	"math"
)

// Barrier describes a continuously monitored single barrier for BarrierPrice.
type Barrier struct {
	Up      bool
	KnockIn bool
	Level   float64
	// Rebate is paid at the hit for knock-out options and at expiry, when the
	// barrier was never hit, for knock-in options.
	Rebate float64
}

// BarrierPrice is the Reiner-Rubinstein price of a single-barrier option with
// cost of carry b = rate - dividend.
//
// If spot is already at or through the barrier, a knock-out is worth its rebate
// and a knock-in is the vanilla option.
func BarrierPrice(spot, strike, t, costOfCarry, rate, vol float64, isCall bool, b Barrier) float64 {
	h := b.Level
	breached := (b.Up && spot >= h) || (!b.Up && spot <= h)
	if breached {
		if b.KnockIn {
			return BlackScholes(spot, strike, t, rate, rate-costOfCarry, vol, isCall)
		}
		return b.Rebate
	}

	phi := 1.0
	if !isCall {
		phi = -1.0
	}
	eta := 1.0
	if b.Up {
		eta = -1.0
	}

	sigmaSqrtT := vol * math.Sqrt(t)
	sigmaSq := vol * vol
	mu := (costOfCarry - 0.5*sigmaSq) / sigmaSq
	lambda := math.Sqrt(mu*mu + 2*rate/sigmaSq)
	df := math.Exp(-rate * t)
	dfCarry := math.Exp((costOfCarry - rate) * t)
	hs := h / spot

	x1 := math.Log(spot/strike)/sigmaSqrtT + (1+mu)*sigmaSqrtT
	x2 := math.Log(spot/h)/sigmaSqrtT + (1+mu)*sigmaSqrtT
	y1 := math.Log(h*h/(spot*strike))/sigmaSqrtT + (1+mu)*sigmaSqrtT
	y2 := math.Log(h/spot)/sigmaSqrtT + (1+mu)*sigmaSqrtT
	z := math.Log(h/spot)/sigmaSqrtT + lambda*sigmaSqrtT

	termA := phi*spot*dfCarry*normCDF(phi*x1) - phi*strike*df*normCDF(phi*x1-phi*sigmaSqrtT)
	termB := phi*spot*dfCarry*normCDF(phi*x2) - phi*strike*df*normCDF(phi*x2-phi*sigmaSqrtT)
	termC := phi*spot*dfCarry*math.Pow(hs, 2*(mu+1))*normCDF(eta*y1) -
		phi*strike*df*math.Pow(hs, 2*mu)*normCDF(eta*y1-eta*sigmaSqrtT)
	termD := phi*spot*dfCarry*math.Pow(hs, 2*(mu+1))*normCDF(eta*y2) -
		phi*strike*df*math.Pow(hs, 2*mu)*normCDF(eta*y2-eta*sigmaSqrtT)

	rebate := 0.0
	if b.Rebate != 0 {
		if b.KnockIn {
			rebate = b.Rebate * df * (normCDF(eta*x2-eta*sigmaSqrtT) - math.Pow(hs, 2*mu)*normCDF(eta*y2-eta*sigmaSqrtT))
		} else {
			rebate = b.Rebate * (math.Pow(hs, mu+lambda)*normCDF(eta*z) +
				math.Pow(hs, mu-lambda)*normCDF(eta*z-2*eta*lambda*sigmaSqrtT))
		}
	}

	above := strike >= h
	switch {
	case !b.KnockIn && isCall && !b.Up:
		if above {
			return termA - termC + rebate
		}
		return termB - termD + rebate
	case !b.KnockIn && isCall && b.Up:
		if above {
			return rebate
		}
		return termA - termB + termC - termD + rebate
	case !b.KnockIn && !isCall && !b.Up:
		if above {
			return termA - termB + termC - termD + rebate
		}
		return rebate
	case !b.KnockIn && !isCall && b.Up:
		if above {
			return termB - termD + rebate
		}
		return termA - termC + rebate
	case b.KnockIn && isCall && !b.Up:
		if above {
			return termC + rebate
		}
		return termA - termB + termD + rebate
	case b.KnockIn && isCall && b.Up:
		if above {
			return termA + rebate
		}
		return termB - termC + termD + rebate
	case b.KnockIn && !isCall && !b.Up:
		if above {
			return termB - termC + termD + rebate
		}
		return termA + rebate
	default: // knock-in put, up barrier
		if above {
			return termA - termB + termD + rebate
		}
		return termC + rebate
	}
}

package utils

import (
	"fmt"
	"time"
)

// Day count conventions accepted by YearFraction.
const (
	Act360  = "ACT/360"
	Act365F = "ACT/365F"
	Thirty  = "30/360"
	Thirty6 = "30E/360"
)

const hoursPerDay = 24.0

// YearFraction computes the year fraction between two instants using the given day count convention.
// Supported conventions: ACT/360, ACT/365F, 30E/360, 30/360.
//
// ACT conventions keep the intraday part, so an expiry at 10:00 NY cut is measured from
// the valuation instant rather than from midnight.
func YearFraction(start, end time.Time, convention string) (float64, error) {
	switch convention {
	case Act360:
		return end.Sub(start).Hours() / hoursPerDay / 360.0, nil
	case Act365F, "":
		return end.Sub(start).Hours() / hoursPerDay / 365.0, nil
	case Thirty6, Thirty:
		// D1 and D2 are capped at 30
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0, nil
	default:
		return 0, fmt.Errorf("unsupported day count %q", convention)
	}
}

// RelativeTime is the ACT/365F time from valuation to t, the time axis used by curves,
// volatility surfaces and trees alike.
func RelativeTime(valuation, t time.Time) float64 {
	return t.Sub(valuation).Hours() / hoursPerDay / 365.0
}

package utils

import (
	"math"
	"sort"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used by every input file.
const DateLayout = "2006-01-02"

// SortDates sorts a slice of time.Time in ascending order.
func SortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

// ParseDate converts YYYY-MM-DD to a UTC midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// SameDate reports whether a and b fall on the same calendar day in UTC.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// LowerBoundIndex returns the index l of the last element with xs[l] <= v in an
// ascending slice.
//
// Returns -1 if v is below xs[0] and len(xs)-1 if v is at or above the last element.
// An exact match returns its own index.
func LowerBoundIndex(xs []float64, v float64) int {
	n := len(xs)
	if n == 0 || v < xs[0] {
		return -1
	}
	if v >= xs[n-1] {
		return n - 1
	}
	// First index with xs[i] > v.
	i := sort.Search(n, func(i int) bool {
		return xs[i] > v
	})
	return i - 1
}

// RoundTo rounds a float to the specified decimal places.
func RoundTo(val float64, decimals uint32) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}

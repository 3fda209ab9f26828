package tree

import "errors"

var (
	// ErrInvalidArgument reports malformed or inconsistent inputs: too few steps,
	// mismatched dates, unsupported barriers, a barrier outside the lattice.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCalibration reports an implied tree that could not be fitted: a non-finite
	// or non-positive volatility, a non-finite rate, or an inadmissible probability.
	ErrCalibration = errors.New("calibration failed")
)

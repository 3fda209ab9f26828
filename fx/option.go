package fx

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PutCall is the right to buy (call) or sell (put) the base currency.
type PutCall int

const (
	Call PutCall = iota
	Put
)

func (pc PutCall) String() string {
	if pc == Put {
		return "put"
	}
	return "call"
}

// ParsePutCall accepts "call" or "put".
func ParsePutCall(s string) (PutCall, error) {
	switch strings.ToLower(s) {
	case "call":
		return Call, nil
	case "put":
		return Put, nil
	}
	return Call, fmt.Errorf("%w: put/call %q", ErrInvalidOption, s)
}

// LongShort is the holder's side.
type LongShort int

const (
	Long LongShort = iota
	Short
)

// Sign is +1 for long, -1 for short.
func (ls LongShort) Sign() float64 {
	if ls == Short {
		return -1
	}
	return 1
}

func (ls LongShort) String() string {
	if ls == Short {
		return "short"
	}
	return "long"
}

// ParseLongShort accepts "long" or "short".
func ParseLongShort(s string) (LongShort, error) {
	switch strings.ToLower(s) {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	}
	return Long, fmt.Errorf("%w: long/short %q", ErrInvalidOption, s)
}

// VanillaOption is a European FX option on Notional units of the base currency,
// struck in counter units per base unit.
type VanillaOption struct {
	LongShort LongShort
	PutCall   PutCall
	Pair      CurrencyPair
	Strike    float64
	Notional  decimal.Decimal
	Expiry    time.Time
}

// NewVanillaOption validates and returns a vanilla option.
func NewVanillaOption(ls LongShort, pc PutCall, pair CurrencyPair, strike float64, notional decimal.Decimal, expiry time.Time) (VanillaOption, error) {
	if _, err := NewCurrencyPair(pair.Base, pair.Counter); err != nil {
		return VanillaOption{}, err
	}
	if !(strike > 0) || math.IsInf(strike, 0) {
		return VanillaOption{}, fmt.Errorf("%w: strike %v", ErrInvalidOption, strike)
	}
	if !notional.IsPositive() {
		return VanillaOption{}, fmt.Errorf("%w: notional %s", ErrInvalidOption, notional)
	}
	if expiry.IsZero() {
		return VanillaOption{}, fmt.Errorf("%w: missing expiry", ErrInvalidOption)
	}
	return VanillaOption{
		LongShort: ls,
		PutCall:   pc,
		Pair:      pair,
		Strike:    strike,
		Notional:  notional,
		Expiry:    expiry,
	}, nil
}

// SingleBarrierOption is a vanilla option that knocks in or out on one barrier,
// with an optional rebate paid when it does not end up alive.
type SingleBarrierOption struct {
	Underlying VanillaOption
	Barrier    Barrier
	Rebate     *CurrencyAmount
}

// NewSingleBarrierOption validates the barrier and the rebate. The rebate must be
// non-negative and in one of the pair's currencies.
func NewSingleBarrierOption(underlying VanillaOption, barrier Barrier, rebate *CurrencyAmount) (SingleBarrierOption, error) {
	if barrier == nil {
		return SingleBarrierOption{}, fmt.Errorf("%w: missing barrier", ErrInvalidOption)
	}
	if err := barrier.validate(); err != nil {
		return SingleBarrierOption{}, err
	}
	var r *CurrencyAmount
	if rebate != nil {
		if !underlying.Pair.Contains(rebate.Currency) {
			return SingleBarrierOption{}, fmt.Errorf("%w: rebate currency %s not in %s",
				ErrInvalidOption, rebate.Currency, underlying.Pair)
		}
		if rebate.Amount.IsNegative() {
			return SingleBarrierOption{}, fmt.Errorf("%w: negative rebate %s", ErrInvalidOption, rebate)
		}
		cp := *rebate
		r = &cp
	}
	return SingleBarrierOption{Underlying: underlying, Barrier: barrier, Rebate: r}, nil
}

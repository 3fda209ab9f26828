// Package fx describes FX vanilla and single-barrier options.
package fx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidOption is returned by the option and market-descriptor constructors.
var ErrInvalidOption = errors.New("invalid fx option")

// Currency is an upper-case ISO 4217 code.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	CHF Currency = "CHF"
	KRW Currency = "KRW"
)

// ParseCurrency normalises and validates a three-letter code.
func ParseCurrency(s string) (Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: currency code %q", ErrInvalidOption, s)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: currency code %q", ErrInvalidOption, s)
		}
	}
	return Currency(code), nil
}

// CurrencyPair quotes Counter units per one Base unit.
type CurrencyPair struct {
	Base    Currency
	Counter Currency
}

// NewCurrencyPair rejects identical or empty currencies.
func NewCurrencyPair(base, counter Currency) (CurrencyPair, error) {
	if base == "" || counter == "" || base == counter {
		return CurrencyPair{}, fmt.Errorf("%w: currency pair %s/%s", ErrInvalidOption, base, counter)
	}
	return CurrencyPair{Base: base, Counter: counter}, nil
}

// ParsePair reads "EUR/USD" or "EURUSD".
func ParsePair(s string) (CurrencyPair, error) {
	s = strings.TrimSpace(s)
	var b, c string
	switch {
	case strings.Contains(s, "/"):
		parts := strings.SplitN(s, "/", 2)
		b, c = parts[0], parts[1]
	case len(s) == 6:
		b, c = s[:3], s[3:]
	default:
		return CurrencyPair{}, fmt.Errorf("%w: currency pair %q", ErrInvalidOption, s)
	}
	base, err := ParseCurrency(b)
	if err != nil {
		return CurrencyPair{}, err
	}
	counter, err := ParseCurrency(c)
	if err != nil {
		return CurrencyPair{}, err
	}
	return NewCurrencyPair(base, counter)
}

func (p CurrencyPair) String() string { return string(p.Base) + "/" + string(p.Counter) }

// Contains reports whether c is one of the pair's currencies.
func (p CurrencyPair) Contains(c Currency) bool { return c == p.Base || c == p.Counter }

// Inverse swaps base and counter.
func (p CurrencyPair) Inverse() CurrencyPair { return CurrencyPair{Base: p.Counter, Counter: p.Base} }

// CurrencyAmount is an exact decimal amount in one currency.
type CurrencyAmount struct {
	Currency Currency
	Amount   decimal.Decimal
}

// NewCurrencyAmount converts a float amount.
func NewCurrencyAmount(c Currency, amount float64) CurrencyAmount {
	return CurrencyAmount{Currency: c, Amount: decimal.NewFromFloat(amount)}
}

// Float64 returns the amount as a float for pricing arithmetic.
func (a CurrencyAmount) Float64() float64 { return a.Amount.InexactFloat64() }

// Negated flips the sign of the amount.
func (a CurrencyAmount) Negated() CurrencyAmount {
	return CurrencyAmount{Currency: a.Currency, Amount: a.Amount.Neg()}
}

// Rounded rounds the amount half away from zero to places decimals.
func (a CurrencyAmount) Rounded(places int32) CurrencyAmount {
	return CurrencyAmount{Currency: a.Currency, Amount: a.Amount.Round(places)}
}

func (a CurrencyAmount) String() string {
	return string(a.Currency) + " " + a.Amount.String()
}

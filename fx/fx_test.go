package fx_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fxtree/fx"
)

var (
	eurusd = fx.CurrencyPair{Base: fx.EUR, Counter: fx.USD}
	expiry = time.Date(2014, 9, 15, 0, 0, 0, 0, time.UTC)
)

func TestParsePair(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"EUR/USD", "eurusd", " EUR/usd "} {
		p, err := fx.ParsePair(s)
		require.NoError(t, err, s)
		assert.Equal(t, eurusd, p)
	}
	assert.Equal(t, "EUR/USD", eurusd.String())
	assert.Equal(t, fx.CurrencyPair{Base: fx.USD, Counter: fx.EUR}, eurusd.Inverse())

	for _, s := range []string{"EUR/EUR", "EURO/USD", "EU1USD", "EUR"} {
		_, err := fx.ParsePair(s)
		assert.ErrorIs(t, err, fx.ErrInvalidOption, s)
	}
}

func TestCurrencyAmount(t *testing.T) {
	t.Parallel()

	a := fx.NewCurrencyAmount(fx.USD, 1234.5678)
	assert.Equal(t, "USD 1234.5678", a.String())
	assert.Equal(t, "USD -1234.57", a.Negated().Rounded(2).String())
	assert.InDelta(t, 1234.5678, a.Float64(), 1e-12)
}

func TestNewVanillaOption(t *testing.T) {
	t.Parallel()

	notional := decimal.NewFromInt(100_000_000)
	o, err := fx.NewVanillaOption(fx.Long, fx.Call, eurusd, 1.45, notional, expiry)
	require.NoError(t, err)
	assert.Equal(t, 1.45, o.Strike)
	assert.Equal(t, 1.0, o.LongShort.Sign())
	assert.Equal(t, -1.0, fx.Short.Sign())

	_, err = fx.NewVanillaOption(fx.Long, fx.Call, eurusd, 0, notional, expiry)
	assert.ErrorIs(t, err, fx.ErrInvalidOption)
	_, err = fx.NewVanillaOption(fx.Long, fx.Call, eurusd, 1.45, decimal.Zero, expiry)
	assert.ErrorIs(t, err, fx.ErrInvalidOption)
	_, err = fx.NewVanillaOption(fx.Long, fx.Call, eurusd, 1.45, notional, time.Time{})
	assert.ErrorIs(t, err, fx.ErrInvalidOption)
	_, err = fx.NewVanillaOption(fx.Long, fx.Call, fx.CurrencyPair{Base: fx.EUR, Counter: fx.EUR}, 1.45, notional, expiry)
	assert.ErrorIs(t, err, fx.ErrInvalidOption)
}

func TestNewSingleBarrierOption(t *testing.T) {
	t.Parallel()

	u, err := fx.NewVanillaOption(fx.Long, fx.Call, eurusd, 1.45, decimal.NewFromInt(1_000_000), expiry)
	require.NoError(t, err)
	dko := fx.ConstantContinuousBarrier{BarrierType: fx.Down, KnockType: fx.KnockOut, Level: 1.25}

	rebate := fx.NewCurrencyAmount(fx.USD, 50_000)
	o, err := fx.NewSingleBarrierOption(u, dko, &rebate)
	require.NoError(t, err)
	require.NotNil(t, o.Rebate)
	rebate.Amount = decimal.NewFromInt(1)
	assert.Equal(t, "50000", o.Rebate.Amount.String(), "rebate is copied")
	assert.Equal(t, 1.25, o.Barrier.LevelAt(expiry))

	gbp := fx.NewCurrencyAmount(fx.GBP, 1)
	_, err = fx.NewSingleBarrierOption(u, dko, &gbp)
	assert.ErrorIs(t, err, fx.ErrInvalidOption)

	neg := fx.NewCurrencyAmount(fx.EUR, -1)
	_, err = fx.NewSingleBarrierOption(u, dko, &neg)
	assert.ErrorIs(t, err, fx.ErrInvalidOption)

	_, err = fx.NewSingleBarrierOption(u, nil, nil)
	assert.ErrorIs(t, err, fx.ErrInvalidOption)

	_, err = fx.NewSingleBarrierOption(u, fx.ConstantContinuousBarrier{Level: -1}, nil)
	assert.ErrorIs(t, err, fx.ErrInvalidOption)

	_, err = fx.NewSingleBarrierOption(u, fx.DiscreteBarrier{Level: 1.25}, nil)
	assert.ErrorIs(t, err, fx.ErrInvalidOption)

	disc := fx.DiscreteBarrier{BarrierType: fx.Up, KnockType: fx.KnockIn, Level: 1.6, ObservationDates: []time.Time{expiry}}
	o, err = fx.NewSingleBarrierOption(u, disc, nil)
	require.NoError(t, err)
	assert.Equal(t, fx.KnockIn, o.Barrier.Knock())
	assert.Equal(t, fx.Up, o.Barrier.Type())
}

func TestParseSides(t *testing.T) {
	t.Parallel()

	pc, err := fx.ParsePutCall("PUT")
	require.NoError(t, err)
	assert.Equal(t, fx.Put, pc)
	ls, err := fx.ParseLongShort("short")
	require.NoError(t, err)
	assert.Equal(t, fx.Short, ls)

	_, err = fx.ParsePutCall("straddle")
	assert.ErrorIs(t, err, fx.ErrInvalidOption)
	_, err = fx.ParseLongShort("flat")
	assert.ErrorIs(t, err, fx.ErrInvalidOption)
}

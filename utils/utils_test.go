package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/fxtree/utils"
)

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		convention string
		want       float64
	}{
		{utils.Act360, 182.0 / 360.0},
		{utils.Act365F, 182.0 / 365.0},
		{"", 182.0 / 365.0},
		{utils.Thirty, 180.0 / 360.0},
		{utils.Thirty6, 180.0 / 360.0},
	}
	for _, tc := range tests {
		got, err := utils.YearFraction(start, end, tc.convention)
		require.NoError(t, err, tc.convention)
		assert.InDelta(t, tc.want, got, 1e-15, tc.convention)
	}

	_, err := utils.YearFraction(start, end, "ACT/ACT")
	assert.Error(t, err)
}

func TestRelativeTime_KeepsIntraday(t *testing.T) {
	t.Parallel()

	val := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.0, utils.RelativeTime(val, val.AddDate(0, 0, 365)), 1e-15)
	assert.InDelta(t, 0.5/365.0, utils.RelativeTime(val, val.Add(12*time.Hour)), 1e-15)
	assert.Less(t, utils.RelativeTime(val, val.Add(-time.Hour)), 0.0)
}

func TestLowerBoundIndex(t *testing.T) {
	t.Parallel()

	xs := []float64{1, 2, 3, 4}
	tests := []struct {
		v    float64
		want int
	}{
		{0.5, -1},
		{1, 0},
		{1.5, 0},
		{2, 1},
		{3.99, 2},
		{4, 3},
		{9, 3},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, utils.LowerBoundIndex(xs, tc.v), "v=%v", tc.v)
	}
	assert.Equal(t, -1, utils.LowerBoundIndex(nil, 1))
}

func TestDates(t *testing.T) {
	t.Parallel()

	d, err := utils.ParseDate("2014-09-15")
	require.NoError(t, err)
	assert.True(t, utils.SameDate(d, d.Add(23*time.Hour)))
	assert.False(t, utils.SameDate(d, d.Add(24*time.Hour)))

	_, err = utils.ParseDate("15/09/2014")
	assert.Error(t, err)

	dates := []time.Time{d.AddDate(1, 0, 0), d, d.AddDate(0, 1, 0)}
	utils.SortDates(dates)
	assert.Equal(t, d, dates[0])
	assert.Equal(t, d.AddDate(1, 0, 0), dates[2])

	assert.Equal(t, 1.235, utils.RoundTo(1.23456, 3))
}

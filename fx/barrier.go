package fx

import (
	"fmt"
	"math"
	"time"
)

// BarrierType is the side from which the barrier is hit.
type BarrierType int

const (
	Down BarrierType = iota
	Up
)

func (b BarrierType) String() string {
	if b == Up {
		return "up"
	}
	return "down"
}

// KnockType says whether hitting the barrier activates or cancels the option.
type KnockType int

const (
	KnockOut KnockType = iota
	KnockIn
)

func (k KnockType) String() string {
	if k == KnockIn {
		return "knock-in"
	}
	return "knock-out"
}

// Barrier is a barrier monitoring rule.
type Barrier interface {
	Type() BarrierType
	Knock() KnockType
	// LevelAt is the barrier level in force at t.
	LevelAt(t time.Time) float64
	validate() error
}

// ConstantContinuousBarrier is monitored continuously at a fixed level.
type ConstantContinuousBarrier struct {
	BarrierType BarrierType
	KnockType   KnockType
	Level       float64
}

func (b ConstantContinuousBarrier) Type() BarrierType         { return b.BarrierType }
func (b ConstantContinuousBarrier) Knock() KnockType          { return b.KnockType }
func (b ConstantContinuousBarrier) LevelAt(time.Time) float64 { return b.Level }

func (b ConstantContinuousBarrier) validate() error {
	if !(b.Level > 0) || math.IsInf(b.Level, 0) {
		return fmt.Errorf("%w: barrier level %v", ErrInvalidOption, b.Level)
	}
	return nil
}

// DiscreteBarrier is only monitored on its observation dates.
type DiscreteBarrier struct {
	BarrierType      BarrierType
	KnockType        KnockType
	Level            float64
	ObservationDates []time.Time
}

func (b DiscreteBarrier) Type() BarrierType         { return b.BarrierType }
func (b DiscreteBarrier) Knock() KnockType          { return b.KnockType }
func (b DiscreteBarrier) LevelAt(time.Time) float64 { return b.Level }

func (b DiscreteBarrier) validate() error {
	if !(b.Level > 0) || math.IsInf(b.Level, 0) {
		return fmt.Errorf("%w: barrier level %v", ErrInvalidOption, b.Level)
	}
	if len(b.ObservationDates) == 0 {
		return fmt.Errorf("%w: discrete barrier without observation dates", ErrInvalidOption)
	}
	return nil
}

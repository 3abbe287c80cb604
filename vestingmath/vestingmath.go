// Package vestingmath computes how much of a schedule has unlocked at a given
// time. All arithmetic is on big integers and every division comes last, so
// repeated evaluation never accumulates truncation error.
package vestingmath

import (
	"fmt"
	"math/big"

	"vesting-project/models"
)

// InitialUnlock returns floor(total * fraction)
func InitialUnlock(total *big.Int, f models.Fraction) *big.Int {
	if f.IsZero() || f.Denominator == 0 {
		return big.NewInt(0)
	}
	if f.Numerator >= f.Denominator {
		return new(big.Int).Set(total)
	}
	result := new(big.Int).Mul(total, new(big.Int).SetUint64(f.Numerator))
	return result.Quo(result, new(big.Int).SetUint64(f.Denominator))
}

// VestedAmount returns the cumulative amount unlocked by now.
//
// Before the cliff ends only the initial unlock is available. After it, the
// share total * (1 - fraction) accrues linearly over VestingDuration, and the
// result is exactly TotalAllocation from start + cliff + duration on. A now earlier
// than start counts as zero elapsed time.
func VestedAmount(p models.VestingParameters, now int64) (*big.Int, error) {
	if !p.Started() {
		return nil, models.ErrScheduleNotStarted
	}
	if p.TotalAllocation == nil {
		return nil, fmt.Errorf("%w: missing total allocation", models.ErrInvalidSchedule)
	}
	if p.VestingDuration == 0 {
		return nil, fmt.Errorf("%w: vesting duration must be positive", models.ErrInvalidSchedule)
	}

	var elapsed uint64
	if now > *p.Start {
		elapsed = uint64(now - *p.Start)
	}

	initial := InitialUnlock(p.TotalAllocation, p.InitialUnlock)
	if elapsed < p.CliffDuration {
		return initial, nil
	}

	linearElapsed := elapsed - p.CliffDuration
	if linearElapsed >= p.VestingDuration {
		return new(big.Int).Set(p.TotalAllocation), nil
	}

	// floor(total * (1 - num/den) * linearElapsed / duration), one division
	num, den := p.InitialUnlock.Numerator, p.InitialUnlock.Denominator
	if den == 0 {
		num, den = 0, 1
	}
	linear := new(big.Int).Mul(p.TotalAllocation, new(big.Int).SetUint64(den-num))
	linear.Mul(linear, new(big.Int).SetUint64(linearElapsed))
	divisor := new(big.Int).Mul(new(big.Int).SetUint64(den), new(big.Int).SetUint64(p.VestingDuration))
	linear.Quo(linear, divisor)

	return linear.Add(linear, initial), nil
}

// Releasable returns vested minus released, clamped at zero.
// The clamp covers a clock that has moved backwards since the last release.
func Releasable(p models.VestingParameters, released *big.Int, now int64) (*big.Int, error) {
	vested, err := VestedAmount(p, now)
	if err != nil {
		return nil, err
	}
	delta := new(big.Int).Sub(vested, released)
	if delta.Sign() < 0 {
		return delta.SetInt64(0), nil
	}
	return delta, nil
}

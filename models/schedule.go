package models

import "math/big"

// Fraction is an exact rational in [0,1]. The zero value is 0.
type Fraction struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// IsZero reports whether the fraction evaluates to 0
func (f Fraction) IsZero() bool {
	return f.Numerator == 0
}

// Valid reports whether the fraction lies in [0,1] and has a usable denominator
func (f Fraction) Valid() bool {
	if f.Denominator == 0 {
		return f.Numerator == 0
	}
	return f.Numerator <= f.Denominator
}

// VestingParameters describes how one allocation unlocks over time.
// Durations are whole seconds, Start is a unix timestamp in seconds.
type VestingParameters struct {
	TotalAllocation *big.Int `json:"total_allocation"` // base units
	InitialUnlock   Fraction `json:"initial_unlock"`   // unlocked at start
	CliffDuration   uint64   `json:"cliff_duration"`   // seconds after start with no linear accrual
	VestingDuration uint64   `json:"vesting_duration"` // seconds of linear accrual after the cliff
	Start           *int64   `json:"start,omitempty"`  // nil until the schedule starts
}

// Started reports whether the schedule has a start timestamp
func (p *VestingParameters) Started() bool {
	return p.Start != nil
}

// StartAt stamps the start timestamp. It never overwrites an existing one.
func (p *VestingParameters) StartAt(ts int64) {
	if p.Start != nil {
		return
	}
	p.Start = &ts
}

// End returns the timestamp at which the full allocation is vested
func (p *VestingParameters) End() (int64, bool) {
	if p.Start == nil {
		return 0, false
	}
	return *p.Start + int64(p.CliffDuration) + int64(p.VestingDuration), true
}

// FixedRoundRecord is a statically configured distribution round with a single payee.
type FixedRoundRecord struct {
	Index       int               `json:"index"`       // position in the configured round list
	Name        string            `json:"name"`        // display name, e.g. "Founder"
	Beneficiary string            `json:"beneficiary"` // payee address
	Parameters  VestingParameters `json:"parameters"`  // unlock policy
	Released    *big.Int          `json:"released"`    // cumulative amount transferred
}

// PrivateInvestorRecord is a dynamically added private round allocation.
type PrivateInvestorRecord struct {
	Beneficiary string            `json:"beneficiary"` // unique key
	Parameters  VestingParameters `json:"parameters"`  // starts when the investor is added
	Released    *big.Int          `json:"released"`    // cumulative amount transferred
	AddedAt     int64             `json:"added_at"`    // unix seconds
}

// PoolCaps tracks the private round budget.
type PoolCaps struct {
	PrivateRoundCap        *big.Int `json:"private_round_cap"`
	PrivateRoundAllocated  *big.Int `json:"private_round_allocated"`
	PrivateVestingDuration uint64   `json:"private_vesting_duration"` // seconds
}

// Remaining returns how much of the private round is still unallocated
func (c *PoolCaps) Remaining() *big.Int {
	return new(big.Int).Sub(c.PrivateRoundCap, c.PrivateRoundAllocated)
}

// VestingClock is the global start trigger for fixed rounds. It flips to started exactly once.
type VestingClock struct {
	Started        bool  `json:"started"`
	StartTimestamp int64 `json:"start_timestamp"`
}

// Grant is a one-off payment made from custody when vesting starts.
type Grant struct {
	Beneficiary string   `json:"beneficiary"`
	Amount      *big.Int `json:"amount"`
}

// ScheduleView is a read model of a schedule evaluated at a point in time.
type ScheduleView struct {
	Key         string            `json:"key"`
	Kind        string            `json:"kind"` // "round" or "investor"
	Name        string            `json:"name,omitempty"`
	Beneficiary string            `json:"beneficiary"`
	Parameters  VestingParameters `json:"parameters"`
	Released    *big.Int          `json:"released"`
	Vested      *big.Int          `json:"vested"`
	Releasable  *big.Int          `json:"releasable"`
	End         *int64            `json:"end,omitempty"` // fully vested from here on; nil before start
	EvaluatedAt int64             `json:"evaluated_at"`
}

// Status summarises the global vesting state.
type Status struct {
	Clock          VestingClock `json:"clock"`
	Caps           PoolCaps     `json:"caps"`
	TotalSupply    *big.Int     `json:"total_supply"`
	CustodyBalance *big.Int     `json:"custody_balance"`
	TotalReleased  *big.Int     `json:"total_released"`
	Rounds         int          `json:"rounds"`
	Investors      int          `json:"investors"`
}

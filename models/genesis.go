package models

import (
	"fmt"
	"math/big"
	"strings"
)

// Genesis is everything needed to seed an empty vesting store.
type Genesis struct {
	TotalSupply            *big.Int
	PrivateRoundCap        *big.Int
	PrivateVestingDuration uint64 // seconds
	Rounds                 []FixedRoundRecord
	Grants                 []Grant
}

// Committed returns the sum of every round allocation, the private round cap and all grants
func (g *Genesis) Committed() *big.Int {
	sum := new(big.Int)
	for i := range g.Rounds {
		sum.Add(sum, g.Rounds[i].Parameters.TotalAllocation)
	}
	if g.PrivateRoundCap != nil {
		sum.Add(sum, g.PrivateRoundCap)
	}
	for _, grant := range g.Grants {
		sum.Add(sum, grant.Amount)
	}
	return sum
}

// ValidatePayees rejects rounds and grants that pay the custody address.
// Custody cannot transfer to itself, so such an allocation could never be paid out.
func (g *Genesis) ValidatePayees(custody string) error {
	for i := range g.Rounds {
		if strings.EqualFold(g.Rounds[i].Beneficiary, custody) {
			return fmt.Errorf("%w: round %q pays the custody address", ErrInvalidAddress, g.Rounds[i].Name)
		}
	}
	for _, grant := range g.Grants {
		if strings.EqualFold(grant.Beneficiary, custody) {
			return fmt.Errorf("%w: grant pays the custody address", ErrInvalidAddress)
		}
	}
	return nil
}

// Validate checks the schedules and that custody can cover everything that is promised.
func (g *Genesis) Validate() error {
	if g.TotalSupply == nil || g.TotalSupply.Sign() <= 0 {
		return fmt.Errorf("%w: total supply must be positive", ErrInvalidAmount)
	}
	if g.PrivateRoundCap == nil || g.PrivateRoundCap.Sign() < 0 {
		return fmt.Errorf("%w: private round cap must not be negative", ErrInvalidAmount)
	}
	if g.PrivateVestingDuration == 0 {
		return fmt.Errorf("%w: private round vesting duration must be positive", ErrInvalidSchedule)
	}

	seen := make(map[string]bool, len(g.Rounds))
	for i := range g.Rounds {
		round := &g.Rounds[i]
		if round.Index != i {
			return fmt.Errorf("%w: round %q has index %d, expected %d", ErrInvalidSchedule, round.Name, round.Index, i)
		}
		if !IsAddressValid(round.Beneficiary) {
			return fmt.Errorf("round %q: %w: %q", round.Name, ErrInvalidAddress, round.Beneficiary)
		}
		if seen[round.Beneficiary] {
			return fmt.Errorf("%w: beneficiary %s is used by more than one round", ErrInvalidSchedule, round.Beneficiary)
		}
		seen[round.Beneficiary] = true

		p := round.Parameters
		if p.TotalAllocation == nil || p.TotalAllocation.Sign() <= 0 {
			return fmt.Errorf("round %q: %w", round.Name, ErrZeroAmount)
		}
		if !p.InitialUnlock.Valid() {
			return fmt.Errorf("%w: round %q initial unlock %d/%d is outside [0,1]", ErrInvalidSchedule, round.Name, p.InitialUnlock.Numerator, p.InitialUnlock.Denominator)
		}
		if p.VestingDuration == 0 {
			return fmt.Errorf("%w: round %q vesting duration must be positive", ErrInvalidSchedule, round.Name)
		}
		if p.Started() {
			return fmt.Errorf("%w: round %q must not carry a start before vesting starts", ErrInvalidSchedule, round.Name)
		}
	}

	for _, grant := range g.Grants {
		if !IsAddressValid(grant.Beneficiary) {
			return fmt.Errorf("grant: %w: %q", ErrInvalidAddress, grant.Beneficiary)
		}
		if grant.Amount == nil || grant.Amount.Sign() <= 0 {
			return fmt.Errorf("grant to %s: %w", grant.Beneficiary, ErrZeroAmount)
		}
	}

	if committed := g.Committed(); committed.Cmp(g.TotalSupply) > 0 {
		return fmt.Errorf("%w: %s committed against a supply of %s", ErrSupplyExceeded, committed, g.TotalSupply)
	}
	return nil
}

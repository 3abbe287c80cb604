package registry

import (
	"fmt"
	"math/big"

	"vesting-project/models"
	"vesting-project/repository"
	"vesting-project/vestingmath"
)

// Schedule is a fixed round or a private investor record loaded for reading
// or for a released-amount update.
type Schedule struct {
	Key         models.ScheduleKey
	Name        string
	Beneficiary string
	Parameters  models.VestingParameters
	Released    *big.Int

	round    *models.FixedRoundRecord
	investor *models.PrivateInvestorRecord
}

// LoadSchedule fetches the record behind key. Unknown keys fail with models.ErrNotFound.
func LoadSchedule(repo repository.ScheduleRepositoryInterface, key models.ScheduleKey) (*Schedule, error) {
	switch key.Kind {
	case models.RoundKey:
		round, err := repo.GetRound(key.Round)
		if err != nil {
			return nil, err
		}
		return &Schedule{
			Key:         key,
			Name:        round.Name,
			Beneficiary: round.Beneficiary,
			Parameters:  round.Parameters,
			Released:    orZero(round.Released),
			round:       round,
		}, nil
	case models.InvestorKey:
		investor, err := repo.GetInvestor(key.Address)
		if err != nil {
			return nil, err
		}
		return &Schedule{
			Key:         key,
			Beneficiary: investor.Beneficiary,
			Parameters:  investor.Parameters,
			Released:    orZero(investor.Released),
			investor:    investor,
		}, nil
	}
	return nil, fmt.Errorf("%w: %v", models.ErrInvalidKey, key)
}

// SaveReleased writes the schedule's Released amount back to its record.
// It refuses to lower the amount or to raise it past the allocation.
func (s *Schedule) SaveReleased(repo repository.ScheduleRepositoryInterface) error {
	if s.Released.Cmp(s.Parameters.TotalAllocation) > 0 {
		return fmt.Errorf("%w: released %s exceeds allocation %s for %s", models.ErrInvalidSchedule, s.Released, s.Parameters.TotalAllocation, s.Key)
	}
	switch {
	case s.round != nil:
		if s.Released.Cmp(orZero(s.round.Released)) < 0 {
			return fmt.Errorf("%w: released amount of round %d would decrease", models.ErrInvalidSchedule, s.round.Index)
		}
		s.round.Released = s.Released
		return repo.PutRound(s.round)
	case s.investor != nil:
		if s.Released.Cmp(orZero(s.investor.Released)) < 0 {
			return fmt.Errorf("%w: released amount of investor %s would decrease", models.ErrInvalidSchedule, s.investor.Beneficiary)
		}
		s.investor.Released = s.Released
		return repo.PutInvestor(s.investor)
	}
	return fmt.Errorf("%w: schedule %s was not loaded", models.ErrInvalidSchedule, s.Key)
}

// View evaluates the schedule at now. A schedule that has not started reports zero vested.
func (s *Schedule) View(now int64) (*models.ScheduleView, error) {
	view := &models.ScheduleView{
		Key:         s.Key.String(),
		Kind:        s.Key.Kind.String(),
		Name:        s.Name,
		Beneficiary: s.Beneficiary,
		Parameters:  s.Parameters,
		Released:    s.Released,
		Vested:      big.NewInt(0),
		Releasable:  big.NewInt(0),
		EvaluatedAt: now,
	}
	if !s.Parameters.Started() {
		return view, nil
	}

	vested, err := vestingmath.VestedAmount(s.Parameters, now)
	if err != nil {
		return nil, err
	}
	releasable, err := vestingmath.Releasable(s.Parameters, s.Released, now)
	if err != nil {
		return nil, err
	}
	view.Vested = vested
	view.Releasable = releasable
	if end, ok := s.Parameters.End(); ok {
		view.End = &end
	}
	return view, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

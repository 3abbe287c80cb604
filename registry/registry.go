package registry

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"vesting-project/access"
	"vesting-project/clock"
	"vesting-project/db"
	"vesting-project/ledger"
	"vesting-project/logger"
	"vesting-project/models"
	"vesting-project/repository"

	"go.uber.org/zap"
)

// Registry owns the fixed rounds and the private investor pool. Every
// mutation runs in a single store transaction, so a record and the counters
// that accompany it are never observed apart.
type Registry struct {
	store   db.Store
	guard   *access.Guard
	clock   clock.Clock
	ledgers ledger.Factory
}

func NewRegistry(store db.Store, guard *access.Guard, clk clock.Clock, ledgers ledger.Factory) *Registry {
	return &Registry{store: store, guard: guard, clock: clk, ledgers: ledgers}
}

// Bootstrap seeds an empty store: the fixed rounds without a start, the
// private round caps, the unstarted clock, the grants, and the total supply
// minted into custody.
func (r *Registry) Bootstrap(g *models.Genesis) error {
	if err := g.Validate(); err != nil {
		return err
	}

	err := r.store.Update(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)
		led := r.ledgers(kv)

		if err := g.ValidatePayees(led.Custody()); err != nil {
			return err
		}
		_, err := repo.GetVestingClock()
		if err == nil {
			return models.ErrAlreadyBootstrapped
		}
		if !errors.Is(err, models.ErrNotBootstrapped) {
			return err
		}

		for i := range g.Rounds {
			round := g.Rounds[i]
			round.Parameters.Start = nil
			round.Released = big.NewInt(0)
			if err := repo.PutRound(&round); err != nil {
				return err
			}
		}

		caps := &models.PoolCaps{
			PrivateRoundCap:        new(big.Int).Set(g.PrivateRoundCap),
			PrivateRoundAllocated:  big.NewInt(0),
			PrivateVestingDuration: g.PrivateVestingDuration,
		}
		if err := repo.PutPoolCaps(caps); err != nil {
			return err
		}
		if err := repo.PutGrants(g.Grants); err != nil {
			return err
		}
		if err := repo.PutVestingClock(&models.VestingClock{}); err != nil {
			return err
		}
		return led.Mint(g.TotalSupply)
	})
	if err != nil {
		return err
	}

	logger.Logger.Info("Vesting store bootstrapped",
		zap.Int("rounds", len(g.Rounds)),
		zap.Int("grants", len(g.Grants)),
		zap.String("total_supply", g.TotalSupply.String()),
		zap.String("private_round_cap", g.PrivateRoundCap.String()))
	return nil
}

// EnsureBootstrapped bootstraps an empty store and otherwise checks that the
// stored schedules match g. It reports whether a bootstrap happened.
func (r *Registry) EnsureBootstrapped(g *models.Genesis) (bool, error) {
	var stored []*models.FixedRoundRecord
	var caps *models.PoolCaps
	var grants []models.Grant
	var supply *big.Int
	err := r.store.View(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)
		var err error
		if caps, err = repo.GetPoolCaps(); err != nil {
			return err
		}
		if stored, err = repo.GetAllRounds(); err != nil {
			return err
		}
		if grants, err = repo.GetGrants(); err != nil {
			return err
		}
		supply, err = r.ledgers(kv).TotalSupply()
		return err
	})
	if errors.Is(err, models.ErrNotBootstrapped) {
		return true, r.Bootstrap(g)
	}
	if err != nil {
		return false, err
	}

	if caps.PrivateRoundCap.Cmp(g.PrivateRoundCap) != 0 || caps.PrivateVestingDuration != g.PrivateVestingDuration {
		return false, fmt.Errorf("%w: private round settings differ from the store", models.ErrGenesisMismatch)
	}
	if supply.Cmp(g.TotalSupply) != 0 {
		return false, fmt.Errorf("%w: store minted %s, configuration has %s", models.ErrGenesisMismatch, supply, g.TotalSupply)
	}
	if len(grants) != len(g.Grants) {
		return false, fmt.Errorf("%w: store has %d grants, configuration has %d", models.ErrGenesisMismatch, len(grants), len(g.Grants))
	}
	for i, grant := range grants {
		want := g.Grants[i]
		if grant.Beneficiary != want.Beneficiary || grant.Amount.Cmp(want.Amount) != 0 {
			return false, fmt.Errorf("%w: grant %d differs from the store", models.ErrGenesisMismatch, i)
		}
	}
	if len(stored) != len(g.Rounds) {
		return false, fmt.Errorf("%w: store has %d rounds, configuration has %d", models.ErrGenesisMismatch, len(stored), len(g.Rounds))
	}
	for i, round := range stored {
		want := g.Rounds[i]
		if round.Beneficiary != want.Beneficiary ||
			round.Parameters.TotalAllocation.Cmp(want.Parameters.TotalAllocation) != 0 ||
			round.Parameters.InitialUnlock != want.Parameters.InitialUnlock ||
			round.Parameters.CliffDuration != want.Parameters.CliffDuration ||
			round.Parameters.VestingDuration != want.Parameters.VestingDuration {
			return false, fmt.Errorf("%w: round %d (%s) differs from the store", models.ErrGenesisMismatch, i, want.Name)
		}
	}
	return false, nil
}

// AddPrivateInvestor creates a private round schedule that starts now.
// A beneficiary can hold only one private allocation.
func (r *Registry) AddPrivateInvestor(caller, beneficiary string, amount *big.Int) (*models.PrivateInvestorRecord, error) {
	if err := r.guard.Authorize(caller); err != nil {
		logger.Logger.Warn("Rejected private investor add", zap.String("caller", caller), zap.Error(err))
		return nil, err
	}
	address, err := models.NormalizeAddress(beneficiary)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: allocation for %s", models.ErrZeroAmount, address)
	}

	var record *models.PrivateInvestorRecord
	err = r.store.Update(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)

		if strings.EqualFold(address, r.ledgers(kv).Custody()) {
			return fmt.Errorf("%w: %s is the custody address", models.ErrInvalidAddress, address)
		}

		caps, err := repo.GetPoolCaps()
		if err != nil {
			return err
		}
		allocated := new(big.Int).Add(caps.PrivateRoundAllocated, amount)
		if allocated.Cmp(caps.PrivateRoundCap) > 0 {
			return fmt.Errorf("%w: %s requested, %s of %s remaining", models.ErrCapExceeded, amount, caps.Remaining(), caps.PrivateRoundCap)
		}

		exists, err := repo.HasInvestor(address)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", models.ErrBeneficiaryExists, address)
		}

		now := r.clock.Now().Unix()
		record = &models.PrivateInvestorRecord{
			Beneficiary: address,
			Parameters: models.VestingParameters{
				TotalAllocation: new(big.Int).Set(amount),
				VestingDuration: caps.PrivateVestingDuration,
				Start:           &now,
			},
			Released: big.NewInt(0),
			AddedAt:  now,
		}
		if err := repo.PutInvestor(record); err != nil {
			return err
		}

		caps.PrivateRoundAllocated = allocated
		return repo.PutPoolCaps(caps)
	})
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Private investor added",
		zap.String("beneficiary", address),
		zap.String("amount", amount.String()),
		zap.Int64("start", record.AddedAt))
	return record, nil
}

// StartVesting fires the global trigger once. It stamps the same start on
// every fixed round and pays the configured grants out of custody. A grant
// transfer failure aborts the whole start.
func (r *Registry) StartVesting(caller string) (*models.VestingClock, error) {
	if err := r.guard.Authorize(caller); err != nil {
		logger.Logger.Warn("Rejected vesting start", zap.String("caller", caller), zap.Error(err))
		return nil, err
	}

	var vc *models.VestingClock
	err := r.store.Update(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)

		var err error
		vc, err = repo.GetVestingClock()
		if err != nil {
			return err
		}
		if vc.Started {
			return fmt.Errorf("%w: at %d", models.ErrAlreadyStarted, vc.StartTimestamp)
		}

		now := r.clock.Now().Unix()
		vc.Started = true
		vc.StartTimestamp = now
		if err := repo.PutVestingClock(vc); err != nil {
			return err
		}

		rounds, err := repo.GetAllRounds()
		if err != nil {
			return err
		}
		for _, round := range rounds {
			round.Parameters.StartAt(now)
			if err := repo.PutRound(round); err != nil {
				return err
			}
		}

		grants, err := repo.GetGrants()
		if err != nil {
			return err
		}
		led := r.ledgers(kv)
		for _, grant := range grants {
			if err := led.Transfer(grant.Beneficiary, grant.Amount); err != nil {
				return fmt.Errorf("grant to %s: %w: %w", grant.Beneficiary, models.ErrTransferFailed, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrTransferFailed) {
			logger.Logger.Error("Vesting start aborted", zap.Error(err))
		}
		return nil, err
	}

	logger.Logger.Info("Vesting started", zap.Int64("start", vc.StartTimestamp))
	return vc, nil
}

// GetSchedule returns the schedule behind key evaluated at the current time
func (r *Registry) GetSchedule(key models.ScheduleKey) (*models.ScheduleView, error) {
	var view *models.ScheduleView
	err := r.store.View(func(kv db.KV) error {
		s, err := LoadSchedule(repository.NewScheduleRepository(kv), key)
		if err != nil {
			return err
		}
		view, err = s.View(r.clock.Now().Unix())
		return err
	})
	return view, err
}

// Rounds lists every fixed round in index order
func (r *Registry) Rounds() ([]*models.ScheduleView, error) {
	var views []*models.ScheduleView
	err := r.store.View(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)
		rounds, err := repo.GetAllRounds()
		if err != nil {
			return err
		}
		now := r.clock.Now().Unix()
		for _, round := range rounds {
			s, err := LoadSchedule(repo, models.RoundScheduleKey(round.Index))
			if err != nil {
				return err
			}
			view, err := s.View(now)
			if err != nil {
				return err
			}
			views = append(views, view)
		}
		return nil
	})
	return views, err
}

// Investors lists every private investor ordered by address
func (r *Registry) Investors() ([]*models.ScheduleView, error) {
	var views []*models.ScheduleView
	err := r.store.View(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)
		investors, err := repo.GetAllInvestors()
		if err != nil {
			return err
		}
		now := r.clock.Now().Unix()
		for _, investor := range investors {
			s, err := LoadSchedule(repo, models.InvestorScheduleKey(investor.Beneficiary))
			if err != nil {
				return err
			}
			view, err := s.View(now)
			if err != nil {
				return err
			}
			views = append(views, view)
		}
		return nil
	})
	return views, err
}

// Status reports the clock, the private round caps and custody totals
func (r *Registry) Status() (*models.Status, error) {
	status := &models.Status{TotalReleased: big.NewInt(0)}
	err := r.store.View(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)

		vc, err := repo.GetVestingClock()
		if err != nil {
			return err
		}
		caps, err := repo.GetPoolCaps()
		if err != nil {
			return err
		}
		status.Clock = *vc
		status.Caps = *caps

		rounds, err := repo.GetAllRounds()
		if err != nil {
			return err
		}
		for _, round := range rounds {
			status.TotalReleased.Add(status.TotalReleased, orZero(round.Released))
		}
		investors, err := repo.GetAllInvestors()
		if err != nil {
			return err
		}
		for _, investor := range investors {
			status.TotalReleased.Add(status.TotalReleased, orZero(investor.Released))
		}
		status.Rounds = len(rounds)
		status.Investors = len(investors)

		led := r.ledgers(kv)
		if status.TotalSupply, err = led.TotalSupply(); err != nil {
			return err
		}
		status.CustodyBalance, err = led.BalanceOf(led.Custody())
		return err
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// Releases returns the release log in commit order
func (r *Registry) Releases() ([]*models.ReleaseEvent, error) {
	var events []*models.ReleaseEvent
	err := r.store.View(func(kv db.KV) error {
		var err error
		events, err = repository.NewScheduleRepository(kv).GetReleases()
		return err
	})
	return events, err
}

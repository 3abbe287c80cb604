package engine

import (
	"errors"
	"fmt"
	"math/big"

	"vesting-project/clock"
	"vesting-project/db"
	"vesting-project/ledger"
	"vesting-project/logger"
	"vesting-project/models"
	"vesting-project/registry"
	"vesting-project/repository"
	"vesting-project/vestingmath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine turns vested value into released value. The bookkeeping update, the
// release log entry and the ledger transfer of a release share one store
// transaction: either all of them commit or none do.
type Engine struct {
	store   db.Store
	clock   clock.Clock
	ledgers ledger.Factory
}

func NewEngine(store db.Store, clk clock.Clock, ledgers ledger.Factory) *Engine {
	return &Engine{store: store, clock: clk, ledgers: ledgers}
}

// Release is the outcome of a successful release call. Event is nil when
// nothing was releasable.
type Release struct {
	Key         string               `json:"key"`
	Beneficiary string               `json:"beneficiary"`
	Amount      *big.Int             `json:"amount"`
	Released    *big.Int             `json:"released"`
	Event       *models.ReleaseEvent `json:"event,omitempty"`
}

// Outcome is one entry of a ReleaseAll report
type Outcome struct {
	Key     string   `json:"key"`
	Release *Release `json:"release,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Release pays out everything vested but not yet released for key. Anyone may
// call it; the funds only ever go to the schedule's beneficiary. Calling it
// again with nothing newly vested succeeds without a transfer.
func (e *Engine) Release(key models.ScheduleKey) (*Release, error) {
	var result *Release
	err := e.store.Update(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)

		s, err := registry.LoadSchedule(repo, key)
		if err != nil {
			return err
		}
		if !s.Parameters.Started() {
			return fmt.Errorf("%w: %s %s", models.ErrScheduleNotStarted, key.Kind, key)
		}

		now := e.clock.Now().Unix()
		delta, err := vestingmath.Releasable(s.Parameters, s.Released, now)
		if err != nil {
			return err
		}
		result = &Release{
			Key:         key.String(),
			Beneficiary: s.Beneficiary,
			Amount:      delta,
			Released:    s.Released,
		}
		if delta.Sign() == 0 {
			return nil
		}

		s.Released = new(big.Int).Add(s.Released, delta)
		if err := s.SaveReleased(repo); err != nil {
			return err
		}

		event := &models.ReleaseEvent{
			ID:          uuid.NewString(),
			Key:         key.String(),
			Kind:        key.Kind.String(),
			Beneficiary: s.Beneficiary,
			Amount:      delta,
			Released:    s.Released,
			Timestamp:   now,
		}
		if err := repo.AppendRelease(event); err != nil {
			return err
		}

		if err := e.ledgers(kv).Transfer(s.Beneficiary, delta); err != nil {
			return fmt.Errorf("release %s to %s: %w: %w", key, s.Beneficiary, models.ErrTransferFailed, err)
		}

		result.Released = s.Released
		result.Event = event
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrTransferFailed) {
			logger.Logger.Error("Release aborted", zap.String("key", key.String()), zap.Error(err))
		}
		return nil, err
	}

	if result.Event == nil {
		logger.Logger.Debug("Nothing to release", zap.String("key", result.Key))
		return result, nil
	}
	logger.Logger.Info("Release committed",
		zap.String("key", result.Key),
		zap.String("beneficiary", result.Beneficiary),
		zap.String("amount", result.Amount.String()),
		zap.String("released", result.Released.String()),
		zap.String("event_id", result.Event.ID))
	return result, nil
}

// ReleaseAll releases every fixed round in index order and then every private
// investor. Rounds that have not started are skipped; other failures are
// reported per key and do not stop the sweep.
func (e *Engine) ReleaseAll() ([]Outcome, error) {
	var keys []models.ScheduleKey
	err := e.store.View(func(kv db.KV) error {
		repo := repository.NewScheduleRepository(kv)
		rounds, err := repo.GetAllRounds()
		if err != nil {
			return err
		}
		for _, round := range rounds {
			keys = append(keys, models.RoundScheduleKey(round.Index))
		}
		investors, err := repo.GetAllInvestors()
		if err != nil {
			return err
		}
		for _, investor := range investors {
			keys = append(keys, models.InvestorScheduleKey(investor.Beneficiary))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(keys))
	for _, key := range keys {
		release, err := e.Release(key)
		if errors.Is(err, models.ErrScheduleNotStarted) {
			continue
		}
		outcome := Outcome{Key: key.String(), Release: release}
		if err != nil {
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// BalanceOf reads an address balance from the ledger
func (e *Engine) BalanceOf(address string) (*big.Int, error) {
	normalized, err := models.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	var balance *big.Int
	err = e.store.View(func(kv db.KV) error {
		var err error
		balance, err = e.ledgers(kv).BalanceOf(normalized)
		return err
	})
	return balance, err
}

package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"vesting-project/db"
	"vesting-project/models"
)

const (
	roundPrefix    = "round:"
	investorPrefix = "investor:"
	releasePrefix  = "release:"
	poolCapsKey    = "meta:pool_caps"
	clockKey       = "meta:vesting_clock"
	grantsKey      = "meta:grants"
	releaseSeqKey  = "meta:release_seq"
)

// It abstracts the storage layer from the vesting logic
type ScheduleRepositoryInterface interface {
	PutRound(round *models.FixedRoundRecord) error
	GetRound(index int) (*models.FixedRoundRecord, error)
	GetAllRounds() ([]*models.FixedRoundRecord, error)
	PutInvestor(investor *models.PrivateInvestorRecord) error
	GetInvestor(address string) (*models.PrivateInvestorRecord, error)
	HasInvestor(address string) (bool, error)
	GetAllInvestors() ([]*models.PrivateInvestorRecord, error)
	PutPoolCaps(caps *models.PoolCaps) error
	GetPoolCaps() (*models.PoolCaps, error)
	PutVestingClock(clock *models.VestingClock) error
	GetVestingClock() (*models.VestingClock, error)
	PutGrants(grants []models.Grant) error
	GetGrants() ([]models.Grant, error)
	AppendRelease(event *models.ReleaseEvent) error
	GetReleases() ([]*models.ReleaseEvent, error)
}

// ScheduleRepository implements the ScheduleRepositoryInterface on top of a LevelDB
// key space. Bound to a transaction, every write lands in the same commit.
type ScheduleRepository struct {
	kv db.KV
}

// NewScheduleRepository creates and returns a new ScheduleRepository instance
func NewScheduleRepository(kv db.KV) *ScheduleRepository {
	return &ScheduleRepository{kv: kv}
}

func roundKey(index int) []byte {
	// zero padded so iteration follows round order
	return []byte(fmt.Sprintf("%s%06d", roundPrefix, index))
}

func investorKey(address string) []byte {
	return []byte(investorPrefix + address)
}

func releaseKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", releasePrefix, seq))
}

// PutRound stores a fixed round record
func (r *ScheduleRepository) PutRound(round *models.FixedRoundRecord) error {
	return r.put(roundKey(round.Index), round)
}

// GetRound retrieves a fixed round by index
func (r *ScheduleRepository) GetRound(index int) (*models.FixedRoundRecord, error) {
	var round models.FixedRoundRecord
	if err := r.get(roundKey(index), &round); err != nil {
		return nil, fmt.Errorf("round %d: %w", index, err)
	}
	return &round, nil
}

// GetAllRounds retrieves every fixed round in index order
func (r *ScheduleRepository) GetAllRounds() ([]*models.FixedRoundRecord, error) {
	iter := r.kv.NewIterator([]byte(roundPrefix))
	defer iter.Release()

	var rounds []*models.FixedRoundRecord
	for iter.Next() {
		var round models.FixedRoundRecord
		if err := json.Unmarshal(iter.Value(), &round); err != nil {
			return nil, err
		}
		rounds = append(rounds, &round)
	}
	return rounds, iter.Error()
}

// PutInvestor stores a private investor record keyed by beneficiary address
func (r *ScheduleRepository) PutInvestor(investor *models.PrivateInvestorRecord) error {
	return r.put(investorKey(investor.Beneficiary), investor)
}

// GetInvestor retrieves a private investor by address
func (r *ScheduleRepository) GetInvestor(address string) (*models.PrivateInvestorRecord, error) {
	var investor models.PrivateInvestorRecord
	if err := r.get(investorKey(address), &investor); err != nil {
		return nil, fmt.Errorf("investor %s: %w", address, err)
	}
	return &investor, nil
}

// HasInvestor reports whether a private investor record exists for address
func (r *ScheduleRepository) HasInvestor(address string) (bool, error) {
	return r.kv.Has(investorKey(address))
}

// GetAllInvestors retrieves every private investor, ordered by address
func (r *ScheduleRepository) GetAllInvestors() ([]*models.PrivateInvestorRecord, error) {
	iter := r.kv.NewIterator([]byte(investorPrefix))
	defer iter.Release()

	var investors []*models.PrivateInvestorRecord
	for iter.Next() {
		var investor models.PrivateInvestorRecord
		if err := json.Unmarshal(iter.Value(), &investor); err != nil {
			return nil, err
		}
		investors = append(investors, &investor)
	}
	return investors, iter.Error()
}

func (r *ScheduleRepository) PutPoolCaps(caps *models.PoolCaps) error {
	return r.put([]byte(poolCapsKey), caps)
}

// GetPoolCaps fails with models.ErrNotBootstrapped on an empty store
func (r *ScheduleRepository) GetPoolCaps() (*models.PoolCaps, error) {
	var caps models.PoolCaps
	if err := r.get([]byte(poolCapsKey), &caps); err != nil {
		return nil, bootstrapErr(err)
	}
	return &caps, nil
}

func (r *ScheduleRepository) PutVestingClock(clock *models.VestingClock) error {
	return r.put([]byte(clockKey), clock)
}

// GetVestingClock fails with models.ErrNotBootstrapped on an empty store
func (r *ScheduleRepository) GetVestingClock() (*models.VestingClock, error) {
	var clock models.VestingClock
	if err := r.get([]byte(clockKey), &clock); err != nil {
		return nil, bootstrapErr(err)
	}
	return &clock, nil
}

func (r *ScheduleRepository) PutGrants(grants []models.Grant) error {
	return r.put([]byte(grantsKey), grants)
}

func (r *ScheduleRepository) GetGrants() ([]models.Grant, error) {
	var grants []models.Grant
	if err := r.get([]byte(grantsKey), &grants); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return grants, nil
}

// AppendRelease assigns the next sequence number to event and stores it
func (r *ScheduleRepository) AppendRelease(event *models.ReleaseEvent) error {
	var seq uint64
	data, err := r.kv.Get([]byte(releaseSeqKey))
	switch {
	case err == nil:
		seq, err = strconv.ParseUint(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt release sequence: %w", err)
		}
	case !errors.Is(err, db.ErrNotFound):
		return err
	}

	seq++
	event.Seq = seq
	if err := r.put(releaseKey(seq), event); err != nil {
		return err
	}
	return r.kv.Put([]byte(releaseSeqKey), []byte(strconv.FormatUint(seq, 10)))
}

// GetReleases returns the release log in sequence order
func (r *ScheduleRepository) GetReleases() ([]*models.ReleaseEvent, error) {
	iter := r.kv.NewIterator([]byte(releasePrefix))
	defer iter.Release()

	var events []*models.ReleaseEvent
	for iter.Next() {
		var event models.ReleaseEvent
		if err := json.Unmarshal(iter.Value(), &event); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, iter.Error()
}

func (r *ScheduleRepository) put(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.kv.Put(key, data)
}

func (r *ScheduleRepository) get(key []byte, v interface{}) error {
	data, err := r.kv.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func bootstrapErr(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotBootstrapped
	}
	return err
}

package repository

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesting-project/db"
	"vesting-project/models"
)

func newTestRepo(t *testing.T) (*ScheduleRepository, *db.LevelDB) {
	t.Helper()
	ldb, err := db.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })
	return NewScheduleRepository(ldb), ldb
}

func TestRounds_RoundTripInIndexOrder(t *testing.T) {
	repo, _ := newTestRepo(t)

	for _, i := range []int{10, 2, 0} {
		require.NoError(t, repo.PutRound(&models.FixedRoundRecord{
			Index:       i,
			Beneficiary: "0x0000000000000000000000000000000000000001",
			Parameters:  models.VestingParameters{TotalAllocation: big.NewInt(int64(100 + i)), VestingDuration: 10},
			Released:    big.NewInt(0),
		}))
	}

	rounds, err := repo.GetAllRounds()
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.Equal(t, 0, rounds[0].Index)
	assert.Equal(t, 2, rounds[1].Index)
	assert.Equal(t, 10, rounds[2].Index)

	got, err := repo.GetRound(2)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Parameters.TotalAllocation.Cmp(big.NewInt(102)))
	assert.False(t, got.Parameters.Started())
}

func TestGetRound_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.GetRound(3)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestInvestors(t *testing.T) {
	repo, _ := newTestRepo(t)
	start := int64(1700000000)

	inv := &models.PrivateInvestorRecord{
		Beneficiary: "0x00000000000000000000000000000000000000bb",
		Parameters: models.VestingParameters{
			TotalAllocation: big.NewInt(500),
			VestingDuration: 6000,
			Start:           &start,
		},
		Released: big.NewInt(0),
		AddedAt:  start,
	}
	require.NoError(t, repo.PutInvestor(inv))

	ok, err := repo.HasInvestor(inv.Beneficiary)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetInvestor(inv.Beneficiary)
	require.NoError(t, err)
	require.True(t, got.Parameters.Started())
	assert.Equal(t, start, *got.Parameters.Start)

	_, err = repo.GetInvestor("0x00000000000000000000000000000000000000cc")
	assert.ErrorIs(t, err, models.ErrNotFound)

	all, err := repo.GetAllInvestors()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMeta_NotBootstrapped(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetPoolCaps()
	assert.ErrorIs(t, err, models.ErrNotBootstrapped)
	_, err = repo.GetVestingClock()
	assert.ErrorIs(t, err, models.ErrNotBootstrapped)

	grants, err := repo.GetGrants()
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestAppendRelease_AssignsSequence(t *testing.T) {
	repo, ldb := newTestRepo(t)

	err := ldb.Update(func(kv db.KV) error {
		txRepo := NewScheduleRepository(kv)
		for i := 0; i < 3; i++ {
			if err := txRepo.AppendRelease(&models.ReleaseEvent{ID: "e", Amount: big.NewInt(int64(i + 1))}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	events, err := repo.GetReleases()
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
}

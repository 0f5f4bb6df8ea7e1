package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settlement "cng-console/internal/settlement/domain"
)

func TestSettlementRepository_InsertAssignsIDAndVersion(t *testing.T) {
	repo := NewSettlementRepository()
	ctx := context.Background()

	rec := &settlement.SettlementRecord{StationID: "st-1", Period: "2024-01", GasPrice: 50}
	id, err := repo.Insert(ctx, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, 1, rec.Version)
	assert.False(t, rec.CreatedAt.IsZero())

	stored, err := repo.ListByPeriod(ctx, "2024-01")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0].ID)
	assert.Equal(t, 50.0, stored[0].GasPrice)
}

func TestSettlementRepository_SecondInsertOverwrites(t *testing.T) {
	repo := NewSettlementRepository()
	ctx := context.Background()

	first := &settlement.SettlementRecord{StationID: "st-1", Period: "2024-01", Paid: 10}
	id, err := repo.Insert(ctx, first)
	require.NoError(t, err)

	second := &settlement.SettlementRecord{StationID: "st-1", Period: "2024-01", Paid: 20}
	id2, err := repo.Insert(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 1, repo.Count())

	inserts, updates := repo.Writes()
	assert.Equal(t, 1, inserts)
	assert.Equal(t, 1, updates)
}

func TestSettlementRepository_Update(t *testing.T) {
	repo := NewSettlementRepository()
	ctx := context.Background()

	rec := &settlement.SettlementRecord{StationID: "st-1", Period: "2024-02"}
	id, err := repo.Insert(ctx, rec)
	require.NoError(t, err)

	rec.RecomputePayment(400)
	require.NoError(t, repo.Update(ctx, id, rec))
	assert.Equal(t, 2, rec.Version)

	stored, err := repo.ListByStation(ctx, "st-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 400.0, stored[0].Paid)
	assert.Equal(t, -400.0, stored[0].EndBalance)

	err = repo.Update(ctx, "missing", rec)
	assert.ErrorIs(t, err, settlement.ErrRecordNotFound)
}

func TestSettlementRepository_Validation(t *testing.T) {
	repo := NewSettlementRepository()
	ctx := context.Background()

	_, err := repo.Insert(ctx, nil)
	assert.ErrorIs(t, err, settlement.ErrNilRecord)

	_, err = repo.Insert(ctx, &settlement.SettlementRecord{Period: "2024-01"})
	assert.ErrorIs(t, err, settlement.ErrEmptyStationID)

	_, err = repo.Insert(ctx, &settlement.SettlementRecord{StationID: "st-1", Period: "2024-13"})
	assert.ErrorIs(t, err, settlement.ErrInvalidPeriod)
}

func TestSettlementRepository_ListOrdering(t *testing.T) {
	repo := NewSettlementRepository()
	ctx := context.Background()

	for _, rec := range []*settlement.SettlementRecord{
		{StationID: "st-2", Period: "2024-03"},
		{StationID: "st-1", Period: "2024-03"},
		{StationID: "st-1", Period: "2023-12"},
	} {
		_, err := repo.Insert(ctx, rec)
		require.NoError(t, err)
	}

	byPeriod, err := repo.ListByPeriod(ctx, "2024-03")
	require.NoError(t, err)
	require.Len(t, byPeriod, 2)
	assert.Equal(t, "st-1", byPeriod[0].StationID)
	assert.Equal(t, "st-2", byPeriod[1].StationID)

	byStation, err := repo.ListByStation(ctx, "st-1")
	require.NoError(t, err)
	require.Len(t, byStation, 2)
	assert.Equal(t, settlement.Period("2023-12"), byStation[0].Period)
	assert.Equal(t, settlement.Period("2024-03"), byStation[1].Period)
}

func TestSettlementRepository_OptimisticLock(t *testing.T) {
	repo := NewSettlementRepository(WithOptimisticLock(true))
	ctx := context.Background()

	rec := &settlement.SettlementRecord{StationID: "st-1", Period: "2024-01", Paid: 10}
	id, err := repo.Insert(ctx, rec)
	require.NoError(t, err)

	first := *rec
	second := *rec

	first.Paid = 20
	require.NoError(t, repo.Update(ctx, id, &first))
	assert.Equal(t, 2, first.Version)

	second.Paid = 30
	assert.ErrorIs(t, repo.Update(ctx, id, &second), settlement.ErrVersionConflict)

	stored, err := repo.ListByPeriod(ctx, "2024-01")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 20.0, stored[0].Paid)
}

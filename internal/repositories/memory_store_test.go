package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reliefledger/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemRecord(qty int) *models.StockRecord {
	now := time.Now().UTC()
	rec := &models.StockRecord{
		ID:                 uuid.New(),
		ItemName:           "Canned beans",
		Category:           models.CategoryFood,
		Unit:               "cans",
		ProvincialQuantity: qty,
		ShelterQuantities:  make(map[uuid.UUID]models.ShelterStock),
		IsActive:           true,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	rec.RecomputeTotal()
	return rec
}

func memMovement(stockID uuid.UUID, qty int, at time.Time) *models.MovementRecord {
	return &models.MovementRecord{
		ID:           uuid.New(),
		StockItemID:  stockID,
		ItemName:     "Canned beans",
		MovementType: models.MovementReceive,
		Quantity:     qty,
		From:         models.Location{Kind: models.LocationExternal, DisplayName: "Donor"},
		To:           models.SideLocation(models.ProvincialSide(), ""),
		PerformedAt:  at,
		ReferenceID:  "RCV-TEST",
	}
}

func TestMemoryStore_TxWritesInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := newMemRecord(10)
	require.NoError(t, store.Stock().Create(ctx, rec))

	err := store.RunInTx(ctx, func(tx LedgerTx) error {
		got, err := tx.Stock().GetByIDForUpdate(ctx, rec.ID)
		require.NoError(t, err)
		got.ProvincialQuantity = 25
		got.RecomputeTotal()
		require.NoError(t, tx.Stock().Update(ctx, got))
		require.NoError(t, tx.Movements().Append(ctx, memMovement(rec.ID, 15, time.Now())))

		outside, err := store.Stock().GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, outside.ProvincialQuantity)

		inside, err := tx.Stock().GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, 25, inside.ProvincialQuantity)
		return nil
	})
	require.NoError(t, err)

	committed, err := store.Stock().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, committed.TotalQuantity)
	assert.Equal(t, 2, committed.Version)

	movements, err := store.Movements().Query(ctx, &models.MovementFilter{StockItemID: &rec.ID})
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestMemoryStore_TxErrorDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := newMemRecord(10)
	require.NoError(t, store.Stock().Create(ctx, rec))
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(tx LedgerTx) error {
		got, err := tx.Stock().GetByIDForUpdate(ctx, rec.ID)
		require.NoError(t, err)
		got.ProvincialQuantity = 0
		require.NoError(t, tx.Stock().Update(ctx, got))
		require.NoError(t, tx.Movements().Append(ctx, memMovement(rec.ID, 10, time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	committed, err := store.Stock().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, committed.ProvincialQuantity)
	assert.Equal(t, 1, committed.Version)

	totals, err := store.Movements().Totals(ctx, rec.ID)
	require.NoError(t, err)
	assert.Zero(t, totals.Received)
}

func TestMemoryStore_StaleVersionRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := newMemRecord(10)
	require.NoError(t, store.Stock().Create(ctx, rec))

	err := store.RunInTx(ctx, func(tx LedgerTx) error {
		stale, err := tx.Stock().GetByID(ctx, rec.ID)
		require.NoError(t, err)

		fresh, err := store.Stock().GetByID(ctx, rec.ID)
		require.NoError(t, err)
		fresh.ProvincialQuantity = 11
		require.NoError(t, store.Stock().Update(ctx, fresh))

		stale.ProvincialQuantity = 9
		return tx.Stock().Update(ctx, stale)
	})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.True(t, IsRetryable(err))

	committed, err := store.Stock().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, committed.ProvincialQuantity)
}

func TestMemoryStore_LockedUpdatesSerialize(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := newMemRecord(0)
	require.NoError(t, store.Stock().Create(ctx, rec))

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.RunInTx(ctx, func(tx LedgerTx) error {
				_, err := UpdateStock(ctx, tx, rec.ID, func(r *models.StockRecord) error {
					r.ProvincialQuantity++
					return nil
				})
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	committed, err := store.Stock().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, committed.ProvincialQuantity)
	assert.Equal(t, workers, committed.TotalQuantity)
	assert.Equal(t, workers+1, committed.Version)
}

func TestUpdateStock_NoChangeSkipsWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := newMemRecord(7)
	require.NoError(t, store.Stock().Create(ctx, rec))

	var got *models.StockRecord
	err := store.RunInTx(ctx, func(tx LedgerTx) error {
		var err error
		got, err = UpdateStock(ctx, tx, rec.ID, func(r *models.StockRecord) error {
			r.ProvincialQuantity = 99
			return ErrNoChange
		})
		assert.ErrorIs(t, err, ErrNoChange)
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)

	committed, err := store.Stock().GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, committed.ProvincialQuantity)
	assert.Equal(t, rec.Version, committed.Version)
}

func TestMemoryStore_MovementsNewestFirstAndPaged(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stockID := uuid.New()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Movements().Append(ctx, memMovement(stockID, i, base.Add(time.Duration(i)*time.Hour))))
	}

	page, err := store.Movements().Query(ctx, &models.MovementFilter{StockItemID: &stockID, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 4, page[0].Quantity)
	assert.Equal(t, 3, page[1].Quantity)

	from := base.Add(2 * time.Hour)
	to := base.Add(4 * time.Hour)
	window, err := store.Movements().Query(ctx, &models.MovementFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, window, 3)

	all, err := ListAllMovements(ctx, store.Movements(), models.MovementFilter{StockItemID: &stockID})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestMemoryStore_AppendRejectsMalformed(t *testing.T) {
	store := NewMemoryStore()
	m := memMovement(uuid.New(), 0, time.Now())
	assert.ErrorIs(t, store.Movements().Append(context.Background(), m), ErrInvalidMovement)
}

func TestMemoryStore_ListStockFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	shelterID := uuid.New()

	empty := newMemRecord(0)
	empty.ItemName = "Antiseptic"
	empty.Category = models.CategoryMedicine
	stocked := newMemRecord(80)
	stocked.ShelterQuantities[shelterID] = models.ShelterStock{Quantity: 5}
	stocked.RecomputeTotal()
	require.NoError(t, store.Stock().Create(ctx, empty))
	require.NoError(t, store.Stock().Create(ctx, stocked))

	out := models.StatusOutOfStock
	got, err := store.Stock().List(ctx, &models.StockFilter{Status: &out})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, empty.ID, got[0].ID)

	got, err = store.Stock().List(ctx, &models.StockFilter{ShelterID: &shelterID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stocked.ID, got[0].ID)

	got, err = store.Stock().List(ctx, &models.StockFilter{Query: "BEANS"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, store.Stock().SetActive(ctx, empty.ID, false))
	active := true
	got, err = store.Stock().List(ctx, &models.StockFilter{Active: &active})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.ErrorIs(t, store.Stock().SetActive(ctx, uuid.New(), true), ErrNotFound)
}

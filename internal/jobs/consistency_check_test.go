package jobs

import (
	"context"
	"testing"

	"reliefledger/internal/models"
	"reliefledger/internal/services"
	"reliefledger/pkg/logger"
	"reliefledger/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsistencyChecker_CleanLedger(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	ctx := context.Background()
	rec := fx.SeedItem(t, testhelpers.ItemSpec{Name: "Rice", Provincial: 80, Shelters: map[uuid.UUID]int{fx.ShelterA.ID: 20}})

	ledger := services.NewLedgerService(fx.Store, nil, nil, services.LedgerOptions{})
	_, err := ledger.Transfer(ctx, fx.Admin, services.TransferInput{StockItemID: rec.ID, From: models.ProvincialSide(), To: models.ShelterSide(fx.ShelterB.ID), Quantity: 30})
	require.NoError(t, err)
	_, err = ledger.Dispense(ctx, fx.Admin, services.DispenseInput{StockItemID: rec.ID, ShelterID: fx.ShelterB.ID, Quantity: 12})
	require.NoError(t, err)
	_, err = ledger.Adjust(ctx, fx.Admin, services.AdjustInput{StockItemID: rec.ID, Side: models.ShelterSide(fx.ShelterA.ID), NewQuantity: 17})
	require.NoError(t, err)

	checker := NewConsistencyChecker(fx.Store.Stock(), fx.Store.Movements(), logger.Nop())
	drifts, err := checker.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
	assert.NoError(t, checker.ScheduledConsistencyCheck(ctx))
}

func TestConsistencyChecker_ReportsDrift(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	ctx := context.Background()
	rec := fx.SeedItem(t, testhelpers.ItemSpec{Name: "Rice", Provincial: 50})

	// Corrupt the stored record behind the ledger's back.
	stored := fx.Stock(t, rec.ID)
	stored.ProvincialQuantity = 45
	stored.TotalReceived = 60
	require.NoError(t, fx.Store.Stock().Update(ctx, stored))

	checker := NewConsistencyChecker(fx.Store.Stock(), fx.Store.Movements(), logger.Nop())
	drifts, err := checker.Check(ctx)
	require.NoError(t, err)

	checks := map[string]Drift{}
	for _, d := range drifts {
		checks[d.Check] = d
	}
	require.Contains(t, checks, CheckTotalQuantity)
	assert.Equal(t, 50, checks[CheckTotalQuantity].Stored)
	assert.Equal(t, 45, checks[CheckTotalQuantity].Expected)
	require.Contains(t, checks, CheckTotalReceived)
	assert.Equal(t, 50, checks[CheckTotalReceived].Expected)
	assert.NotContains(t, checks, CheckLedgerNet)
	assert.NotContains(t, checks, CheckTotalDispensed)
}

func TestCheckRecord_LedgerNet(t *testing.T) {
	rec := &models.StockRecord{ID: uuid.New(), ItemName: "Soap", ProvincialQuantity: 7, TotalQuantity: 7, TotalReceived: 10, TotalDispensed: 2}
	totals := models.MovementTotals{Received: 10, Dispensed: 2, AdjustOut: 2}

	drifts := checkRecord(rec, totals)
	require.Len(t, drifts, 1)
	assert.Equal(t, CheckLedgerNet, drifts[0].Check)
	assert.Equal(t, 6, drifts[0].Expected)
}

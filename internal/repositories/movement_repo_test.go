package repositories

import (
	"context"
	"testing"
	"time"

	"reliefledger/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MovementRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      MovementRepository
	stockID   uuid.UUID
	shelterID uuid.UUID
	userID    uuid.UUID
	now       time.Time
	context   context.Context
}

func (suite *MovementRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewMovementRepository(mock)
	suite.stockID = uuid.New()
	suite.shelterID = uuid.New()
	suite.userID = uuid.New()
	suite.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.context = context.Background()
}

func (suite *MovementRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestMovementRepoTestSuite(t *testing.T) {
	suite.Run(t, new(MovementRepoTestSuite))
}

func (suite *MovementRepoTestSuite) transfer() *models.MovementRecord {
	shelterID := suite.shelterID
	return &models.MovementRecord{
		ID:              uuid.New(),
		StockItemID:     suite.stockID,
		ItemName:        "Blankets",
		MovementType:    models.MovementTransfer,
		Quantity:        15,
		From:            models.Location{Kind: models.LocationProvincial, DisplayName: "Provincial stock"},
		To:              models.Location{Kind: models.LocationShelter, ShelterID: &shelterID, DisplayName: "Riverside School"},
		PerformedBy:     suite.userID,
		PerformedAt:     suite.now,
		ReferenceID:     "TRF-20260301-ABC123",
		Snapshot:        models.QuantitySnapshot{Before: 40, After: 25},
		CounterSnapshot: &models.QuantitySnapshot{Before: 5, After: 20},
	}
}

func intPtr(v int) *int {
	return &v
}

func (suite *MovementRepoTestSuite) TestAppend_Transfer() {
	m := suite.transfer()

	suite.mock.ExpectExec(`INSERT INTO stock_movements`).
		WithArgs(m.ID, suite.stockID, "Blankets", "transfer", 15,
			"provincial", (*uuid.UUID)(nil), "Provincial stock", "shelter", &suite.shelterID, "Riverside School",
			suite.userID, suite.now, "TRF-20260301-ABC123", 40, 25, intPtr(5), intPtr(20), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Append(suite.context, m)
	assert.NoError(suite.T(), err)
}

func (suite *MovementRepoTestSuite) TestAppend_RejectsMalformedRecord() {
	m := suite.transfer()
	m.Quantity = 0

	err := suite.repo.Append(suite.context, m)
	assert.ErrorIs(suite.T(), err, ErrInvalidMovement)

	m = suite.transfer()
	m.To.ShelterID = nil
	err = suite.repo.Append(suite.context, m)
	assert.ErrorIs(suite.T(), err, ErrInvalidMovement)
}

func (suite *MovementRepoTestSuite) TestQuery_ShelterAndTypeFilter() {
	typ := models.MovementTransfer
	from := suite.now.Add(-24 * time.Hour)
	filter := &models.MovementFilter{ShelterID: &suite.shelterID, MovementType: &typ, From: &from, Limit: 10}

	suite.mock.ExpectQuery(`(?s)FROM stock_movements\s+WHERE 1=1 AND \(from_shelter_id = \$1 OR to_shelter_id = \$1\) AND movement_type = \$2 AND performed_at >= \$3 ORDER BY performed_at DESC, id LIMIT \$4 OFFSET \$5`).
		WithArgs(suite.shelterID, "transfer", from, 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "stock_item_id", "item_name", "movement_type", "quantity",
			"from_kind", "from_shelter_id", "from_name", "to_kind", "to_shelter_id", "to_name", "performed_by",
			"performed_at", "reference_id", "snapshot_before", "snapshot_after", "counter_before", "counter_after", "notes"}).
			AddRow(uuid.New(), suite.stockID, "Blankets", "transfer", 15,
				"provincial", (*uuid.UUID)(nil), "Provincial stock", "shelter", &suite.shelterID, "Riverside School",
				suite.userID, suite.now, "TRF-20260301-ABC123", 40, 25, intPtr(5), intPtr(20), ""))

	got, err := suite.repo.Query(suite.context, filter)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), got, 1)
	assert.Equal(suite.T(), models.MovementTransfer, got[0].MovementType)
	assert.Equal(suite.T(), models.LocationShelter, got[0].To.Kind)
	assert.Nil(suite.T(), got[0].From.ShelterID)
	require.NotNil(suite.T(), got[0].CounterSnapshot)
	assert.Equal(suite.T(), 20, got[0].CounterSnapshot.After)
	assert.True(suite.T(), got[0].TouchesShelter(suite.shelterID))
}

func (suite *MovementRepoTestSuite) TestTotals() {
	suite.mock.ExpectQuery(`(?s)SELECT(.+)FROM stock_movements\s+WHERE stock_item_id = \$1`).
		WithArgs(suite.stockID).
		WillReturnRows(pgxmock.NewRows([]string{"received", "dispensed", "adjust_in", "adjust_out"}).
			AddRow(120, 30, 5, 10))

	totals, err := suite.repo.Totals(suite.context, suite.stockID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.MovementTotals{Received: 120, Dispensed: 30, AdjustIn: 5, AdjustOut: 10}, totals)
	assert.Equal(suite.T(), 85, totals.Net())
}

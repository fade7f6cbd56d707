package repositories

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"reliefledger/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StockRequestRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      StockRequestRepository
	requestID uuid.UUID
	shelterID uuid.UUID
	now       time.Time
	context   context.Context
}

func (suite *StockRequestRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewStockRequestRepository(mock)
	suite.requestID = uuid.New()
	suite.shelterID = uuid.New()
	suite.now = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	suite.context = context.Background()
}

func (suite *StockRequestRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestStockRequestRepoTestSuite(t *testing.T) {
	suite.Run(t, new(StockRequestRepoTestSuite))
}

func (suite *StockRequestRepoTestSuite) request() *models.StockRequest {
	return &models.StockRequest{
		ID:            suite.requestID,
		RequestNumber: "REQ-20260302-7F3A9C",
		ShelterID:     suite.shelterID,
		RequestedBy:   uuid.New(),
		RequestedAt:   suite.now,
		Items: []models.RequestItem{
			{StockItemID: uuid.New(), ItemName: "Water", RequestedQuantity: 40, Unit: "bottles"},
		},
		Status:         models.RequestPending,
		DeliveryStatus: models.DeliveryPending,
		Version:        1,
		UpdatedAt:      suite.now,
	}
}

func (suite *StockRequestRepoTestSuite) TestCreate() {
	req := suite.request()
	items, err := json.Marshal(req.Items)
	require.NoError(suite.T(), err)

	suite.mock.ExpectExec(`INSERT INTO stock_requests`).
		WithArgs(req.ID, req.RequestNumber, req.ShelterID, req.RequestedBy, req.RequestedAt, items,
			"pending", "", "pending", 1, suite.now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(suite.T(), suite.repo.Create(suite.context, req))
}

func (suite *StockRequestRepoTestSuite) TestGetByIDForUpdate_DecodesItems() {
	req := suite.request()
	items, err := json.Marshal(req.Items)
	require.NoError(suite.T(), err)

	suite.mock.ExpectQuery(`(?s)FROM stock_requests WHERE id = \$1 FOR UPDATE`).
		WithArgs(suite.requestID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "request_number", "shelter_id", "requested_by", "requested_at",
			"items", "status", "reviewed_by", "reviewed_at", "admin_notes", "approved_items", "delivery_status",
			"version", "updated_at"}).
			AddRow(req.ID, req.RequestNumber, req.ShelterID, req.RequestedBy, req.RequestedAt, items, "pending",
				(*uuid.UUID)(nil), (*time.Time)(nil), "", []byte(nil), "pending", 1, suite.now))

	got, err := suite.repo.GetByIDForUpdate(suite.context, suite.requestID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RequestPending, got.Status)
	require.Len(suite.T(), got.Items, 1)
	assert.Equal(suite.T(), 40, got.Items[0].RequestedQuantity)
	assert.Empty(suite.T(), got.ApprovedItems)
}

func (suite *StockRequestRepoTestSuite) TestGetByID_NotFound() {
	suite.mock.ExpectQuery(`FROM stock_requests WHERE id = \$1`).
		WithArgs(suite.requestID).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetByID(suite.context, suite.requestID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *StockRequestRepoTestSuite) TestUpdate_StaleVersion() {
	req := suite.request()
	req.Status = models.RequestRejected
	approved, err := json.Marshal(req.ApprovedItems)
	require.NoError(suite.T(), err)

	suite.mock.ExpectQuery(`UPDATE stock_requests`).
		WithArgs("rejected", req.ReviewedBy, req.ReviewedAt, "", approved, "pending", req.ID, 1).
		WillReturnError(pgx.ErrNoRows)

	err = suite.repo.Update(suite.context, req)
	assert.ErrorIs(suite.T(), err, ErrConcurrentUpdate)
}

func (suite *StockRequestRepoTestSuite) TestList_ByShelterAndStatus() {
	status := models.RequestPending
	filter := &models.RequestFilter{ShelterID: &suite.shelterID, Status: &status}

	suite.mock.ExpectQuery(`WHERE 1=1 AND shelter_id = \$1 AND status = \$2 ORDER BY requested_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(suite.shelterID, "pending", 50, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	got, err := suite.repo.List(suite.context, filter)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), got)
}

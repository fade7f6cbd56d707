package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetStockRecord(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockRecord), args.Error(1)
}

func (m *MockCacheService) SetStockRecord(ctx context.Context, rec *models.StockRecord, ttl time.Duration) error {
	args := m.Called(ctx, rec, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteStockRecord(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCacheService) GetAnalytics(ctx context.Context, name string, dst interface{}) (bool, error) {
	args := m.Called(ctx, name, dst)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) SetAnalytics(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, name, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateAnalytics(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestStockQuery_GetRecordFillsCacheOnMiss(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	rec := fx.SeedItem(t, testhelpers.ItemSpec{Name: "Insulin", Category: models.CategoryMedicine, Provincial: 8})

	cache := new(MockCacheService)
	cache.On("GetStockRecord", mock.Anything, rec.ID).Return(nil, nil).Once()
	cache.On("SetStockRecord", mock.Anything, mock.MatchedBy(func(r *models.StockRecord) bool { return r.ID == rec.ID }), 2*time.Minute).Return(nil).Once()

	service := NewStockQueryService(fx.Store, cache, nil, LedgerOptions{CacheTTL: 2 * time.Minute})
	got, err := service.GetRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.ProvincialQuantity)
	cache.AssertExpectations(t)
}

func TestStockQuery_GetRecordServesCacheHit(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	cached := &models.StockRecord{ID: uuid.New(), ItemName: "Cached", TotalQuantity: 3}

	cache := new(MockCacheService)
	cache.On("GetStockRecord", mock.Anything, cached.ID).Return(cached, nil).Once()

	service := NewStockQueryService(fx.Store, cache, nil, LedgerOptions{})
	got, err := service.GetRecord(context.Background(), cached.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.ItemName)
	cache.AssertNotCalled(t, "SetStockRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestStockQuery_CacheFailureFallsBackToStore(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	rec := fx.SeedItem(t, testhelpers.ItemSpec{Name: "Masks", Provincial: 500})

	cache := new(MockCacheService)
	cache.On("GetStockRecord", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil, errors.New("redis down"))
	cache.On("SetStockRecord", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	service := NewStockQueryService(fx.Store, cache, nil, LedgerOptions{})
	view, err := service.GetStock(context.Background(), fx.Viewer, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 500, view.TotalQuantity)
	assert.Nil(t, view.ProvincialQuantity)

	missing := uuid.New()
	_, err = service.GetStock(context.Background(), fx.Viewer, missing)
	assert.ErrorIs(t, err, common.ErrNotFound)
	cache.AssertCalled(t, "GetStockRecord", mock.Anything, missing)
}

func TestStockQuery_ListMovementsScopesStaff(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	fx.SeedItem(t, testhelpers.ItemSpec{Name: "Water", Provincial: 10, Shelters: map[uuid.UUID]int{fx.ShelterA.ID: 3, fx.ShelterB.ID: 4}})
	service := NewStockQueryService(fx.Store, nil, nil, LedgerOptions{})
	ctx := context.Background()

	all, err := service.ListMovements(ctx, fx.Admin, models.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := service.ListMovements(ctx, fx.StaffA, models.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].TouchesShelter(fx.ShelterA.ID))

	_, err = service.ListMovements(ctx, fx.StaffA, models.MovementFilter{ShelterID: &fx.ShelterB.ID})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = service.ListMovements(ctx, fx.Viewer, models.MovementFilter{})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestStockQuery_ListStockIgnoresUnknownStatus(t *testing.T) {
	fx := testhelpers.NewFixture(t)
	fx.SeedItem(t, testhelpers.ItemSpec{Name: "Water", Provincial: 10})
	fx.SeedItem(t, testhelpers.ItemSpec{Name: "Soap"})
	service := NewStockQueryService(fx.Store, nil, nil, LedgerOptions{})

	bogus := models.StockStatus("plenty")
	views, err := service.ListStock(context.Background(), fx.Admin, models.StockFilter{Status: &bogus})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	out := models.StatusOutOfStock
	views, err = service.ListStock(context.Background(), fx.Admin, models.StockFilter{Status: &out})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Soap", views[0].ItemName)
}

func TestProjectStock(t *testing.T) {
	shelterA, shelterB := uuid.New(), uuid.New()
	rec := &models.StockRecord{
		ID:                 uuid.New(),
		ItemName:           "Blankets",
		Category:           models.CategoryClothing,
		ProvincialQuantity: 10,
		ShelterQuantities: map[uuid.UUID]models.ShelterStock{
			shelterA: {Quantity: 4},
			shelterB: {Quantity: 6},
		},
		TotalQuantity:  20,
		TotalReceived:  25,
		TotalDispensed: 5,
		MinStockLevel:  30,
		CriticalLevel:  10,
		IsActive:       true,
	}

	admin := ProjectStock(models.Caller{Role: models.RoleAdmin}, rec)
	assert.Len(t, admin.ShelterQuantities, 2)
	require.NotNil(t, admin.CriticalLevel)
	assert.Equal(t, 10, *admin.CriticalLevel)
	assert.Equal(t, models.StatusLow, admin.Status)

	staff := ProjectStock(testhelpers.StaffCaller(shelterA), rec)
	require.NotNil(t, staff.ProvincialQuantity)
	assert.Equal(t, 10, *staff.ProvincialQuantity)
	assert.Equal(t, map[uuid.UUID]models.ShelterStock{shelterA: {Quantity: 4}}, staff.ShelterQuantities)
	assert.Nil(t, staff.CriticalLevel)
	assert.Nil(t, staff.IsActive)

	viewer := ProjectStock(models.Caller{Role: models.RoleViewer}, rec)
	assert.Equal(t, 20, viewer.TotalQuantity)
	assert.Nil(t, viewer.ProvincialQuantity)
	assert.Nil(t, viewer.ShelterQuantities)
	assert.Nil(t, viewer.TotalReceived)

	// Projection works on a copy.
	admin.ShelterQuantities[shelterA] = models.ShelterStock{Quantity: 99}
	assert.Equal(t, 4, rec.ShelterQuantities[shelterA].Quantity)
}

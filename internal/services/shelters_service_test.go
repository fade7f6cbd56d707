package services

import (
	"context"
	"testing"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockShelterRepository struct {
	mock.Mock
}

func (m *MockShelterRepository) Create(ctx context.Context, shelter *models.Shelter) error {
	args := m.Called(ctx, shelter)
	return args.Error(0)
}

func (m *MockShelterRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Shelter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shelter), args.Error(1)
}

func (m *MockShelterRepository) Update(ctx context.Context, shelter *models.Shelter) error {
	args := m.Called(ctx, shelter)
	return args.Error(0)
}

func (m *MockShelterRepository) List(ctx context.Context, limit, offset int) ([]*models.Shelter, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Shelter), args.Error(1)
}

type ShelterServiceTestSuite struct {
	suite.Suite
	repo    *MockShelterRepository
	service ShelterService
	admin   models.Caller
	ctx     context.Context
}

func (suite *ShelterServiceTestSuite) SetupTest() {
	suite.repo = new(MockShelterRepository)
	suite.service = NewShelterService(suite.repo)
	suite.admin = models.Caller{UserID: uuid.New(), Role: models.RoleAdmin}
	suite.ctx = context.Background()
}

func TestShelterServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ShelterServiceTestSuite))
}

func (suite *ShelterServiceTestSuite) TestCreate_Success() {
	capacity := 120
	shelter := &models.Shelter{Name: "  Community Hall ", Capacity: &capacity}
	suite.repo.On("Create", suite.ctx, mock.MatchedBy(func(s *models.Shelter) bool {
		return s.Name == "Community Hall" && s.IsActive && s.ID != uuid.Nil
	})).Return(nil)

	err := suite.service.Create(suite.ctx, suite.admin, shelter)
	assert.NoError(suite.T(), err)
	suite.repo.AssertExpectations(suite.T())
}

func (suite *ShelterServiceTestSuite) TestCreate_Validation() {
	zero := 0
	err := suite.service.Create(suite.ctx, suite.admin, &models.Shelter{Name: " "})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidInput)

	err = suite.service.Create(suite.ctx, suite.admin, &models.Shelter{Name: "Gym", Capacity: &zero})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidInput)

	staff := models.Caller{UserID: uuid.New(), Role: models.RoleStaff}
	err = suite.service.Create(suite.ctx, staff, &models.Shelter{Name: "Gym"})
	assert.ErrorIs(suite.T(), err, common.ErrForbidden)

	suite.repo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *ShelterServiceTestSuite) TestGetByID_NotFound() {
	id := uuid.New()
	suite.repo.On("GetByID", suite.ctx, id).Return(nil, repositories.ErrNotFound)

	_, err := suite.service.GetByID(suite.ctx, id)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *ShelterServiceTestSuite) TestUpdate_NotFound() {
	shelter := &models.Shelter{ID: uuid.New(), Name: "Gym"}
	suite.repo.On("Update", suite.ctx, shelter).Return(repositories.ErrNotFound)

	err := suite.service.Update(suite.ctx, suite.admin, shelter)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

package repositories

import (
	"context"
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

type ShelterRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    ShelterRepository
	now     time.Time
	context context.Context
}

func (suite *ShelterRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewShelterRepository(mock)
	suite.now = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	suite.context = context.Background()
}

func (suite *ShelterRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestShelterRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ShelterRepoTestSuite))
}

var shelterColumns = []string{"id", "name", "address", "capacity", "contact_phone", "is_active", "created_at", "updated_at"}

func (suite *ShelterRepoTestSuite) TestCreate() {
	capacity := 200
	shelter := &models.Shelter{ID: uuid.New(), Name: "Community Hall", Capacity: &capacity, IsActive: true}

	suite.mock.ExpectExec(`INSERT INTO shelters`).
		WithArgs(shelter.ID, shelter.Name, shelter.Address, shelter.Capacity, shelter.ContactPhone, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(suite.T(), suite.repo.Create(suite.context, shelter))
}

func (suite *ShelterRepoTestSuite) TestGetByID() {
	id := uuid.New()
	address := "12 Harbour Rd"
	var capacity *int

	suite.mock.ExpectQuery(`(?s)FROM shelters\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(shelterColumns).
			AddRow(id, "Gym", &address, capacity, (*string)(nil), true, suite.now, suite.now))

	shelter, err := suite.repo.GetByID(suite.context, id)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Gym", shelter.Name)
	assert.Equal(suite.T(), "12 Harbour Rd", *shelter.Address)
	assert.Nil(suite.T(), shelter.Capacity)
}

func (suite *ShelterRepoTestSuite) TestGetByID_NotFound() {
	id := uuid.New()
	suite.mock.ExpectQuery(`(?s)FROM shelters\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetByID(suite.context, id)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *ShelterRepoTestSuite) TestUpdate_NotFound() {
	shelter := &models.Shelter{ID: uuid.New(), Name: "Gym"}
	suite.mock.ExpectExec(`UPDATE shelters`).
		WithArgs(shelter.Name, shelter.Address, shelter.Capacity, shelter.ContactPhone, false, shelter.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(suite.T(), suite.repo.Update(suite.context, shelter), ErrNotFound)
}

func (suite *ShelterRepoTestSuite) TestList() {
	suite.mock.ExpectQuery(`(?s)ORDER BY name ASC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(50, 0).
		WillReturnRows(pgxmock.NewRows(shelterColumns).
			AddRow(uuid.New(), "Church", (*string)(nil), (*int)(nil), (*string)(nil), true, suite.now, suite.now).
			AddRow(uuid.New(), "Gym", (*string)(nil), (*int)(nil), (*string)(nil), false, suite.now, suite.now))

	shelters, err := suite.repo.List(suite.context, 50, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), shelters, 2)
	assert.Equal(suite.T(), "Church", shelters[0].Name)
	assert.False(suite.T(), shelters[1].IsActive)
}

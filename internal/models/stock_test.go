package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		expected StockStatus
	}{
		{"empty", 0, StatusOutOfStock},
		{"at critical level", 5, StatusCritical},
		{"below critical level", 1, StatusCritical},
		{"at minimum", 20, StatusLow},
		{"between thresholds", 12, StatusLow},
		{"above minimum", 21, StatusSufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusFor(tt.total, 20, 5))
		})
	}

	// Zero thresholds only flag an empty item.
	assert.Equal(t, StatusSufficient, StatusFor(1, 0, 0))
}

func TestStockRecord_QuantityAtAndRecompute(t *testing.T) {
	shelterID := uuid.New()
	rec := &StockRecord{ProvincialQuantity: 30}

	qty, ok := rec.QuantityAt(ShelterSide(shelterID))
	assert.False(t, ok)
	assert.Zero(t, qty)

	now := time.Now().UTC()
	rec.SetQuantityAt(ShelterSide(shelterID), 12, now)
	rec.SetQuantityAt(ProvincialSide(), 18, now)
	rec.RecomputeTotal()

	qty, ok = rec.QuantityAt(ShelterSide(shelterID))
	require.True(t, ok)
	assert.Equal(t, 12, qty)
	assert.Equal(t, now, rec.ShelterQuantities[shelterID].LastUpdated)
	assert.Equal(t, 30, rec.TotalQuantity)

	qty, ok = rec.QuantityAt(ProvincialSide())
	assert.True(t, ok)
	assert.Equal(t, 18, qty)
}

func TestStockRecord_CloneCopiesShelterMap(t *testing.T) {
	shelterID := uuid.New()
	rec := &StockRecord{ID: uuid.New(), ShelterQuantities: map[uuid.UUID]ShelterStock{shelterID: {Quantity: 4}}}

	c := rec.Clone()
	c.ShelterQuantities[shelterID] = ShelterStock{Quantity: 40}
	assert.Equal(t, 4, rec.ShelterQuantities[shelterID].Quantity)
	assert.Equal(t, rec.ID, c.ID)
}

func TestStockSide(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.True(t, ProvincialSide().Equal(ProvincialSide()))
	assert.True(t, ShelterSide(a).Equal(ShelterSide(a)))
	assert.False(t, ShelterSide(a).Equal(ShelterSide(b)))
	assert.False(t, ProvincialSide().Equal(ShelterSide(a)))
	assert.False(t, ShelterSide(a).Equal(ProvincialSide()))

	assert.Equal(t, "provincial", ProvincialSide().String())
	assert.Equal(t, "shelter:"+a.String(), ShelterSide(a).String())
}

func TestCategoryAndRoleValid(t *testing.T) {
	for _, c := range StockCategories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, StockCategory("tools").Valid())

	assert.True(t, RoleStaff.Valid())
	assert.False(t, CallerRole("owner").Valid())
}

func TestCaller_AssignedTo(t *testing.T) {
	shelterID := uuid.New()

	staff := Caller{Role: RoleStaff, AssignedShelterID: &shelterID}
	assert.True(t, staff.AssignedTo(shelterID))
	assert.False(t, staff.AssignedTo(uuid.New()))

	admin := Caller{Role: RoleAdmin, AssignedShelterID: &shelterID}
	assert.False(t, admin.AssignedTo(shelterID))
	assert.True(t, admin.IsAdmin())

	unassigned := Caller{Role: RoleStaff}
	assert.False(t, unassigned.AssignedTo(shelterID))
}

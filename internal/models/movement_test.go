package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLocation_Valid(t *testing.T) {
	id := uuid.New()

	assert.True(t, Location{Kind: LocationShelter, ShelterID: &id}.Valid())
	assert.False(t, Location{Kind: LocationShelter}.Valid())
	assert.True(t, Location{Kind: LocationProvincial}.Valid())
	assert.False(t, Location{Kind: LocationProvincial, ShelterID: &id}.Valid())
	assert.True(t, Location{Kind: LocationBeneficiary}.Valid())
	assert.False(t, Location{Kind: "warehouse"}.Valid())
}

func TestSideLocation(t *testing.T) {
	id := uuid.New()

	provincial := SideLocation(ProvincialSide(), "")
	assert.Equal(t, LocationProvincial, provincial.Kind)
	assert.Equal(t, "Provincial stock", provincial.DisplayName)

	shelter := SideLocation(ShelterSide(id), "Gym")
	assert.Equal(t, LocationShelter, shelter.Kind)
	assert.Equal(t, id, *shelter.ShelterID)
	assert.Equal(t, "Gym", shelter.DisplayName)
}

func TestMovementTotals(t *testing.T) {
	adjustment := Location{Kind: LocationAdjustment}
	provincial := Location{Kind: LocationProvincial}
	movements := []*MovementRecord{
		{MovementType: MovementReceive, Quantity: 100},
		{MovementType: MovementTransfer, Quantity: 40},
		{MovementType: MovementDispense, Quantity: 25},
		{MovementType: MovementAdjust, Quantity: 7, From: adjustment, To: provincial},
		{MovementType: MovementAdjust, Quantity: 3, From: provincial, To: adjustment},
	}

	var totals MovementTotals
	for _, m := range movements {
		totals.Add(m)
	}
	assert.Equal(t, MovementTotals{Received: 100, Dispensed: 25, AdjustIn: 7, AdjustOut: 3}, totals)
	assert.Equal(t, 79, totals.Net())
}

func TestMovementFilter_Matches(t *testing.T) {
	shelterID := uuid.New()
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := &MovementRecord{
		StockItemID:  uuid.New(),
		MovementType: MovementDispense,
		From:         Location{Kind: LocationShelter, ShelterID: &shelterID},
		To:           Location{Kind: LocationBeneficiary},
		PerformedAt:  at,
		ReferenceID:  "DSP-1",
	}
	dispense := MovementDispense
	receive := MovementReceive
	other := uuid.New()

	var nilFilter *MovementFilter
	assert.True(t, nilFilter.Matches(m))
	assert.True(t, (&MovementFilter{ShelterID: &shelterID, MovementType: &dispense}).Matches(m))
	assert.False(t, (&MovementFilter{ShelterID: &other}).Matches(m))
	assert.False(t, (&MovementFilter{MovementType: &receive}).Matches(m))
	assert.True(t, (&MovementFilter{From: &at, To: &at}).Matches(m))
	later := at.Add(time.Second)
	assert.False(t, (&MovementFilter{From: &later}).Matches(m))
	assert.False(t, (&MovementFilter{ReferenceID: "DSP-2"}).Matches(m))
}

func TestMovementRecord_Valid(t *testing.T) {
	m := &MovementRecord{
		StockItemID:  uuid.New(),
		MovementType: MovementReceive,
		Quantity:     1,
		From:         Location{Kind: LocationExternal},
		To:           Location{Kind: LocationProvincial},
	}
	assert.True(t, m.Valid())

	m.Quantity = 0
	assert.False(t, m.Valid())
	m.Quantity = 1
	m.MovementType = "loss"
	assert.False(t, m.Valid())
}

func TestDeliveryStatus_CanAdvanceTo(t *testing.T) {
	assert.True(t, DeliveryPending.CanAdvanceTo(DeliveryInTransit))
	assert.True(t, DeliveryPending.CanAdvanceTo(DeliveryDelivered))
	assert.True(t, DeliveryInTransit.CanAdvanceTo(DeliveryDelivered))
	assert.False(t, DeliveryDelivered.CanAdvanceTo(DeliveryInTransit))
	assert.False(t, DeliveryInTransit.CanAdvanceTo(DeliveryInTransit))
	assert.False(t, DeliveryPending.CanAdvanceTo("lost"))
}

func TestStockRequest_CloneAndFilter(t *testing.T) {
	reviewer := uuid.New()
	req := &StockRequest{
		ShelterID:  uuid.New(),
		Status:     RequestPending,
		Items:      []RequestItem{{ItemName: "Water", RequestedQuantity: 5}},
		ReviewedBy: &reviewer,
	}

	c := req.Clone()
	c.Items[0].RequestedQuantity = 50
	*c.ReviewedBy = uuid.New()
	assert.Equal(t, 5, req.Items[0].RequestedQuantity)
	assert.Equal(t, reviewer, *req.ReviewedBy)
	assert.True(t, req.IsPending())

	approved := RequestApproved
	assert.True(t, (&RequestFilter{ShelterID: &req.ShelterID}).Matches(req))
	assert.False(t, (&RequestFilter{Status: &approved}).Matches(req))
}

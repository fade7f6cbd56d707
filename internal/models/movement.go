package models

import (
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementReceive  MovementType = "receive"
	MovementTransfer MovementType = "transfer"
	MovementDispense MovementType = "dispense"
	MovementAdjust   MovementType = "adjust"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementReceive, MovementTransfer, MovementDispense, MovementAdjust:
		return true
	}
	return false
}

type LocationKind string

const (
	LocationProvincial  LocationKind = "provincial"
	LocationShelter     LocationKind = "shelter"
	LocationExternal    LocationKind = "external"
	LocationBeneficiary LocationKind = "beneficiary"
	LocationAdjustment  LocationKind = "adjustment"
)

// Location tags one end of a movement.
type Location struct {
	Kind        LocationKind `json:"kind"`
	ShelterID   *uuid.UUID   `json:"shelter_id,omitempty"`
	DisplayName string       `json:"display_name"`
}

func (l Location) Valid() bool {
	switch l.Kind {
	case LocationShelter:
		return l.ShelterID != nil
	case LocationProvincial, LocationExternal, LocationBeneficiary, LocationAdjustment:
		return l.ShelterID == nil
	}
	return false
}

// SideLocation tags a stock side as a movement location.
func SideLocation(side StockSide, displayName string) Location {
	if side.IsProvincial() {
		if displayName == "" {
			displayName = "Provincial stock"
		}
		return Location{Kind: LocationProvincial, DisplayName: displayName}
	}
	id := *side.ShelterID
	return Location{Kind: LocationShelter, ShelterID: &id, DisplayName: displayName}
}

type QuantitySnapshot struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// MovementRecord is an immutable ledger entry for one quantity-changing event.
// Snapshot covers the affected side: the destination for receive, the source for
// dispense and transfer, the adjusted side for adjust. CounterSnapshot is set only
// on transfers and covers the destination side.
type MovementRecord struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	StockItemID     uuid.UUID         `json:"stock_item_id" db:"stock_item_id"`
	ItemName        string            `json:"item_name" db:"item_name"`
	MovementType    MovementType      `json:"movement_type" db:"movement_type"`
	Quantity        int               `json:"quantity" db:"quantity"`
	From            Location          `json:"from"`
	To              Location          `json:"to"`
	PerformedBy     uuid.UUID         `json:"performed_by" db:"performed_by"`
	PerformedAt     time.Time         `json:"performed_at" db:"performed_at"`
	ReferenceID     string            `json:"reference_id" db:"reference_id"`
	Snapshot        QuantitySnapshot  `json:"snapshot"`
	CounterSnapshot *QuantitySnapshot `json:"counter_snapshot,omitempty"`
	Notes           string            `json:"notes,omitempty" db:"notes"`
}

// Valid reports whether the record is well-formed for appending.
func (m *MovementRecord) Valid() bool {
	return m.Quantity > 0 && m.MovementType.Valid() && m.From.Valid() && m.To.Valid() && m.StockItemID != uuid.Nil
}

// TouchesShelter reports whether either end of the movement is the given shelter.
func (m *MovementRecord) TouchesShelter(id uuid.UUID) bool {
	return (m.From.ShelterID != nil && *m.From.ShelterID == id) || (m.To.ShelterID != nil && *m.To.ShelterID == id)
}

// MovementFilter holds search criteria for movement history
type MovementFilter struct {
	StockItemID  *uuid.UUID    `json:"stock_item_id,omitempty"`
	ShelterID    *uuid.UUID    `json:"shelter_id,omitempty"`
	MovementType *MovementType `json:"movement_type,omitempty"`
	From         *time.Time    `json:"from,omitempty"`
	To           *time.Time    `json:"to,omitempty"`
	ReferenceID  string        `json:"reference_id,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	Offset       int           `json:"offset,omitempty"`
}

// Matches applies the filter to a single record. Date bounds are inclusive.
func (f *MovementFilter) Matches(m *MovementRecord) bool {
	if f == nil {
		return true
	}
	if f.StockItemID != nil && m.StockItemID != *f.StockItemID {
		return false
	}
	if f.ShelterID != nil && !m.TouchesShelter(*f.ShelterID) {
		return false
	}
	if f.MovementType != nil && m.MovementType != *f.MovementType {
		return false
	}
	if f.From != nil && m.PerformedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.PerformedAt.After(*f.To) {
		return false
	}
	if f.ReferenceID != "" && m.ReferenceID != f.ReferenceID {
		return false
	}
	return true
}

// MovementTotals sums the ledger for one item by flow direction.
type MovementTotals struct {
	Received  int `json:"received"`
	Dispensed int `json:"dispensed"`
	AdjustIn  int `json:"adjust_in"`
	AdjustOut int `json:"adjust_out"`
}

// Net is the total quantity the ledger implies for the item.
func (t MovementTotals) Net() int {
	return t.Received - t.Dispensed + t.AdjustIn - t.AdjustOut
}

// Add accumulates one movement into the totals.
func (t *MovementTotals) Add(m *MovementRecord) {
	switch m.MovementType {
	case MovementReceive:
		t.Received += m.Quantity
	case MovementDispense:
		t.Dispensed += m.Quantity
	case MovementAdjust:
		if m.From.Kind == LocationAdjustment {
			t.AdjustIn += m.Quantity
		} else {
			t.AdjustOut += m.Quantity
		}
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type StockCategory string

const (
	CategoryFood     StockCategory = "food"
	CategoryMedicine StockCategory = "medicine"
	CategoryClothing StockCategory = "clothing"
	CategoryOther    StockCategory = "other"
)

var StockCategories = []StockCategory{CategoryFood, CategoryMedicine, CategoryClothing, CategoryOther}

func (c StockCategory) Valid() bool {
	switch c {
	case CategoryFood, CategoryMedicine, CategoryClothing, CategoryOther:
		return true
	}
	return false
}

type StockStatus string

const (
	StatusOutOfStock StockStatus = "out_of_stock"
	StatusCritical   StockStatus = "critical"
	StatusLow        StockStatus = "low"
	StatusSufficient StockStatus = "sufficient"
)

// ShelterStock is the quantity of one item held at one shelter.
type ShelterStock struct {
	Quantity    int       `json:"quantity"`
	LastUpdated time.Time `json:"last_updated"`
}

// StockRecord is the per-item ledger balance across the provincial pool and shelters.
type StockRecord struct {
	ID                 uuid.UUID                  `json:"id" db:"id"`
	ItemName           string                     `json:"item_name" db:"item_name"`
	Category           StockCategory              `json:"category" db:"category"`
	Unit               string                     `json:"unit" db:"unit"`
	ProvincialQuantity int                        `json:"provincial_quantity" db:"provincial_quantity"`
	ShelterQuantities  map[uuid.UUID]ShelterStock `json:"shelter_quantities"`
	TotalQuantity      int                        `json:"total_quantity" db:"total_quantity"`
	TotalReceived      int                        `json:"total_received" db:"total_received"`
	TotalDispensed     int                        `json:"total_dispensed" db:"total_dispensed"`
	MinStockLevel      int                        `json:"min_stock_level" db:"min_stock_level"`
	CriticalLevel      int                        `json:"critical_level" db:"critical_level"`
	IsActive           bool                       `json:"is_active" db:"is_active"`
	Version            int                        `json:"version" db:"version"`
	CreatedAt          time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at" db:"updated_at"`
}

// RecomputeTotal resets TotalQuantity from the provincial pool and shelter entries.
func (s *StockRecord) RecomputeTotal() {
	total := s.ProvincialQuantity
	for _, entry := range s.ShelterQuantities {
		total += entry.Quantity
	}
	s.TotalQuantity = total
}

// Status derives the stock status from the current total and thresholds.
func (s *StockRecord) Status() StockStatus {
	return StatusFor(s.TotalQuantity, s.MinStockLevel, s.CriticalLevel)
}

func StatusFor(total, minStockLevel, criticalLevel int) StockStatus {
	switch {
	case total == 0:
		return StatusOutOfStock
	case total <= criticalLevel:
		return StatusCritical
	case total <= minStockLevel:
		return StatusLow
	default:
		return StatusSufficient
	}
}

// QuantityAt returns the quantity held at side and whether the side has an entry.
// The provincial pool always has an entry.
func (s *StockRecord) QuantityAt(side StockSide) (int, bool) {
	if side.IsProvincial() {
		return s.ProvincialQuantity, true
	}
	entry, ok := s.ShelterQuantities[*side.ShelterID]
	return entry.Quantity, ok
}

// SetQuantityAt writes qty to side, creating the shelter entry when missing.
func (s *StockRecord) SetQuantityAt(side StockSide, qty int, now time.Time) {
	if side.IsProvincial() {
		s.ProvincialQuantity = qty
		return
	}
	if s.ShelterQuantities == nil {
		s.ShelterQuantities = make(map[uuid.UUID]ShelterStock)
	}
	s.ShelterQuantities[*side.ShelterID] = ShelterStock{Quantity: qty, LastUpdated: now}
}

func (s *StockRecord) Clone() *StockRecord {
	c := *s
	c.ShelterQuantities = make(map[uuid.UUID]ShelterStock, len(s.ShelterQuantities))
	for id, entry := range s.ShelterQuantities {
		c.ShelterQuantities[id] = entry
	}
	return &c
}

// StockSide is either the provincial pool (nil ShelterID) or a shelter pool.
type StockSide struct {
	ShelterID *uuid.UUID `json:"shelter_id,omitempty"`
}

func ProvincialSide() StockSide {
	return StockSide{}
}

func ShelterSide(id uuid.UUID) StockSide {
	return StockSide{ShelterID: &id}
}

func (s StockSide) IsProvincial() bool {
	return s.ShelterID == nil
}

func (s StockSide) Equal(other StockSide) bool {
	if s.IsProvincial() || other.IsProvincial() {
		return s.IsProvincial() == other.IsProvincial()
	}
	return *s.ShelterID == *other.ShelterID
}

func (s StockSide) String() string {
	if s.IsProvincial() {
		return "provincial"
	}
	return "shelter:" + s.ShelterID.String()
}

// StockFilter holds list criteria for stock records
type StockFilter struct {
	Query     string         `json:"query,omitempty"`
	Category  *StockCategory `json:"category,omitempty"`
	Status    *StockStatus   `json:"status,omitempty"`
	ShelterID *uuid.UUID     `json:"shelter_id,omitempty"`
	Active    *bool          `json:"active,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Offset    int            `json:"offset,omitempty"`
}

// StockView is a stock record projected for a particular caller.
type StockView struct {
	ID                 uuid.UUID                  `json:"id"`
	ItemName           string                     `json:"item_name"`
	Category           StockCategory              `json:"category"`
	Unit               string                     `json:"unit"`
	TotalQuantity      int                        `json:"total_quantity"`
	Status             StockStatus                `json:"status"`
	ProvincialQuantity *int                       `json:"provincial_quantity,omitempty"`
	ShelterQuantities  map[uuid.UUID]ShelterStock `json:"shelter_quantities,omitempty"`
	TotalReceived      *int                       `json:"total_received,omitempty"`
	TotalDispensed     *int                       `json:"total_dispensed,omitempty"`
	MinStockLevel      *int                       `json:"min_stock_level,omitempty"`
	CriticalLevel      *int                       `json:"critical_level,omitempty"`
	IsActive           *bool                      `json:"is_active,omitempty"`
	UpdatedAt          *time.Time                 `json:"updated_at,omitempty"`
}

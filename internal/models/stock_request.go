package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestPartial  RequestStatus = "partial"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestPartial:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
)

var deliveryOrder = map[DeliveryStatus]int{
	DeliveryPending:   0,
	DeliveryInTransit: 1,
	DeliveryDelivered: 2,
}

func (s DeliveryStatus) Valid() bool {
	_, ok := deliveryOrder[s]
	return ok
}

// CanAdvanceTo reports whether next is strictly later in the delivery sequence.
func (s DeliveryStatus) CanAdvanceTo(next DeliveryStatus) bool {
	cur, ok := deliveryOrder[s]
	nxt, ok2 := deliveryOrder[next]
	return ok && ok2 && nxt > cur
}

type RequestItem struct {
	StockItemID       uuid.UUID `json:"stock_item_id"`
	ItemName          string    `json:"item_name"`
	RequestedQuantity int       `json:"requested_quantity"`
	Unit              string    `json:"unit"`
	Reason            string    `json:"reason,omitempty"`
}

type ApprovedItem struct {
	StockItemID      uuid.UUID `json:"stock_item_id"`
	ApprovedQuantity int       `json:"approved_quantity"`
}

// StockRequest is a shelter's ask for provincial stock.
type StockRequest struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	RequestNumber  string         `json:"request_number" db:"request_number"`
	ShelterID      uuid.UUID      `json:"shelter_id" db:"shelter_id"`
	RequestedBy    uuid.UUID      `json:"requested_by" db:"requested_by"`
	RequestedAt    time.Time      `json:"requested_at" db:"requested_at"`
	Items          []RequestItem  `json:"items" db:"items"`
	Status         RequestStatus  `json:"status" db:"status"`
	ReviewedBy     *uuid.UUID     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt     *time.Time     `json:"reviewed_at,omitempty" db:"reviewed_at"`
	AdminNotes     string         `json:"admin_notes,omitempty" db:"admin_notes"`
	ApprovedItems  []ApprovedItem `json:"approved_items,omitempty" db:"approved_items"`
	DeliveryStatus DeliveryStatus `json:"delivery_status" db:"delivery_status"`
	Version        int            `json:"version" db:"version"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

func (r *StockRequest) IsPending() bool {
	return r.Status == RequestPending
}

func (r *StockRequest) Clone() *StockRequest {
	c := *r
	c.Items = append([]RequestItem(nil), r.Items...)
	c.ApprovedItems = append([]ApprovedItem(nil), r.ApprovedItems...)
	if r.ReviewedBy != nil {
		id := *r.ReviewedBy
		c.ReviewedBy = &id
	}
	if r.ReviewedAt != nil {
		at := *r.ReviewedAt
		c.ReviewedAt = &at
	}
	return &c
}

type RequestFilter struct {
	ShelterID *uuid.UUID     `json:"shelter_id,omitempty"`
	Status    *RequestStatus `json:"status,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Offset    int            `json:"offset,omitempty"`
}

func (f *RequestFilter) Matches(r *StockRequest) bool {
	if f == nil {
		return true
	}
	if f.ShelterID != nil && r.ShelterID != *f.ShelterID {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	return true
}

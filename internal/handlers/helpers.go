package handlers

import (
	"reliefledger/internal/models"

	"github.com/google/uuid"
)

// ListParams represents the common pagination query parameters
type ListParams struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

func (p *ListParams) normalize() {
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// sideOf maps an optional shelter id onto a stock side; nil is the provincial pool.
func sideOf(shelterID *uuid.UUID) models.StockSide {
	if shelterID == nil {
		return models.ProvincialSide()
	}
	return models.ShelterSide(*shelterID)
}

package services

import (
	"reliefledger/internal/models"

	"github.com/google/uuid"
)

// ProjectStock trims rec to the fields caller may see. Admins see everything,
// staff see the provincial pool, their own shelter and totals, and viewers see
// the summary only.
func ProjectStock(caller models.Caller, rec *models.StockRecord) *models.StockView {
	view := &models.StockView{
		ID:            rec.ID,
		ItemName:      rec.ItemName,
		Category:      rec.Category,
		Unit:          rec.Unit,
		TotalQuantity: rec.TotalQuantity,
		Status:        rec.Status(),
	}

	switch caller.Role {
	case models.RoleAdmin:
		provincial := rec.ProvincialQuantity
		received, dispensed := rec.TotalReceived, rec.TotalDispensed
		minLevel, critical := rec.MinStockLevel, rec.CriticalLevel
		active := rec.IsActive
		updated := rec.UpdatedAt
		view.ProvincialQuantity = &provincial
		view.ShelterQuantities = make(map[uuid.UUID]models.ShelterStock, len(rec.ShelterQuantities))
		for id, entry := range rec.ShelterQuantities {
			view.ShelterQuantities[id] = entry
		}
		view.TotalReceived = &received
		view.TotalDispensed = &dispensed
		view.MinStockLevel = &minLevel
		view.CriticalLevel = &critical
		view.IsActive = &active
		view.UpdatedAt = &updated
	case models.RoleStaff:
		provincial := rec.ProvincialQuantity
		received, dispensed := rec.TotalReceived, rec.TotalDispensed
		minLevel := rec.MinStockLevel
		view.ProvincialQuantity = &provincial
		view.TotalReceived = &received
		view.TotalDispensed = &dispensed
		view.MinStockLevel = &minLevel
		if caller.AssignedShelterID != nil {
			if entry, ok := rec.ShelterQuantities[*caller.AssignedShelterID]; ok {
				view.ShelterQuantities = map[uuid.UUID]models.ShelterStock{*caller.AssignedShelterID: entry}
			}
		}
	}
	return view
}

func projectAll(caller models.Caller, recs []*models.StockRecord) []*models.StockView {
	views := make([]*models.StockView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, ProjectStock(caller, rec))
	}
	return views
}

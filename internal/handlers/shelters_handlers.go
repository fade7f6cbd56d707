package handlers

import (
	"net/http"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/services"

	"github.com/labstack/echo/v4"
)

// ShelterHandlers handles shelter-related HTTP requests
type ShelterHandlers struct {
	shelterService services.ShelterService
}

// NewShelterHandlers creates a new shelter handlers instance
func NewShelterHandlers(shelterService services.ShelterService) *ShelterHandlers {
	return &ShelterHandlers{
		shelterService: shelterService,
	}
}

// ListShelters handles GET /shelters
func (h *ShelterHandlers) ListShelters(c echo.Context) error {
	ctx := c.Request().Context()

	var req ListParams
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	req.normalize()

	shelters, err := h.shelterService.List(ctx, req.Limit, req.Offset)
	if err != nil {
		return common.SendLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"shelters": shelters,
		"limit":    req.Limit,
		"offset":   req.Offset,
	})
}

// ShelterRequest represents the shelter create and update payload
type ShelterRequest struct {
	Name         string  `json:"name"`
	Address      *string `json:"address"`
	Capacity     *int    `json:"capacity"`
	ContactPhone *string `json:"contact_phone"`
	IsActive     *bool   `json:"is_active"`
}

// CreateShelter handles POST /shelters
func (h *ShelterHandlers) CreateShelter(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req ShelterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	shelter := &models.Shelter{
		Name:         req.Name,
		Address:      req.Address,
		Capacity:     req.Capacity,
		ContactPhone: req.ContactPhone,
	}
	if err := h.shelterService.Create(ctx, caller, shelter); err != nil {
		return common.SendLedgerError(c, err)
	}

	return c.JSON(http.StatusCreated, shelter)
}

// GetShelter handles GET /shelters/:id
func (h *ShelterHandlers) GetShelter(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	shelter, err := h.shelterService.GetByID(ctx, id)
	if err != nil {
		return common.SendLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, shelter)
}

// UpdateShelter handles PUT /shelters/:id
func (h *ShelterHandlers) UpdateShelter(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req ShelterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	shelter, err := h.shelterService.GetByID(ctx, id)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	shelter.Name = req.Name
	shelter.Address = req.Address
	shelter.Capacity = req.Capacity
	shelter.ContactPhone = req.ContactPhone
	if req.IsActive != nil {
		shelter.IsActive = *req.IsActive
	}

	if err := h.shelterService.Update(ctx, caller, shelter); err != nil {
		return common.SendLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, shelter)
}

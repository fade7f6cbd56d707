package handlers

import (
	"net/http"
	"strings"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// StockHandlers serves stock records and the four ledger mutations
type StockHandlers struct {
	ledgerService services.LedgerService
	queryService  services.StockQueryService
}

func NewStockHandlers(ledgerService services.LedgerService, queryService services.StockQueryService) *StockHandlers {
	return &StockHandlers{
		ledgerService: ledgerService,
		queryService:  queryService,
	}
}

type ListStockRequest struct {
	ListParams
	Query     string `query:"q"`
	Category  string `query:"category"`
	Status    string `query:"status"`
	ShelterID string `query:"shelter_id"`
	Active    string `query:"active"`
}

// ListStock handles GET /stock
func (h *StockHandlers) ListStock(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req ListStockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	req.normalize()

	filter := models.StockFilter{
		Query:  req.Query,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if req.Category != "" {
		category := models.StockCategory(strings.ToLower(req.Category))
		if !category.Valid() {
			return common.SendValidationError(c, "category", "unknown category")
		}
		filter.Category = &category
	}
	if req.Status != "" {
		status := models.StockStatus(strings.ToLower(req.Status))
		filter.Status = &status
	}
	shelterID, err := common.ValidateOptionalUUID(req.ShelterID, "shelter_id")
	if err != nil {
		return common.SendValidationError(c, "shelter_id", err.Error())
	}
	filter.ShelterID = shelterID
	switch strings.ToLower(req.Active) {
	case "":
	case "true":
		active := true
		filter.Active = &active
	case "false":
		active := false
		filter.Active = &active
	default:
		return common.SendValidationError(c, "active", "must be true or false")
	}

	stock, err := h.queryService.ListStock(ctx, caller, filter)
	if err != nil {
		return common.SendLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"stock":  stock,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}

// GetStock handles GET /stock/:id
func (h *StockHandlers) GetStock(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	view, err := h.queryService.GetStock(ctx, caller, id)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// CreateStock handles POST /stock
func (h *StockHandlers) CreateStock(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.CreateItemInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	rec, err := h.ledgerService.CreateItem(ctx, caller, req)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusCreated, services.ProjectStock(caller, rec))
}

type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetStockActive handles PATCH /stock/:id/active
func (h *StockHandlers) SetStockActive(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := h.ledgerService.SetItemActive(ctx, caller, id, req.IsActive); err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReceiveRequest books inbound stock. A missing shelter_id means the provincial pool.
type ReceiveRequest struct {
	ShelterID *uuid.UUID `json:"shelter_id"`
	Quantity  int        `json:"quantity"`
	Source    string     `json:"source"`
	Notes     string     `json:"notes"`
}

// Receive handles POST /stock/:id/receive
func (h *StockHandlers) Receive(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req ReceiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	result, err := h.ledgerService.Receive(ctx, caller, services.ReceiveInput{
		StockItemID: id,
		Destination: sideOf(req.ShelterID),
		Quantity:    req.Quantity,
		Source:      req.Source,
		Notes:       req.Notes,
	})
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stock":    services.ProjectStock(caller, result.Stock),
		"movement": result.Movement,
	})
}

type DispenseRequest struct {
	ShelterID uuid.UUID `json:"shelter_id"`
	Quantity  int       `json:"quantity"`
	Recipient string    `json:"recipient"`
	Notes     string    `json:"notes"`
}

// Dispense handles POST /stock/:id/dispense
func (h *StockHandlers) Dispense(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req DispenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.ShelterID == uuid.Nil {
		return common.SendValidationError(c, "shelter_id", "shelter_id is required")
	}

	result, err := h.ledgerService.Dispense(ctx, caller, services.DispenseInput{
		StockItemID: id,
		ShelterID:   req.ShelterID,
		Quantity:    req.Quantity,
		Recipient:   req.Recipient,
		Notes:       req.Notes,
	})
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stock":    services.ProjectStock(caller, result.Stock),
		"movement": result.Movement,
		"alert":    result.Alert,
	})
}

// TransferRequest moves stock between pools. A missing shelter id on either end
// means the provincial pool.
type TransferRequest struct {
	FromShelterID *uuid.UUID `json:"from_shelter_id"`
	ToShelterID   *uuid.UUID `json:"to_shelter_id"`
	Quantity      int        `json:"quantity"`
	Notes         string     `json:"notes"`
}

// Transfer handles POST /stock/:id/transfer
func (h *StockHandlers) Transfer(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	result, err := h.ledgerService.Transfer(ctx, caller, services.TransferInput{
		StockItemID: id,
		From:        sideOf(req.FromShelterID),
		To:          sideOf(req.ToShelterID),
		Quantity:    req.Quantity,
		Notes:       req.Notes,
	})
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stock":    services.ProjectStock(caller, result.Stock),
		"movement": result.Movement,
	})
}

type AdjustRequest struct {
	ShelterID   *uuid.UUID `json:"shelter_id"`
	NewQuantity *int       `json:"new_quantity"`
	Notes       string     `json:"notes"`
}

// Adjust handles POST /stock/:id/adjust
func (h *StockHandlers) Adjust(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req AdjustRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.NewQuantity == nil {
		return common.SendValidationError(c, "new_quantity", "new_quantity is required")
	}

	result, err := h.ledgerService.Adjust(ctx, caller, services.AdjustInput{
		StockItemID: id,
		Side:        sideOf(req.ShelterID),
		NewQuantity: *req.NewQuantity,
		Notes:       req.Notes,
	})
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stock":    services.ProjectStock(caller, result.Stock),
		"movement": result.Movement,
	})
}

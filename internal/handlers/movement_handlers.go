package handlers

import (
	"net/http"
	"strings"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/services"

	"github.com/labstack/echo/v4"
)

type MovementHandlers struct {
	queryService services.StockQueryService
}

func NewMovementHandlers(queryService services.StockQueryService) *MovementHandlers {
	return &MovementHandlers{queryService: queryService}
}

type ListMovementsRequest struct {
	ListParams
	StockItemID  string `query:"stock_item_id"`
	ShelterID    string `query:"shelter_id"`
	MovementType string `query:"type"`
	From         string `query:"from"`
	To           string `query:"to"`
	ReferenceID  string `query:"reference_id"`
}

// ListMovements handles GET /movements
func (h *MovementHandlers) ListMovements(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req ListMovementsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	req.normalize()

	filter := models.MovementFilter{
		ReferenceID: strings.TrimSpace(req.ReferenceID),
		Limit:       req.Limit,
		Offset:      req.Offset,
	}
	var err error
	if filter.StockItemID, err = common.ValidateOptionalUUID(req.StockItemID, "stock_item_id"); err != nil {
		return common.SendValidationError(c, "stock_item_id", err.Error())
	}
	if filter.ShelterID, err = common.ValidateOptionalUUID(req.ShelterID, "shelter_id"); err != nil {
		return common.SendValidationError(c, "shelter_id", err.Error())
	}
	if req.MovementType != "" {
		mt := models.MovementType(strings.ToLower(req.MovementType))
		if !mt.Valid() {
			return common.SendValidationError(c, "type", "unknown movement type")
		}
		filter.MovementType = &mt
	}
	if filter.From, err = common.ValidateDateFormat(req.From, "from"); err != nil {
		return common.SendValidationError(c, "from", err.Error())
	}
	if filter.To, err = common.ValidateDateFormat(req.To, "to"); err != nil {
		return common.SendValidationError(c, "to", err.Error())
	}

	movements, err := h.queryService.ListMovements(ctx, caller, filter)
	if err != nil {
		return common.SendLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"limit":     req.Limit,
		"offset":    req.Offset,
	})
}

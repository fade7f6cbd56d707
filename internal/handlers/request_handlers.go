package handlers

import (
	"net/http"
	"strings"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/services"

	"github.com/labstack/echo/v4"
)

// RequestHandlers serves the shelter stock request workflow
type RequestHandlers struct {
	requestService services.StockRequestService
}

func NewRequestHandlers(requestService services.StockRequestService) *RequestHandlers {
	return &RequestHandlers{requestService: requestService}
}

// CreateRequest handles POST /requests
func (h *RequestHandlers) CreateRequest(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.CreateRequestInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	result, err := h.requestService.Create(ctx, caller, req)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	lang := common.MatchLanguage(c.Request().Header.Get("Accept-Language"))
	for i := range result.Warnings {
		w := &result.Warnings[i]
		w.Message = common.Translate(lang, common.MsgRequestStockWarning, w.Requested, w.ItemName, w.Available)
	}
	return c.JSON(http.StatusCreated, result)
}

type ListRequestsRequest struct {
	ListParams
	ShelterID string `query:"shelter_id"`
	Status    string `query:"status"`
}

// ListRequests handles GET /requests
func (h *RequestHandlers) ListRequests(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req ListRequestsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	req.normalize()

	filter := models.RequestFilter{Limit: req.Limit, Offset: req.Offset}
	shelterID, err := common.ValidateOptionalUUID(req.ShelterID, "shelter_id")
	if err != nil {
		return common.SendValidationError(c, "shelter_id", err.Error())
	}
	filter.ShelterID = shelterID
	if req.Status != "" {
		status := models.RequestStatus(strings.ToLower(req.Status))
		if !status.Valid() {
			return common.SendValidationError(c, "status", "unknown request status")
		}
		filter.Status = &status
	}

	requests, err := h.requestService.List(ctx, caller, filter)
	if err != nil {
		return common.SendLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"limit":    req.Limit,
		"offset":   req.Offset,
	})
}

// GetRequest handles GET /requests/:id
func (h *RequestHandlers) GetRequest(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	req, err := h.requestService.Get(ctx, caller, id)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// ApproveRequest handles POST /requests/:id/approve
func (h *RequestHandlers) ApproveRequest(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req services.ApproveInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	result, err := h.requestService.Approve(ctx, caller, id, req)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type RejectRequest struct {
	AdminNotes string `json:"admin_notes"`
}

// RejectRequest handles POST /requests/:id/reject
func (h *RequestHandlers) RejectRequest(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	result, err := h.requestService.Reject(ctx, caller, id, req.AdminNotes)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type DeliveryRequest struct {
	DeliveryStatus models.DeliveryStatus `json:"delivery_status"`
}

// UpdateDelivery handles PATCH /requests/:id/delivery
func (h *RequestHandlers) UpdateDelivery(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req DeliveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	result, err := h.requestService.UpdateDeliveryStatus(ctx, caller, id, req.DeliveryStatus)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

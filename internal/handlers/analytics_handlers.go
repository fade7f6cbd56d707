package handlers

import (
	"net/http"
	"time"

	"reliefledger/internal/analytics"
	"reliefledger/internal/common"

	"github.com/labstack/echo/v4"
)

type AnalyticsHandlers struct {
	analyticsService *analytics.AnalyticsService
}

func NewAnalyticsHandlers(analyticsService *analytics.AnalyticsService) *AnalyticsHandlers {
	return &AnalyticsHandlers{analyticsService: analyticsService}
}

// Dashboard handles GET /analytics/dashboard
func (h *AnalyticsHandlers) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	dash, err := h.analyticsService.Dashboard(ctx, caller)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, dash)
}

// Categories handles GET /analytics/categories
func (h *AnalyticsHandlers) Categories(c echo.Context) error {
	totals, err := h.analyticsService.CategoryTotals(c.Request().Context())
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"categories": totals})
}

// Alerts handles GET /analytics/alerts
func (h *AnalyticsHandlers) Alerts(c echo.Context) error {
	ctx := c.Request().Context()
	caller, ok := common.GetCallerFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	alerts, err := h.analyticsService.Alerts(ctx, caller)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"alerts": alerts})
}

type TurnoverRequest struct {
	From        string `query:"from"`
	To          string `query:"to"`
	StockItemID string `query:"stock_item_id"`
}

// Turnover handles GET /analytics/turnover. The period defaults to the last 30 days.
func (h *AnalyticsHandlers) Turnover(c echo.Context) error {
	var req TurnoverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	to := time.Now().UTC()
	if t, err := common.ValidateDateFormat(req.To, "to"); err != nil {
		return common.SendValidationError(c, "to", err.Error())
	} else if t != nil {
		to = *t
	}
	from := to.AddDate(0, 0, -30)
	if f, err := common.ValidateDateFormat(req.From, "from"); err != nil {
		return common.SendValidationError(c, "from", err.Error())
	} else if f != nil {
		from = *f
	}
	if !from.Before(to) {
		return common.SendValidationError(c, "from", "from must be before to")
	}
	itemID, err := common.ValidateOptionalUUID(req.StockItemID, "stock_item_id")
	if err != nil {
		return common.SendValidationError(c, "stock_item_id", err.Error())
	}

	reports, err := h.analyticsService.Turnover(c.Request().Context(), from, to, itemID)
	if err != nil {
		return common.SendLedgerError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"from":     from,
		"to":       to,
		"turnover": reports,
	})
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"reliefledger/internal/common"
	"reliefledger/internal/jobs"
	"reliefledger/internal/jobs/background"
	"reliefledger/internal/services"

	"github.com/labstack/echo/v4"
)

const exportLinkExpiry = 15 * time.Minute

type JobHandlers struct {
	scheduler *background.JobScheduler
	exporter  *jobs.MovementExporter
	storage   services.ReportStorage
}

// NewJobHandlers wires job status and on-demand exports. scheduler and storage may be nil.
func NewJobHandlers(scheduler *background.JobScheduler, exporter *jobs.MovementExporter, storage services.ReportStorage) *JobHandlers {
	return &JobHandlers{
		scheduler: scheduler,
		exporter:  exporter,
		storage:   storage,
	}
}

// GetJobStatus handles GET /jobs
func (h *JobHandlers) GetJobStatus(c echo.Context) error {
	if h.scheduler == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"total_jobs": 0,
			"jobs":       []background.JobInfo{},
		})
	}
	return c.JSON(http.StatusOK, h.scheduler.GetJobStatus())
}

type ExportMovementsRequest struct {
	From string `query:"from"`
	To   string `query:"to"`
}

// ExportMovements handles GET /exports/movements. It uploads a CSV of the
// requested period (default last 24 hours) and returns a presigned link.
func (h *JobHandlers) ExportMovements(c echo.Context) error {
	ctx := c.Request().Context()

	var req ExportMovementsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	to := time.Now().UTC()
	if t, err := common.ValidateDateFormat(req.To, "to"); err != nil {
		return common.SendValidationError(c, "to", err.Error())
	} else if t != nil {
		to = *t
	}
	from := to.Add(-24 * time.Hour)
	if f, err := common.ValidateDateFormat(req.From, "from"); err != nil {
		return common.SendValidationError(c, "from", err.Error())
	} else if f != nil {
		from = *f
	}

	result, err := h.exporter.Export(ctx, from, to)
	if errors.Is(err, jobs.ErrExportDisabled) {
		return c.JSON(http.StatusServiceUnavailable, common.CreateErrorResponse("EXPORT_DISABLED", err.Error(), nil))
	}
	if err != nil {
		return common.SendLedgerError(c, err)
	}

	url, err := h.storage.PresignedURL(ctx, result.ObjectName, exportLinkExpiry)
	if err != nil {
		return common.SendLedgerError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"export":     result,
		"url":        url,
		"expires_in": exportLinkExpiry.String(),
	})
}

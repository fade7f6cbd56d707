package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"

	"github.com/jung-kurt/gofpdf"
	"github.com/labstack/echo/v4"
)

type ReportHandlers struct {
	stockRepo repositories.StockRepository
}

func NewReportHandlers(stockRepo repositories.StockRepository) *ReportHandlers {
	return &ReportHandlers{stockRepo: stockRepo}
}

// StockReportPDF handles GET /reports/stock.pdf
func (h *ReportHandlers) StockReportPDF(c echo.Context) error {
	ctx := c.Request().Context()

	active := true
	recs, err := repositories.ListAllStock(ctx, h.stockRepo, models.StockFilter{Active: &active})
	if err != nil {
		return common.SendLedgerError(c, err)
	}

	generatedAt := time.Now().UTC()
	data, err := generateStockReportPDF(recs, generatedAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate report")
	}

	filename := fmt.Sprintf("stock-report-%s.pdf", generatedAt.Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "application/pdf", data)
}

var stockReportColumns = []struct {
	title string
	width float64
	align string
}{
	{"Item", 58, "L"},
	{"Category", 24, "L"},
	{"Unit", 16, "L"},
	{"Provincial", 20, "R"},
	{"Shelters", 18, "R"},
	{"Total", 18, "R"},
	{"Status", 26, "C"},
}

// generateStockReportPDF renders one row per record plus a status summary.
func generateStockReportPDF(recs []*models.StockRecord, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(33, 37, 41)
	pdf.Cell(0, 10, "Relief Stock Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s UTC", generatedAt.Format("02-Jan-2006 15:04")))
	pdf.Ln(10)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(240, 240, 240)
		for _, col := range stockReportColumns {
			pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	counts := make(map[models.StockStatus]int)
	for _, rec := range recs {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		status := rec.Status()
		counts[status]++

		sheltered := rec.TotalQuantity - rec.ProvincialQuantity
		cells := []string{
			rec.ItemName,
			string(rec.Category),
			rec.Unit,
			fmt.Sprintf("%d", rec.ProvincialQuantity),
			fmt.Sprintf("%d", sheltered),
			fmt.Sprintf("%d", rec.TotalQuantity),
			strings.ReplaceAll(string(status), "_", " "),
		}
		if status == models.StatusOutOfStock || status == models.StatusCritical {
			pdf.SetTextColor(220, 20, 60)
		}
		for i, col := range stockReportColumns {
			pdf.CellFormat(col.width, 7, cells[i], "1", 0, col.align, false, 0, "")
		}
		pdf.SetTextColor(33, 37, 41)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Items: %d", len(recs)))
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 9)
	for _, status := range []models.StockStatus{models.StatusOutOfStock, models.StatusCritical, models.StatusLow, models.StatusSufficient} {
		pdf.Cell(0, 5, fmt.Sprintf("%s: %d", strings.ReplaceAll(string(status), "_", " "), counts[status]))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

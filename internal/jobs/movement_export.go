package jobs

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/internal/services"
	"reliefledger/pkg/logger"
)

// ErrExportDisabled is returned when no report storage is configured.
var ErrExportDisabled = errors.New("movement export is disabled: object storage not configured")

var movementCSVHeader = []string{
	"id", "performed_at", "reference_id", "movement_type", "stock_item_id", "item_name", "quantity",
	"from_kind", "from_shelter_id", "from_name", "to_kind", "to_shelter_id", "to_name",
	"before", "after", "counter_before", "counter_after", "performed_by", "notes",
}

type ExportResult struct {
	ObjectName string    `json:"object_name"`
	Movements  int       `json:"movements"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

type MovementExporter struct {
	movementRepo repositories.MovementRepository
	storage      services.ReportStorage
	log          *logger.Logger
	window       time.Duration
	now          func() time.Time
}

// NewMovementExporter writes movement CSVs to storage. A nil storage disables it.
func NewMovementExporter(movementRepo repositories.MovementRepository, storage services.ReportStorage, window time.Duration, log *logger.Logger) *MovementExporter {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &MovementExporter{
		movementRepo: movementRepo,
		storage:      storage,
		log:          log,
		window:       window,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (e *MovementExporter) Enabled() bool {
	return e.storage != nil
}

// Export uploads the movements performed in [from, to] oldest first.
func (e *MovementExporter) Export(ctx context.Context, from, to time.Time) (*ExportResult, error) {
	if !e.Enabled() {
		return nil, ErrExportDisabled
	}

	movements, err := repositories.ListAllMovements(ctx, e.movementRepo, models.MovementFilter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}

	data, err := encodeMovementsCSV(movements)
	if err != nil {
		return nil, err
	}

	objectName := services.MovementExportKey(e.now())
	if err := e.storage.Upload(ctx, objectName, "text/csv", bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, fmt.Errorf("upload %s: %w", objectName, err)
	}

	e.log.Info().Str("object", objectName).Int("movements", len(movements)).Msg("movement export uploaded")
	return &ExportResult{ObjectName: objectName, Movements: len(movements), From: from, To: to}, nil
}

// ExportPreviousWindow exports the window that ended now.
func (e *MovementExporter) ExportPreviousWindow(ctx context.Context) (*ExportResult, error) {
	to := e.now()
	return e.Export(ctx, to.Add(-e.window), to)
}

// ScheduledExport is the periodic export task.
func (e *MovementExporter) ScheduledExport(ctx context.Context) error {
	if !e.Enabled() {
		e.log.Debug().Msg("movement export skipped: no object storage")
		return nil
	}
	if _, err := e.ExportPreviousWindow(ctx); err != nil {
		e.log.Error().Err(err).Msg("movement export failed")
		return err
	}
	return nil
}

func encodeMovementsCSV(movements []*models.MovementRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(movementCSVHeader); err != nil {
		return nil, err
	}
	// Movements arrive newest first.
	for i := len(movements) - 1; i >= 0; i-- {
		if err := w.Write(movementRow(movements[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func movementRow(m *models.MovementRecord) []string {
	counterBefore, counterAfter := "", ""
	if m.CounterSnapshot != nil {
		counterBefore = strconv.Itoa(m.CounterSnapshot.Before)
		counterAfter = strconv.Itoa(m.CounterSnapshot.After)
	}
	return []string{
		m.ID.String(),
		m.PerformedAt.UTC().Format(time.RFC3339),
		m.ReferenceID,
		string(m.MovementType),
		m.StockItemID.String(),
		m.ItemName,
		strconv.Itoa(m.Quantity),
		string(m.From.Kind),
		locationShelter(m.From),
		m.From.DisplayName,
		string(m.To.Kind),
		locationShelter(m.To),
		m.To.DisplayName,
		strconv.Itoa(m.Snapshot.Before),
		strconv.Itoa(m.Snapshot.After),
		counterBefore,
		counterAfter,
		m.PerformedBy.String(),
		m.Notes,
	}
}

func locationShelter(l models.Location) string {
	if l.ShelterID == nil {
		return ""
	}
	return l.ShelterID.String()
}

package repositories

import (
	"context"
	"fmt"

	"reliefledger/internal/models"

	"github.com/google/uuid"
)

type movementRepo struct {
	db Querier
}

// NewMovementRepository returns the append-only ledger repository. It exposes no
// update or delete.
func NewMovementRepository(db Querier) MovementRepository {
	return &movementRepo{db: db}
}

func (r *movementRepo) Append(ctx context.Context, m *models.MovementRecord) error {
	if !m.Valid() {
		return ErrInvalidMovement
	}
	query := `
		INSERT INTO stock_movements (id, stock_item_id, item_name, movement_type, quantity,
			from_kind, from_shelter_id, from_name, to_kind, to_shelter_id, to_name,
			performed_by, performed_at, reference_id, snapshot_before, snapshot_after,
			counter_before, counter_after, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	var counterBefore, counterAfter *int
	if m.CounterSnapshot != nil {
		counterBefore = &m.CounterSnapshot.Before
		counterAfter = &m.CounterSnapshot.After
	}
	_, err := r.db.Exec(ctx, query, m.ID, m.StockItemID, m.ItemName, string(m.MovementType), m.Quantity,
		string(m.From.Kind), m.From.ShelterID, m.From.DisplayName, string(m.To.Kind), m.To.ShelterID, m.To.DisplayName,
		m.PerformedBy, m.PerformedAt, m.ReferenceID, m.Snapshot.Before, m.Snapshot.After,
		counterBefore, counterAfter, m.Notes)
	if err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func (r *movementRepo) Query(ctx context.Context, filter *models.MovementFilter) ([]*models.MovementRecord, error) {
	if filter == nil {
		filter = &models.MovementFilter{}
	}
	query := `
		SELECT id, stock_item_id, item_name, movement_type, quantity, from_kind, from_shelter_id, from_name,
			to_kind, to_shelter_id, to_name, performed_by, performed_at, reference_id, snapshot_before,
			snapshot_after, counter_before, counter_after, notes
		FROM stock_movements
		WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filter.StockItemID != nil {
		query += fmt.Sprintf(" AND stock_item_id = $%d", argCount)
		args = append(args, *filter.StockItemID)
		argCount++
	}
	if filter.ShelterID != nil {
		query += fmt.Sprintf(" AND (from_shelter_id = $%d OR to_shelter_id = $%d)", argCount, argCount)
		args = append(args, *filter.ShelterID)
		argCount++
	}
	if filter.MovementType != nil {
		query += fmt.Sprintf(" AND movement_type = $%d", argCount)
		args = append(args, string(*filter.MovementType))
		argCount++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND performed_at >= $%d", argCount)
		args = append(args, *filter.From)
		argCount++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND performed_at <= $%d", argCount)
		args = append(args, *filter.To)
		argCount++
	}
	if filter.ReferenceID != "" {
		query += fmt.Sprintf(" AND reference_id = $%d", argCount)
		args = append(args, filter.ReferenceID)
		argCount++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY performed_at DESC, id LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var movements []*models.MovementRecord
	for rows.Next() {
		m := &models.MovementRecord{}
		var movementType, fromKind, toKind string
		var counterBefore, counterAfter *int
		if err := rows.Scan(&m.ID, &m.StockItemID, &m.ItemName, &movementType, &m.Quantity,
			&fromKind, &m.From.ShelterID, &m.From.DisplayName, &toKind, &m.To.ShelterID, &m.To.DisplayName,
			&m.PerformedBy, &m.PerformedAt, &m.ReferenceID, &m.Snapshot.Before, &m.Snapshot.After,
			&counterBefore, &counterAfter, &m.Notes); err != nil {
			return nil, err
		}
		m.MovementType = models.MovementType(movementType)
		m.From.Kind = models.LocationKind(fromKind)
		m.To.Kind = models.LocationKind(toKind)
		if counterBefore != nil && counterAfter != nil {
			m.CounterSnapshot = &models.QuantitySnapshot{Before: *counterBefore, After: *counterAfter}
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *movementRepo) Totals(ctx context.Context, stockItemID uuid.UUID) (models.MovementTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE movement_type = 'receive'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE movement_type = 'dispense'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE movement_type = 'adjust' AND from_kind = 'adjustment'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE movement_type = 'adjust' AND to_kind = 'adjustment'), 0)
		FROM stock_movements
		WHERE stock_item_id = $1
	`
	var totals models.MovementTotals
	err := r.db.QueryRow(ctx, query, stockItemID).Scan(&totals.Received, &totals.Dispensed, &totals.AdjustIn, &totals.AdjustOut)
	if err != nil {
		return totals, fmt.Errorf("movement totals: %w", err)
	}
	return totals, nil
}

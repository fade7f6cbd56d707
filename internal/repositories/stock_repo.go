package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reliefledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const stockColumns = `id, item_name, category, unit, provincial_quantity, total_quantity, total_received, total_dispensed,
		min_stock_level, critical_level, is_active, version, created_at, updated_at`

const stockStatusExpr = `CASE WHEN total_quantity = 0 THEN 'out_of_stock'
		WHEN total_quantity <= critical_level THEN 'critical'
		WHEN total_quantity <= min_stock_level THEN 'low'
		ELSE 'sufficient' END`

type stockRepo struct {
	db Querier
}

func NewStockRepository(db Querier) StockRepository {
	return &stockRepo{db: db}
}

func (r *stockRepo) Create(ctx context.Context, rec *models.StockRecord) error {
	query := `
		INSERT INTO stock_records (id, item_name, category, unit, provincial_quantity, total_quantity, total_received,
			total_dispensed, min_stock_level, critical_level, is_active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query, rec.ID, rec.ItemName, string(rec.Category), rec.Unit, rec.ProvincialQuantity,
		rec.TotalQuantity, rec.TotalReceived, rec.TotalDispensed, rec.MinStockLevel, rec.CriticalLevel,
		rec.IsActive, rec.Version, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert stock record: %w", err)
	}
	return r.saveShelterQuantities(ctx, rec)
}

func (r *stockRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	return r.get(ctx, id, false)
}

func (r *stockRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	return r.get(ctx, id, true)
}

func (r *stockRepo) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rec, err := scanStock(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT shelter_id, quantity, last_updated FROM stock_shelter_quantities WHERE stock_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get shelter quantities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var shelterID uuid.UUID
		var entry models.ShelterStock
		if err := rows.Scan(&shelterID, &entry.Quantity, &entry.LastUpdated); err != nil {
			return nil, err
		}
		rec.ShelterQuantities[shelterID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *stockRepo) Update(ctx context.Context, rec *models.StockRecord) error {
	query := `
		UPDATE stock_records
		SET item_name = $1, category = $2, unit = $3, provincial_quantity = $4, total_quantity = $5,
			total_received = $6, total_dispensed = $7, min_stock_level = $8, critical_level = $9,
			is_active = $10, version = version + 1, updated_at = NOW()
		WHERE id = $11 AND version = $12
		RETURNING version, updated_at
	`
	err := r.db.QueryRow(ctx, query, rec.ItemName, string(rec.Category), rec.Unit, rec.ProvincialQuantity,
		rec.TotalQuantity, rec.TotalReceived, rec.TotalDispensed, rec.MinStockLevel, rec.CriticalLevel,
		rec.IsActive, rec.ID, rec.Version).Scan(&rec.Version, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("update stock record: %w", err)
	}
	return r.saveShelterQuantities(ctx, rec)
}

func (r *stockRepo) saveShelterQuantities(ctx context.Context, rec *models.StockRecord) error {
	query := `
		INSERT INTO stock_shelter_quantities (stock_id, shelter_id, quantity, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stock_id, shelter_id) DO UPDATE SET quantity = EXCLUDED.quantity, last_updated = EXCLUDED.last_updated
	`
	for shelterID, entry := range rec.ShelterQuantities {
		if _, err := r.db.Exec(ctx, query, rec.ID, shelterID, entry.Quantity, entry.LastUpdated); err != nil {
			return fmt.Errorf("save shelter quantity: %w", err)
		}
	}
	return nil
}

func (r *stockRepo) List(ctx context.Context, filter *models.StockFilter) ([]*models.StockRecord, error) {
	if filter == nil {
		filter = &models.StockFilter{}
	}
	query := `SELECT ` + stockColumns + ` FROM stock_records s WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if q := strings.TrimSpace(filter.Query); q != "" {
		query += fmt.Sprintf(" AND s.item_name ILIKE $%d", argCount)
		args = append(args, "%"+q+"%")
		argCount++
	}
	if filter.Category != nil {
		query += fmt.Sprintf(" AND s.category = $%d", argCount)
		args = append(args, string(*filter.Category))
		argCount++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND %s = $%d", stockStatusExpr, argCount)
		args = append(args, string(*filter.Status))
		argCount++
	}
	if filter.ShelterID != nil {
		query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM stock_shelter_quantities q WHERE q.stock_id = s.id AND q.shelter_id = $%d)", argCount)
		args = append(args, *filter.ShelterID)
		argCount++
	}
	if filter.Active != nil {
		query += fmt.Sprintf(" AND s.is_active = $%d", argCount)
		args = append(args, *filter.Active)
		argCount++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY s.item_name ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	var records []*models.StockRecord
	byID := make(map[uuid.UUID]*models.StockRecord)
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, rec)
		byID[rec.ID] = rec
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	qrows, err := r.db.Query(ctx, `SELECT stock_id, shelter_id, quantity, last_updated FROM stock_shelter_quantities WHERE stock_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list shelter quantities: %w", err)
	}
	defer qrows.Close()
	for qrows.Next() {
		var stockID, shelterID uuid.UUID
		var entry models.ShelterStock
		if err := qrows.Scan(&stockID, &shelterID, &entry.Quantity, &entry.LastUpdated); err != nil {
			return nil, err
		}
		if rec, ok := byID[stockID]; ok {
			rec.ShelterQuantities[shelterID] = entry
		}
	}
	return records, qrows.Err()
}

func (r *stockRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE stock_records SET is_active = $1, version = version + 1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("set stock active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanStock(row pgx.Row) (*models.StockRecord, error) {
	rec := &models.StockRecord{ShelterQuantities: make(map[uuid.UUID]models.ShelterStock)}
	var category string
	var createdAt, updatedAt time.Time
	err := row.Scan(&rec.ID, &rec.ItemName, &category, &rec.Unit, &rec.ProvincialQuantity, &rec.TotalQuantity,
		&rec.TotalReceived, &rec.TotalDispensed, &rec.MinStockLevel, &rec.CriticalLevel, &rec.IsActive,
		&rec.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.Category = models.StockCategory(category)
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt
	return rec, nil
}

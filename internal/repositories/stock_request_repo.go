package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"reliefledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, request_number, shelter_id, requested_by, requested_at, items, status, reviewed_by,
		reviewed_at, admin_notes, approved_items, delivery_status, version, updated_at`

type stockRequestRepo struct {
	db Querier
}

func NewStockRequestRepository(db Querier) StockRequestRepository {
	return &stockRequestRepo{db: db}
}

func (r *stockRequestRepo) Create(ctx context.Context, req *models.StockRequest) error {
	items, err := json.Marshal(req.Items)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO stock_requests (id, request_number, shelter_id, requested_by, requested_at, items, status,
			admin_notes, delivery_status, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.Exec(ctx, query, req.ID, req.RequestNumber, req.ShelterID, req.RequestedBy, req.RequestedAt,
		items, string(req.Status), req.AdminNotes, string(req.DeliveryStatus), req.Version, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert stock request: %w", err)
	}
	return nil
}

func (r *stockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StockRequest, error) {
	return r.get(ctx, id, false)
}

func (r *stockRequestRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.StockRequest, error) {
	return r.get(ctx, id, true)
}

func (r *stockRequestRepo) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.StockRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM stock_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get stock request: %w", err)
	}
	return req, nil
}

func (r *stockRequestRepo) Update(ctx context.Context, req *models.StockRequest) error {
	approved, err := json.Marshal(req.ApprovedItems)
	if err != nil {
		return err
	}
	query := `
		UPDATE stock_requests
		SET status = $1, reviewed_by = $2, reviewed_at = $3, admin_notes = $4, approved_items = $5,
			delivery_status = $6, version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8
		RETURNING version, updated_at
	`
	err = r.db.QueryRow(ctx, query, string(req.Status), req.ReviewedBy, req.ReviewedAt, req.AdminNotes, approved,
		string(req.DeliveryStatus), req.ID, req.Version).Scan(&req.Version, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("update stock request: %w", err)
	}
	return nil
}

func (r *stockRequestRepo) List(ctx context.Context, filter *models.RequestFilter) ([]*models.StockRequest, error) {
	if filter == nil {
		filter = &models.RequestFilter{}
	}
	query := `SELECT ` + requestColumns + ` FROM stock_requests WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filter.ShelterID != nil {
		query += fmt.Sprintf(" AND shelter_id = $%d", argCount)
		args = append(args, *filter.ShelterID)
		argCount++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, string(*filter.Status))
		argCount++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY requested_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.StockRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(row pgx.Row) (*models.StockRequest, error) {
	req := &models.StockRequest{}
	var status, delivery string
	var items, approved []byte
	err := row.Scan(&req.ID, &req.RequestNumber, &req.ShelterID, &req.RequestedBy, &req.RequestedAt, &items,
		&status, &req.ReviewedBy, &req.ReviewedAt, &req.AdminNotes, &approved, &delivery, &req.Version, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	req.Status = models.RequestStatus(status)
	req.DeliveryStatus = models.DeliveryStatus(delivery)
	if err := json.Unmarshal(items, &req.Items); err != nil {
		return nil, fmt.Errorf("decode request items: %w", err)
	}
	if len(approved) > 0 {
		if err := json.Unmarshal(approved, &req.ApprovedItems); err != nil {
			return nil, fmt.Errorf("decode approved items: %w", err)
		}
	}
	return req, nil
}

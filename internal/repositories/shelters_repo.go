package repositories

import (
	"context"
	"errors"
	"fmt"

	"reliefledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type shelterRepo struct {
	db Querier
}

func NewShelterRepository(db Querier) ShelterRepository {
	return &shelterRepo{db: db}
}

func (r *shelterRepo) Create(ctx context.Context, shelter *models.Shelter) error {
	query := `
		INSERT INTO shelters (id, name, address, capacity, contact_phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, shelter.ID, shelter.Name, shelter.Address, shelter.Capacity, shelter.ContactPhone, shelter.IsActive)
	if err != nil {
		return fmt.Errorf("insert shelter: %w", err)
	}
	return nil
}

func (r *shelterRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Shelter, error) {
	shelter := &models.Shelter{}
	query := `
		SELECT id, name, address, capacity, contact_phone, is_active, created_at, updated_at
		FROM shelters
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&shelter.ID, &shelter.Name, &shelter.Address, &shelter.Capacity,
		&shelter.ContactPhone, &shelter.IsActive, &shelter.CreatedAt, &shelter.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get shelter: %w", err)
	}
	return shelter, nil
}

func (r *shelterRepo) Update(ctx context.Context, shelter *models.Shelter) error {
	query := `
		UPDATE shelters
		SET name = $1, address = $2, capacity = $3, contact_phone = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
	`
	tag, err := r.db.Exec(ctx, query, shelter.Name, shelter.Address, shelter.Capacity, shelter.ContactPhone, shelter.IsActive, shelter.ID)
	if err != nil {
		return fmt.Errorf("update shelter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *shelterRepo) List(ctx context.Context, limit, offset int) ([]*models.Shelter, error) {
	query := `
		SELECT id, name, address, capacity, contact_phone, is_active, created_at, updated_at
		FROM shelters
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list shelters: %w", err)
	}
	defer rows.Close()

	var shelters []*models.Shelter
	for rows.Next() {
		shelter := &models.Shelter{}
		if err := rows.Scan(&shelter.ID, &shelter.Name, &shelter.Address, &shelter.Capacity, &shelter.ContactPhone,
			&shelter.IsActive, &shelter.CreatedAt, &shelter.UpdatedAt); err != nil {
			return nil, err
		}
		shelters = append(shelters, shelter)
	}
	return shelters, rows.Err()
}

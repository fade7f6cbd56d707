package repositories

import (
	"context"
	"errors"

	"reliefledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentUpdate is returned when an optimistic version check fails.
	ErrConcurrentUpdate = errors.New("record was modified concurrently")
	// ErrInvalidMovement is returned when a movement is not well-formed.
	ErrInvalidMovement = errors.New("invalid movement record")
	// ErrNoChange is returned by an UpdateStock mutator that leaves the record as it was.
	ErrNoChange = errors.New("no change")
)

// Querier is satisfied by a pool, a transaction and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBPool is a Querier that can start transactions.
type DBPool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type StockRepository interface {
	Create(ctx context.Context, rec *models.StockRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockRecord, error)
	// GetByIDForUpdate locks the record until the enclosing transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.StockRecord, error)
	// Update persists rec if its Version still matches and bumps Version.
	Update(ctx context.Context, rec *models.StockRecord) error
	List(ctx context.Context, filter *models.StockFilter) ([]*models.StockRecord, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type MovementRepository interface {
	Append(ctx context.Context, m *models.MovementRecord) error
	Query(ctx context.Context, filter *models.MovementFilter) ([]*models.MovementRecord, error)
	Totals(ctx context.Context, stockItemID uuid.UUID) (models.MovementTotals, error)
}

type StockRequestRepository interface {
	Create(ctx context.Context, req *models.StockRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockRequest, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.StockRequest, error)
	Update(ctx context.Context, req *models.StockRequest) error
	List(ctx context.Context, filter *models.RequestFilter) ([]*models.StockRequest, error)
}

type ShelterRepository interface {
	Create(ctx context.Context, shelter *models.Shelter) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shelter, error)
	Update(ctx context.Context, shelter *models.Shelter) error
	List(ctx context.Context, limit, offset int) ([]*models.Shelter, error)
}

// LedgerTx exposes repositories bound to one transaction.
type LedgerTx interface {
	Stock() StockRepository
	Movements() MovementRepository
	Requests() StockRequestRepository
	Shelters() ShelterRepository
}

// LedgerStore is the persistence boundary of the ledger. Repositories returned
// directly from the store run outside any transaction.
type LedgerStore interface {
	LedgerTx
	// RunInTx commits every write made through tx when fn returns nil and
	// discards them all otherwise.
	RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error
	Ping(ctx context.Context) error
}

// UpdateStock locks a record, applies mutate and persists it with a fresh total.
// When mutate returns ErrNoChange nothing is written and the locked record is
// returned alongside ErrNoChange.
func UpdateStock(ctx context.Context, tx LedgerTx, id uuid.UUID, mutate func(rec *models.StockRecord) error) (*models.StockRecord, error) {
	rec, err := tx.Stock().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(rec); err != nil {
		if errors.Is(err, ErrNoChange) {
			return rec, err
		}
		return nil, err
	}
	rec.RecomputeTotal()
	if err := tx.Stock().Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateRequest locks a request, applies mutate and persists it.
func UpdateRequest(ctx context.Context, tx LedgerTx, id uuid.UUID, mutate func(req *models.StockRequest) error) (*models.StockRequest, error) {
	req, err := tx.Requests().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(req); err != nil {
		return nil, err
	}
	if err := tx.Requests().Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// IsRetryable reports whether err signals a lost race that a fresh attempt can win.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrConcurrentUpdate) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}
	return false
}

const scanPageSize = 500

// ListAllStock pages through every record matching filter.
func ListAllStock(ctx context.Context, repo StockRepository, filter models.StockFilter) ([]*models.StockRecord, error) {
	var out []*models.StockRecord
	filter.Limit = scanPageSize
	for offset := 0; ; offset += scanPageSize {
		filter.Offset = offset
		page, err := repo.List(ctx, &filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < scanPageSize {
			return out, nil
		}
	}
}

// ListAllMovements pages through every movement matching filter, newest first.
func ListAllMovements(ctx context.Context, repo MovementRepository, filter models.MovementFilter) ([]*models.MovementRecord, error) {
	var out []*models.MovementRecord
	filter.Limit = scanPageSize
	for offset := 0; ; offset += scanPageSize {
		filter.Offset = offset
		page, err := repo.Query(ctx, &filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < scanPageSize {
			return out, nil
		}
	}
}

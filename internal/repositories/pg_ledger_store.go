package repositories

import (
	"context"
	"fmt"
)

type pgLedgerTx struct {
	stock     StockRepository
	movements MovementRepository
	requests  StockRequestRepository
	shelters  ShelterRepository
}

func newPgLedgerTx(db Querier) *pgLedgerTx {
	return &pgLedgerTx{
		stock:     NewStockRepository(db),
		movements: NewMovementRepository(db),
		requests:  NewStockRequestRepository(db),
		shelters:  NewShelterRepository(db),
	}
}

func (t *pgLedgerTx) Stock() StockRepository           { return t.stock }
func (t *pgLedgerTx) Movements() MovementRepository    { return t.movements }
func (t *pgLedgerTx) Requests() StockRequestRepository { return t.requests }
func (t *pgLedgerTx) Shelters() ShelterRepository      { return t.shelters }

// PgLedgerStore runs ledger repositories on PostgreSQL.
type PgLedgerStore struct {
	*pgLedgerTx
	pool DBPool
}

var _ LedgerStore = (*PgLedgerStore)(nil)

func NewPgLedgerStore(pool DBPool) *PgLedgerStore {
	return &PgLedgerStore{pgLedgerTx: newPgLedgerTx(pool), pool: pool}
}

func (s *PgLedgerStore) RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newPgLedgerTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PgLedgerStore) Ping(ctx context.Context) error {
	var one int
	return s.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
}

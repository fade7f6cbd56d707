package jobs

import (
	"context"

	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/pkg/logger"

	"github.com/google/uuid"
)

// Drift describes one stock record whose stored counters disagree with its
// quantities or with the movement log.
type Drift struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	ItemName    string    `json:"item_name"`
	Check       string    `json:"check"`
	Stored      int       `json:"stored"`
	Expected    int       `json:"expected"`
}

const (
	CheckTotalQuantity  = "total_quantity"
	CheckTotalReceived  = "total_received"
	CheckTotalDispensed = "total_dispensed"
	CheckLedgerNet      = "ledger_net"
)

type ConsistencyChecker struct {
	stockRepo    repositories.StockRepository
	movementRepo repositories.MovementRepository
	log          *logger.Logger
}

func NewConsistencyChecker(stockRepo repositories.StockRepository, movementRepo repositories.MovementRepository, log *logger.Logger) *ConsistencyChecker {
	return &ConsistencyChecker{
		stockRepo:    stockRepo,
		movementRepo: movementRepo,
		log:          log,
	}
}

// Check compares every record against its pools and its movement totals.
func (c *ConsistencyChecker) Check(ctx context.Context) ([]Drift, error) {
	recs, err := repositories.ListAllStock(ctx, c.stockRepo, models.StockFilter{})
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, rec := range recs {
		totals, err := c.movementRepo.Totals(ctx, rec.ID)
		if err != nil {
			c.log.Error().Err(err).Str("stock_item_id", rec.ID.String()).Msg("failed to sum movements")
			continue
		}
		drifts = append(drifts, checkRecord(rec, totals)...)
	}
	return drifts, nil
}

func checkRecord(rec *models.StockRecord, totals models.MovementTotals) []Drift {
	pools := rec.ProvincialQuantity
	for _, entry := range rec.ShelterQuantities {
		pools += entry.Quantity
	}

	var drifts []Drift
	add := func(check string, stored, expected int) {
		if stored != expected {
			drifts = append(drifts, Drift{StockItemID: rec.ID, ItemName: rec.ItemName, Check: check, Stored: stored, Expected: expected})
		}
	}
	add(CheckTotalQuantity, rec.TotalQuantity, pools)
	add(CheckTotalReceived, rec.TotalReceived, totals.Received)
	add(CheckTotalDispensed, rec.TotalDispensed, totals.Dispensed)
	add(CheckLedgerNet, rec.TotalQuantity, totals.Net())
	return drifts
}

// ScheduledConsistencyCheck logs every drift found.
func (c *ConsistencyChecker) ScheduledConsistencyCheck(ctx context.Context) error {
	drifts, err := c.Check(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("consistency check failed")
		return err
	}
	for _, d := range drifts {
		c.log.Error().Str("stock_item_id", d.StockItemID.String()).Str("item", d.ItemName).Str("check", d.Check).
			Int("stored", d.Stored).Int("expected", d.Expected).Msg("ledger drift detected")
	}
	c.log.Info().Int("drifts", len(drifts)).Msg("consistency check completed")
	return nil
}

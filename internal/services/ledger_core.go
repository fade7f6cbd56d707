package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reliefledger/internal/caching"
	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/pkg/logger"

	"github.com/google/uuid"
)

// LedgerOptions tunes transaction retries and caching.
type LedgerOptions struct {
	MaxRetries   int
	RetryBackoff time.Duration
	CacheTTL     time.Duration
}

func (o LedgerOptions) withDefaults() LedgerOptions {
	if o.MaxRetries < 1 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}
	return o
}

// ledgerCore holds what the ledger and request services share: the store, the
// retry loop and post-commit cache invalidation.
type ledgerCore struct {
	store repositories.LedgerStore
	cache caching.CacheService
	log   *logger.Logger
	opts  LedgerOptions
	now   func() time.Time
}

func newLedgerCore(store repositories.LedgerStore, cache caching.CacheService, log *logger.Logger, opts LedgerOptions) ledgerCore {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	if log == nil {
		log = logger.Nop()
	}
	return ledgerCore{
		store: store,
		cache: cache,
		log:   log,
		opts:  opts.withDefaults(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// inTx runs fn in a store transaction, retrying lost races up to MaxRetries
// attempts before giving up with a Conflict.
func (c *ledgerCore) inTx(ctx context.Context, itemID uuid.UUID, fn func(tx repositories.LedgerTx) error) error {
	var err error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		err = c.store.RunInTx(ctx, fn)
		if err == nil || !repositories.IsRetryable(err) {
			return err
		}
		c.log.Warn().Err(err).Str("stock_item_id", itemID.String()).Int("attempt", attempt).Msg("ledger transaction lost a race")
		if attempt == c.opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.RetryBackoff * time.Duration(attempt)):
		}
	}
	return common.Conflict(itemID, err)
}

// afterCommit drops cached copies of the touched items and derived analytics.
func (c *ledgerCore) afterCommit(ctx context.Context, itemIDs ...uuid.UUID) {
	for _, id := range itemIDs {
		if err := c.cache.DeleteStockRecord(ctx, id); err != nil {
			c.log.Warn().Err(err).Str("stock_item_id", id.String()).Msg("failed to invalidate stock cache")
		}
	}
	if err := c.cache.InvalidateAnalytics(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to invalidate analytics cache")
	}
}

// resolveSide checks that a shelter side exists and returns its movement location.
func (c *ledgerCore) resolveSide(ctx context.Context, side models.StockSide) (models.Location, error) {
	if side.IsProvincial() {
		return models.SideLocation(side, ""), nil
	}
	shelter, err := c.store.Shelters().GetByID(ctx, *side.ShelterID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Location{}, common.NotFound(common.MsgShelterNotFound, side.ShelterID.String())
		}
		return models.Location{}, err
	}
	return models.SideLocation(side, shelter.Name), nil
}

func stockErr(err error, id uuid.UUID) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return common.NotFound(common.MsgItemNotFound, id.String())
	}
	return err
}

func requestErr(err error, id uuid.UUID) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return common.NotFound(common.MsgRequestNotFound, id.String())
	}
	return err
}

func newReference(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6]))
}

func newMovement(rec *models.StockRecord, typ models.MovementType, qty int, from, to models.Location,
	performedBy uuid.UUID, ref string, snap models.QuantitySnapshot, notes string, now time.Time) *models.MovementRecord {
	return &models.MovementRecord{
		ID:           uuid.New(),
		StockItemID:  rec.ID,
		ItemName:     rec.ItemName,
		MovementType: typ,
		Quantity:     qty,
		From:         from,
		To:           to,
		PerformedBy:  performedBy,
		PerformedAt:  now,
		ReferenceID:  ref,
		Snapshot:     snap,
		Notes:        strings.TrimSpace(notes),
	}
}

// applyTransfer moves qty from one side of rec to another and returns the source
// and destination snapshots. rec is left untouched on error.
func applyTransfer(rec *models.StockRecord, from, to models.StockSide, fromLoc models.Location, qty int, now time.Time) (models.QuantitySnapshot, models.QuantitySnapshot, error) {
	available, ok := rec.QuantityAt(from)
	if !ok {
		return models.QuantitySnapshot{}, models.QuantitySnapshot{}, common.NotFound(common.MsgShelterStockNotFound, fromLoc.DisplayName, rec.ItemName)
	}
	if available < qty {
		return models.QuantitySnapshot{}, models.QuantitySnapshot{}, common.InsufficientStock(rec.ID, rec.ItemName, qty, available)
	}
	destBefore, _ := rec.QuantityAt(to)

	rec.SetQuantityAt(from, available-qty, now)
	rec.SetQuantityAt(to, destBefore+qty, now)

	return models.QuantitySnapshot{Before: available, After: available - qty},
		models.QuantitySnapshot{Before: destBefore, After: destBefore + qty}, nil
}

package services

import (
	"context"
	"errors"
	"strings"

	"reliefledger/internal/caching"
	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/pkg/logger"

	"github.com/google/uuid"
)

type LedgerService interface {
	CreateItem(ctx context.Context, caller models.Caller, in CreateItemInput) (*models.StockRecord, error)
	SetItemActive(ctx context.Context, caller models.Caller, id uuid.UUID, active bool) error

	Receive(ctx context.Context, caller models.Caller, in ReceiveInput) (*LedgerResult, error)
	Dispense(ctx context.Context, caller models.Caller, in DispenseInput) (*DispenseResult, error)
	Transfer(ctx context.Context, caller models.Caller, in TransferInput) (*LedgerResult, error)
	// Adjust returns a nil Movement when the quantity is unchanged.
	Adjust(ctx context.Context, caller models.Caller, in AdjustInput) (*LedgerResult, error)
}

type CreateItemInput struct {
	ItemName        string               `json:"item_name"`
	Category        models.StockCategory `json:"category"`
	Unit            string               `json:"unit"`
	InitialQuantity int                  `json:"initial_quantity"`
	MinStockLevel   int                  `json:"min_stock_level"`
	CriticalLevel   int                  `json:"critical_level"`
	Source          string               `json:"source"`
}

type ReceiveInput struct {
	StockItemID uuid.UUID        `json:"-"`
	Destination models.StockSide `json:"destination"`
	Quantity    int              `json:"quantity"`
	Source      string           `json:"source"`
	Notes       string           `json:"notes"`
}

type DispenseInput struct {
	StockItemID uuid.UUID `json:"-"`
	ShelterID   uuid.UUID `json:"shelter_id"`
	Quantity    int       `json:"quantity"`
	Recipient   string    `json:"recipient"`
	Notes       string    `json:"notes"`
}

type TransferInput struct {
	StockItemID uuid.UUID        `json:"-"`
	From        models.StockSide `json:"from"`
	To          models.StockSide `json:"to"`
	Quantity    int              `json:"quantity"`
	Notes       string           `json:"notes"`
}

type AdjustInput struct {
	StockItemID uuid.UUID        `json:"-"`
	Side        models.StockSide `json:"side"`
	NewQuantity int              `json:"new_quantity"`
	Notes       string           `json:"notes"`
}

type LedgerResult struct {
	Stock    *models.StockRecord    `json:"stock"`
	Movement *models.MovementRecord `json:"movement,omitempty"`
}

// DispenseResult flags when the shelter fell to or below the minimum stock level.
type DispenseResult struct {
	LedgerResult
	Alert bool `json:"alert"`
}

type ledgerService struct {
	ledgerCore
}

func NewLedgerService(store repositories.LedgerStore, cacheService caching.CacheService, log *logger.Logger, opts LedgerOptions) LedgerService {
	return &ledgerService{ledgerCore: newLedgerCore(store, cacheService, log, opts)}
}

func (s *ledgerService) CreateItem(ctx context.Context, caller models.Caller, in CreateItemInput) (*models.StockRecord, error) {
	if err := requireAdmin(caller, "create stock items"); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.ItemName)
	if name == "" {
		return nil, common.InvalidInput(common.MsgItemNameRequired)
	}
	if !in.Category.Valid() {
		return nil, common.InvalidInput(common.MsgInvalidCategory, string(in.Category))
	}
	if in.InitialQuantity < 0 {
		return nil, common.InvalidInput(common.MsgQuantityNegative, in.InitialQuantity)
	}
	if in.CriticalLevel < 0 || in.MinStockLevel < 0 || (in.MinStockLevel > 0 && in.CriticalLevel >= in.MinStockLevel) {
		return nil, common.InvalidInput(common.MsgInvalidThresholds, in.CriticalLevel, in.MinStockLevel)
	}

	now := s.now()
	rec := &models.StockRecord{
		ID:                 uuid.New(),
		ItemName:           name,
		Category:           in.Category,
		Unit:               strings.TrimSpace(in.Unit),
		ProvincialQuantity: in.InitialQuantity,
		ShelterQuantities:  make(map[uuid.UUID]models.ShelterStock),
		TotalReceived:      in.InitialQuantity,
		MinStockLevel:      in.MinStockLevel,
		CriticalLevel:      in.CriticalLevel,
		IsActive:           true,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	rec.RecomputeTotal()

	err := s.store.RunInTx(ctx, func(tx repositories.LedgerTx) error {
		if err := tx.Stock().Create(ctx, rec); err != nil {
			return err
		}
		if in.InitialQuantity == 0 {
			return nil
		}
		source := strings.TrimSpace(in.Source)
		if source == "" {
			source = "Initial stock"
		}
		mv := newMovement(rec, models.MovementReceive, in.InitialQuantity,
			models.Location{Kind: models.LocationExternal, DisplayName: source},
			models.SideLocation(models.ProvincialSide(), ""),
			caller.UserID, newReference("RCV", now),
			models.QuantitySnapshot{Before: 0, After: in.InitialQuantity}, "", now)
		return tx.Movements().Append(ctx, mv)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx)
	s.log.Info().Str("stock_item_id", rec.ID.String()).Str("item", rec.ItemName).Int("initial_quantity", in.InitialQuantity).Msg("stock item created")
	return rec, nil
}

func (s *ledgerService) SetItemActive(ctx context.Context, caller models.Caller, id uuid.UUID, active bool) error {
	if err := requireAdmin(caller, "change stock items"); err != nil {
		return err
	}
	if err := s.store.Stock().SetActive(ctx, id, active); err != nil {
		return stockErr(err, id)
	}
	s.afterCommit(ctx, id)
	return nil
}

func (s *ledgerService) Receive(ctx context.Context, caller models.Caller, in ReceiveInput) (*LedgerResult, error) {
	if err := requireSideAccess(caller, in.Destination, "receive stock"); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, common.InvalidInput(common.MsgQuantityNotPositive, in.Quantity)
	}
	to, err := s.resolveSide(ctx, in.Destination)
	if err != nil {
		return nil, err
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = "External donation"
	}
	from := models.Location{Kind: models.LocationExternal, DisplayName: source}

	var result *LedgerResult
	err = s.inTx(ctx, in.StockItemID, func(tx repositories.LedgerTx) error {
		now := s.now()
		var snap models.QuantitySnapshot
		rec, err := repositories.UpdateStock(ctx, tx, in.StockItemID, func(rec *models.StockRecord) error {
			if !rec.IsActive {
				return common.InvalidInput(common.MsgItemInactive, rec.ItemName)
			}
			before, _ := rec.QuantityAt(in.Destination)
			rec.SetQuantityAt(in.Destination, before+in.Quantity, now)
			rec.TotalReceived += in.Quantity
			snap = models.QuantitySnapshot{Before: before, After: before + in.Quantity}
			return nil
		})
		if err != nil {
			return stockErr(err, in.StockItemID)
		}

		mv := newMovement(rec, models.MovementReceive, in.Quantity, from, to, caller.UserID, newReference("RCV", now), snap, in.Notes, now)
		if err := tx.Movements().Append(ctx, mv); err != nil {
			return err
		}
		result = &LedgerResult{Stock: rec, Movement: mv}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, in.StockItemID)
	s.log.Info().Str("stock_item_id", in.StockItemID.String()).Str("to", in.Destination.String()).
		Int("quantity", in.Quantity).Str("reference", result.Movement.ReferenceID).Msg("stock received")
	return result, nil
}

func (s *ledgerService) Dispense(ctx context.Context, caller models.Caller, in DispenseInput) (*DispenseResult, error) {
	side := models.ShelterSide(in.ShelterID)
	if err := requireSideAccess(caller, side, "dispense stock"); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, common.InvalidInput(common.MsgQuantityNotPositive, in.Quantity)
	}
	from, err := s.resolveSide(ctx, side)
	if err != nil {
		return nil, err
	}
	recipient := strings.TrimSpace(in.Recipient)
	if recipient == "" {
		recipient = "Beneficiary"
	}
	to := models.Location{Kind: models.LocationBeneficiary, DisplayName: recipient}

	var result *DispenseResult
	err = s.inTx(ctx, in.StockItemID, func(tx repositories.LedgerTx) error {
		now := s.now()
		var snap models.QuantitySnapshot
		rec, err := repositories.UpdateStock(ctx, tx, in.StockItemID, func(rec *models.StockRecord) error {
			if !rec.IsActive {
				return common.InvalidInput(common.MsgItemInactive, rec.ItemName)
			}
			available, ok := rec.QuantityAt(side)
			if !ok {
				return common.NotFound(common.MsgShelterStockNotFound, from.DisplayName, rec.ItemName)
			}
			if available < in.Quantity {
				return common.InsufficientStock(rec.ID, rec.ItemName, in.Quantity, available)
			}
			rec.SetQuantityAt(side, available-in.Quantity, now)
			rec.TotalDispensed += in.Quantity
			snap = models.QuantitySnapshot{Before: available, After: available - in.Quantity}
			return nil
		})
		if err != nil {
			return stockErr(err, in.StockItemID)
		}

		mv := newMovement(rec, models.MovementDispense, in.Quantity, from, to, caller.UserID, newReference("DSP", now), snap, in.Notes, now)
		if err := tx.Movements().Append(ctx, mv); err != nil {
			return err
		}
		result = &DispenseResult{
			LedgerResult: LedgerResult{Stock: rec, Movement: mv},
			Alert:        snap.After <= rec.MinStockLevel,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, in.StockItemID)
	s.log.Info().Str("stock_item_id", in.StockItemID.String()).Str("shelter_id", in.ShelterID.String()).
		Int("quantity", in.Quantity).Bool("alert", result.Alert).Msg("stock dispensed")
	return result, nil
}

func (s *ledgerService) Transfer(ctx context.Context, caller models.Caller, in TransferInput) (*LedgerResult, error) {
	if err := requireAdmin(caller, "transfer stock"); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, common.InvalidInput(common.MsgQuantityNotPositive, in.Quantity)
	}
	if in.From.Equal(in.To) {
		return nil, common.InvalidInput(common.MsgSameSideTransfer)
	}
	fromLoc, err := s.resolveSide(ctx, in.From)
	if err != nil {
		return nil, err
	}
	toLoc, err := s.resolveSide(ctx, in.To)
	if err != nil {
		return nil, err
	}

	var result *LedgerResult
	err = s.inTx(ctx, in.StockItemID, func(tx repositories.LedgerTx) error {
		now := s.now()
		var src, dst models.QuantitySnapshot
		rec, err := repositories.UpdateStock(ctx, tx, in.StockItemID, func(rec *models.StockRecord) error {
			if !rec.IsActive {
				return common.InvalidInput(common.MsgItemInactive, rec.ItemName)
			}
			var err error
			src, dst, err = applyTransfer(rec, in.From, in.To, fromLoc, in.Quantity, now)
			return err
		})
		if err != nil {
			return stockErr(err, in.StockItemID)
		}

		mv := newMovement(rec, models.MovementTransfer, in.Quantity, fromLoc, toLoc, caller.UserID, newReference("TRF", now), src, in.Notes, now)
		mv.CounterSnapshot = &dst
		if err := tx.Movements().Append(ctx, mv); err != nil {
			return err
		}
		result = &LedgerResult{Stock: rec, Movement: mv}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, in.StockItemID)
	s.log.Info().Str("stock_item_id", in.StockItemID.String()).Str("from", in.From.String()).Str("to", in.To.String()).
		Int("quantity", in.Quantity).Msg("stock transferred")
	return result, nil
}

func (s *ledgerService) Adjust(ctx context.Context, caller models.Caller, in AdjustInput) (*LedgerResult, error) {
	if err := requireAdmin(caller, "adjust stock"); err != nil {
		return nil, err
	}
	if in.NewQuantity < 0 {
		return nil, common.InvalidInput(common.MsgQuantityNegative, in.NewQuantity)
	}
	sideLoc, err := s.resolveSide(ctx, in.Side)
	if err != nil {
		return nil, err
	}
	adjustment := models.Location{Kind: models.LocationAdjustment, DisplayName: "Stock adjustment"}

	var result *LedgerResult
	err = s.inTx(ctx, in.StockItemID, func(tx repositories.LedgerTx) error {
		now := s.now()
		var old, diff int
		rec, err := repositories.UpdateStock(ctx, tx, in.StockItemID, func(rec *models.StockRecord) error {
			if !rec.IsActive {
				return common.InvalidInput(common.MsgItemInactive, rec.ItemName)
			}
			old, _ = rec.QuantityAt(in.Side)
			diff = in.NewQuantity - old
			if diff == 0 {
				return repositories.ErrNoChange
			}
			rec.SetQuantityAt(in.Side, in.NewQuantity, now)
			return nil
		})
		if errors.Is(err, repositories.ErrNoChange) {
			result = &LedgerResult{Stock: rec}
			return nil
		}
		if err != nil {
			return stockErr(err, in.StockItemID)
		}

		from, to, qty := adjustment, sideLoc, diff
		if diff < 0 {
			from, to, qty = sideLoc, adjustment, -diff
		}
		mv := newMovement(rec, models.MovementAdjust, qty, from, to, caller.UserID, newReference("ADJ", now),
			models.QuantitySnapshot{Before: old, After: in.NewQuantity}, in.Notes, now)
		if err := tx.Movements().Append(ctx, mv); err != nil {
			return err
		}
		result = &LedgerResult{Stock: rec, Movement: mv}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Movement != nil {
		s.afterCommit(ctx, in.StockItemID)
		s.log.Info().Str("stock_item_id", in.StockItemID.String()).Str("side", in.Side.String()).
			Int("new_quantity", in.NewQuantity).Msg("stock adjusted")
	}
	return result, nil
}

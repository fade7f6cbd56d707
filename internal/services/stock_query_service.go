package services

import (
	"context"

	"reliefledger/internal/caching"
	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/pkg/logger"

	"github.com/google/uuid"
)

// StockQueryService serves read-only views of stock and the movement log.
type StockQueryService interface {
	GetStock(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.StockView, error)
	ListStock(ctx context.Context, caller models.Caller, filter models.StockFilter) ([]*models.StockView, error)
	ListMovements(ctx context.Context, caller models.Caller, filter models.MovementFilter) ([]*models.MovementRecord, error)
	// GetRecord returns the unprojected record through the cache.
	GetRecord(ctx context.Context, id uuid.UUID) (*models.StockRecord, error)
}

type stockQueryService struct {
	store repositories.LedgerStore
	cache caching.CacheService
	log   *logger.Logger
	opts  LedgerOptions
}

func NewStockQueryService(store repositories.LedgerStore, cacheService caching.CacheService, log *logger.Logger, opts LedgerOptions) StockQueryService {
	core := newLedgerCore(store, cacheService, log, opts)
	return &stockQueryService{store: core.store, cache: core.cache, log: core.log, opts: core.opts}
}

func (s *stockQueryService) GetRecord(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	cached, err := s.cache.GetStockRecord(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("stock_item_id", id.String()).Msg("stock cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	rec, err := s.store.Stock().GetByID(ctx, id)
	if err != nil {
		return nil, stockErr(err, id)
	}
	if err := s.cache.SetStockRecord(ctx, rec, s.opts.CacheTTL); err != nil {
		s.log.Warn().Err(err).Str("stock_item_id", id.String()).Msg("stock cache write failed")
	}
	return rec, nil
}

func (s *stockQueryService) GetStock(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.StockView, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return ProjectStock(caller, rec), nil
}

func (s *stockQueryService) ListStock(ctx context.Context, caller models.Caller, filter models.StockFilter) ([]*models.StockView, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Status != nil && !validStatus(*filter.Status) {
		filter.Status = nil
	}
	recs, err := s.store.Stock().List(ctx, &filter)
	if err != nil {
		return nil, err
	}
	return projectAll(caller, recs), nil
}

func (s *stockQueryService) ListMovements(ctx context.Context, caller models.Caller, filter models.MovementFilter) ([]*models.MovementRecord, error) {
	switch caller.Role {
	case models.RoleAdmin:
	case models.RoleStaff:
		if caller.AssignedShelterID == nil {
			return []*models.MovementRecord{}, nil
		}
		if filter.ShelterID != nil && *filter.ShelterID != *caller.AssignedShelterID {
			return nil, common.Forbidden(common.MsgForbiddenShelter, filter.ShelterID.String())
		}
		filter.ShelterID = caller.AssignedShelterID
	default:
		return nil, common.Forbidden(common.MsgForbiddenRole, string(caller.Role), "view movements")
	}
	return s.store.Movements().Query(ctx, &filter)
}

func validStatus(status models.StockStatus) bool {
	switch status {
	case models.StatusOutOfStock, models.StatusCritical, models.StatusLow, models.StatusSufficient:
		return true
	}
	return false
}

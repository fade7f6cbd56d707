package services

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"reliefledger/internal/caching"
	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/pkg/logger"

	"github.com/google/uuid"
)

type StockRequestService interface {
	Create(ctx context.Context, caller models.Caller, in CreateRequestInput) (*CreateRequestResult, error)
	Get(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.StockRequest, error)
	List(ctx context.Context, caller models.Caller, filter models.RequestFilter) ([]*models.StockRequest, error)
	Reject(ctx context.Context, caller models.Caller, id uuid.UUID, notes string) (*models.StockRequest, error)
	// Approve grants the request's lines out of provincial stock. Every line is
	// transferred or none is.
	Approve(ctx context.Context, caller models.Caller, id uuid.UUID, in ApproveInput) (*ApproveResult, error)
	UpdateDeliveryStatus(ctx context.Context, caller models.Caller, id uuid.UUID, status models.DeliveryStatus) (*models.StockRequest, error)
}

type RequestLineInput struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
}

type CreateRequestInput struct {
	ShelterID *uuid.UUID         `json:"shelter_id"`
	Items     []RequestLineInput `json:"items"`
}

// RequestWarning flags a line asking for more than provincial stock holds.
type RequestWarning struct {
	StockItemID uuid.UUID `json:"stock_item_id"`
	ItemName    string    `json:"item_name"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
	Message     string    `json:"message"`
}

type CreateRequestResult struct {
	Request  *models.StockRequest `json:"request"`
	Warnings []RequestWarning     `json:"warnings,omitempty"`
}

// ApprovalLine sets the granted quantity for one item. A nil quantity grants the
// full request, or what provincial stock holds when that is less.
type ApprovalLine struct {
	StockItemID      uuid.UUID `json:"stock_item_id"`
	ApprovedQuantity *int      `json:"approved_quantity"`
}

type ApproveInput struct {
	Lines      []ApprovalLine `json:"lines"`
	AdminNotes string         `json:"admin_notes"`
}

type ApproveResult struct {
	Request   *models.StockRequest     `json:"request"`
	Movements []*models.MovementRecord `json:"movements"`
}

type stockRequestService struct {
	ledgerCore
}

func NewStockRequestService(store repositories.LedgerStore, cacheService caching.CacheService, log *logger.Logger, opts LedgerOptions) StockRequestService {
	return &stockRequestService{ledgerCore: newLedgerCore(store, cacheService, log, opts)}
}

func (s *stockRequestService) Create(ctx context.Context, caller models.Caller, in CreateRequestInput) (*CreateRequestResult, error) {
	var shelterID uuid.UUID
	switch caller.Role {
	case models.RoleAdmin:
		if in.ShelterID == nil {
			return nil, common.InvalidInput(common.MsgRequestShelterRequired)
		}
		shelterID = *in.ShelterID
	case models.RoleStaff:
		if caller.AssignedShelterID == nil {
			return nil, common.Forbidden(common.MsgForbiddenRole, string(caller.Role), "request stock")
		}
		shelterID = *caller.AssignedShelterID
		if in.ShelterID != nil && *in.ShelterID != shelterID {
			return nil, common.Forbidden(common.MsgForbiddenShelter, in.ShelterID.String())
		}
	default:
		return nil, common.Forbidden(common.MsgForbiddenRole, string(caller.Role), "request stock")
	}
	if _, err := s.resolveSide(ctx, models.ShelterSide(shelterID)); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, common.InvalidInput(common.MsgRequestEmpty)
	}

	seen := make(map[uuid.UUID]bool, len(in.Items))
	items := make([]models.RequestItem, 0, len(in.Items))
	var warnings []RequestWarning
	for _, line := range in.Items {
		if seen[line.StockItemID] {
			return nil, common.InvalidInput(common.MsgRequestDuplicateItem, line.StockItemID.String())
		}
		seen[line.StockItemID] = true
		if line.Quantity <= 0 {
			return nil, common.InvalidInput(common.MsgQuantityNotPositive, line.Quantity)
		}
		rec, err := s.store.Stock().GetByID(ctx, line.StockItemID)
		if err != nil {
			return nil, stockErr(err, line.StockItemID)
		}
		if !rec.IsActive {
			return nil, common.InvalidInput(common.MsgItemInactive, rec.ItemName)
		}
		items = append(items, models.RequestItem{
			StockItemID:       rec.ID,
			ItemName:          rec.ItemName,
			RequestedQuantity: line.Quantity,
			Unit:              rec.Unit,
			Reason:            strings.TrimSpace(line.Reason),
		})
		if line.Quantity > rec.ProvincialQuantity {
			warnings = append(warnings, RequestWarning{
				StockItemID: rec.ID,
				ItemName:    rec.ItemName,
				Requested:   line.Quantity,
				Available:   rec.ProvincialQuantity,
				Message:     common.Translate(common.MatchLanguage(""), common.MsgRequestStockWarning, line.Quantity, rec.ItemName, rec.ProvincialQuantity),
			})
		}
	}

	now := s.now()
	req := &models.StockRequest{
		ID:             uuid.New(),
		RequestNumber:  newReference("REQ", now),
		ShelterID:      shelterID,
		RequestedBy:    caller.UserID,
		RequestedAt:    now,
		Items:          items,
		Status:         models.RequestPending,
		DeliveryStatus: models.DeliveryPending,
		Version:        1,
		UpdatedAt:      now,
	}
	if err := s.store.Requests().Create(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info().Str("request", req.RequestNumber).Str("shelter_id", shelterID.String()).Int("lines", len(items)).
		Int("warnings", len(warnings)).Msg("stock request created")
	return &CreateRequestResult{Request: req, Warnings: warnings}, nil
}

func (s *stockRequestService) Get(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.StockRequest, error) {
	if caller.Role == models.RoleViewer {
		return nil, common.Forbidden(common.MsgForbiddenRole, string(caller.Role), "view requests")
	}
	req, err := s.store.Requests().GetByID(ctx, id)
	if err != nil {
		return nil, requestErr(err, id)
	}
	if !caller.IsAdmin() && !caller.AssignedTo(req.ShelterID) {
		// Hide other shelters' requests entirely.
		return nil, common.NotFound(common.MsgRequestNotFound, id.String())
	}
	return req, nil
}

func (s *stockRequestService) List(ctx context.Context, caller models.Caller, filter models.RequestFilter) ([]*models.StockRequest, error) {
	switch caller.Role {
	case models.RoleAdmin:
	case models.RoleStaff:
		if caller.AssignedShelterID == nil {
			return nil, nil
		}
		filter.ShelterID = caller.AssignedShelterID
	default:
		return nil, common.Forbidden(common.MsgForbiddenRole, string(caller.Role), "view requests")
	}
	return s.store.Requests().List(ctx, &filter)
}

func (s *stockRequestService) Reject(ctx context.Context, caller models.Caller, id uuid.UUID, notes string) (*models.StockRequest, error) {
	if err := requireAdmin(caller, "review requests"); err != nil {
		return nil, err
	}

	var result *models.StockRequest
	err := s.inTx(ctx, id, func(tx repositories.LedgerTx) error {
		now := s.now()
		req, err := repositories.UpdateRequest(ctx, tx, id, func(req *models.StockRequest) error {
			if !req.IsPending() {
				return common.AlreadyProcessed(req.RequestNumber, string(req.Status))
			}
			req.Status = models.RequestRejected
			req.ReviewedBy = &caller.UserID
			req.ReviewedAt = &now
			req.AdminNotes = strings.TrimSpace(notes)
			return nil
		})
		if err != nil {
			return requestErr(err, id)
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("request", result.RequestNumber).Msg("stock request rejected")
	return result, nil
}

type approvalPlan struct {
	item     models.RequestItem
	explicit *int
	granted  int
}

func (s *stockRequestService) Approve(ctx context.Context, caller models.Caller, id uuid.UUID, in ApproveInput) (*ApproveResult, error) {
	if err := requireAdmin(caller, "review requests"); err != nil {
		return nil, err
	}

	var result *ApproveResult
	err := s.inTx(ctx, id, func(tx repositories.LedgerTx) error {
		now := s.now()
		req, err := tx.Requests().GetByIDForUpdate(ctx, id)
		if err != nil {
			return requestErr(err, id)
		}
		if !req.IsPending() {
			return common.AlreadyProcessed(req.RequestNumber, string(req.Status))
		}
		toLoc, err := s.resolveSide(ctx, models.ShelterSide(req.ShelterID))
		if err != nil {
			return err
		}

		plans, err := planApproval(req, in.Lines)
		if err != nil {
			return err
		}

		// Lock stock rows in id order so concurrent approvals cannot deadlock.
		ids := make([]uuid.UUID, 0, len(plans))
		for _, p := range plans {
			ids = append(ids, p.item.StockItemID)
		}
		sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
		records := make(map[uuid.UUID]*models.StockRecord, len(ids))
		for _, itemID := range ids {
			rec, err := tx.Stock().GetByIDForUpdate(ctx, itemID)
			if err != nil {
				return stockErr(err, itemID)
			}
			records[itemID] = rec
		}

		// Validate every line before moving anything.
		anyGranted := false
		for _, p := range plans {
			rec := records[p.item.StockItemID]
			available := rec.ProvincialQuantity
			if p.explicit != nil {
				if *p.explicit > available {
					return common.InsufficientStock(rec.ID, rec.ItemName, *p.explicit, available)
				}
				p.granted = *p.explicit
			} else {
				p.granted = min(p.item.RequestedQuantity, available)
			}
			if p.granted > 0 {
				if !rec.IsActive {
					return common.InvalidInput(common.MsgItemInactive, rec.ItemName)
				}
				anyGranted = true
			}
		}
		if !anyGranted {
			return common.InvalidInput(common.MsgApprovalNothingGranted)
		}

		provincial := models.ProvincialSide()
		provincialLoc := models.SideLocation(provincial, "")
		shelter := models.ShelterSide(req.ShelterID)
		fullyGranted := true
		approved := make([]models.ApprovedItem, 0, len(plans))
		var movements []*models.MovementRecord
		for _, p := range plans {
			approved = append(approved, models.ApprovedItem{StockItemID: p.item.StockItemID, ApprovedQuantity: p.granted})
			if p.granted < p.item.RequestedQuantity {
				fullyGranted = false
			}
			if p.granted == 0 {
				continue
			}
			rec := records[p.item.StockItemID]
			src, dst, err := applyTransfer(rec, provincial, shelter, provincialLoc, p.granted, now)
			if err != nil {
				return err
			}
			rec.RecomputeTotal()
			if err := tx.Stock().Update(ctx, rec); err != nil {
				return err
			}
			mv := newMovement(rec, models.MovementTransfer, p.granted, provincialLoc, toLoc, caller.UserID, req.RequestNumber, src, in.AdminNotes, now)
			mv.CounterSnapshot = &dst
			if err := tx.Movements().Append(ctx, mv); err != nil {
				return err
			}
			movements = append(movements, mv)
		}

		req.Status = models.RequestPartial
		if fullyGranted {
			req.Status = models.RequestApproved
		}
		req.ReviewedBy = &caller.UserID
		req.ReviewedAt = &now
		req.AdminNotes = strings.TrimSpace(in.AdminNotes)
		req.ApprovedItems = approved
		req.DeliveryStatus = models.DeliveryInTransit
		if err := tx.Requests().Update(ctx, req); err != nil {
			return err
		}

		result = &ApproveResult{Request: req, Movements: movements}
		return nil
	})
	if err != nil {
		return nil, err
	}

	itemIDs := make([]uuid.UUID, 0, len(result.Movements))
	for _, mv := range result.Movements {
		itemIDs = append(itemIDs, mv.StockItemID)
	}
	s.afterCommit(ctx, itemIDs...)
	s.log.Info().Str("request", result.Request.RequestNumber).Str("status", string(result.Request.Status)).
		Int("transfers", len(result.Movements)).Msg("stock request approved")
	return result, nil
}

// planApproval pairs each request line with the admin's explicit grant, if any.
func planApproval(req *models.StockRequest, lines []ApprovalLine) ([]*approvalPlan, error) {
	plans := make([]*approvalPlan, 0, len(req.Items))
	byItem := make(map[uuid.UUID]*approvalPlan, len(req.Items))
	for _, item := range req.Items {
		p := &approvalPlan{item: item}
		plans = append(plans, p)
		byItem[item.StockItemID] = p
	}
	for _, line := range lines {
		p, ok := byItem[line.StockItemID]
		if !ok {
			return nil, common.InvalidInput(common.MsgApprovalUnknownItem, line.StockItemID.String(), req.RequestNumber)
		}
		if line.ApprovedQuantity == nil {
			continue
		}
		qty := *line.ApprovedQuantity
		if qty < 0 {
			return nil, common.InvalidInput(common.MsgQuantityNegative, qty)
		}
		if qty > p.item.RequestedQuantity {
			return nil, common.InvalidInput(common.MsgApprovalAboveRequested, qty, p.item.ItemName, p.item.RequestedQuantity)
		}
		p.explicit = &qty
	}
	return plans, nil
}

func (s *stockRequestService) UpdateDeliveryStatus(ctx context.Context, caller models.Caller, id uuid.UUID, status models.DeliveryStatus) (*models.StockRequest, error) {
	if !status.Valid() {
		return nil, common.InvalidInput(common.MsgInvalidDeliveryStatus, string(status))
	}
	if caller.Role == models.RoleViewer {
		return nil, common.Forbidden(common.MsgForbiddenRole, string(caller.Role), "update deliveries")
	}

	var result *models.StockRequest
	err := s.inTx(ctx, id, func(tx repositories.LedgerTx) error {
		req, err := repositories.UpdateRequest(ctx, tx, id, func(req *models.StockRequest) error {
			if !caller.IsAdmin() {
				if !caller.AssignedTo(req.ShelterID) {
					return common.Forbidden(common.MsgForbiddenShelter, req.ShelterID.String())
				}
				if status != models.DeliveryDelivered {
					return common.Forbidden(common.MsgForbiddenRole, string(caller.Role), "dispatch deliveries")
				}
			}
			if req.Status != models.RequestApproved && req.Status != models.RequestPartial {
				return common.InvalidInput(common.MsgDeliveryNotApproved, req.RequestNumber, string(req.Status))
			}
			if !req.DeliveryStatus.CanAdvanceTo(status) {
				return common.InvalidInput(common.MsgDeliveryTransition, string(req.DeliveryStatus), string(status))
			}
			req.DeliveryStatus = status
			return nil
		})
		if err != nil {
			return requestErr(err, id)
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("request", result.RequestNumber).Str("delivery_status", string(status)).Msg("delivery status updated")
	return result, nil
}

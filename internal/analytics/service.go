package analytics

import (
	"context"
	"errors"
	"sort"
	"time"

	"reliefledger/internal/caching"
	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const dashboardCacheKey = "dashboard"

// AnalyticsService computes read-only rollups over stock records and the movement log.
type AnalyticsService struct {
	store        repositories.LedgerStore
	cacheService caching.CacheService
	log          *logger.Logger
	ttl          time.Duration
	now          func() time.Time
}

// CategoryTotal summarizes active items of one category.
type CategoryTotal struct {
	Category      models.StockCategory `json:"category"`
	Items         int                  `json:"items"`
	TotalQuantity int                  `json:"total_quantity"`
	OutOfStock    int                  `json:"out_of_stock"`
	Critical      int                  `json:"critical"`
	Low           int                  `json:"low"`
	Sufficient    int                  `json:"sufficient"`
}

type AlertKind string

const (
	AlertOutOfStock AlertKind = "out_of_stock"
	AlertCritical   AlertKind = "critical"
	AlertLow        AlertKind = "low"
	AlertShelterLow AlertKind = "shelter_low"
)

// Alert flags an item, or one shelter's holding of it, that needs restocking.
type Alert struct {
	Kind          AlertKind            `json:"kind"`
	StockItemID   uuid.UUID            `json:"stock_item_id"`
	ItemName      string               `json:"item_name"`
	Category      models.StockCategory `json:"category"`
	ShelterID     *uuid.UUID           `json:"shelter_id,omitempty"`
	Quantity      int                  `json:"quantity"`
	MinStockLevel int                  `json:"min_stock_level"`
	CriticalLevel int                  `json:"critical_level"`
}

// TurnoverReport is dispensed quantity over average stock for one item and period.
type TurnoverReport struct {
	StockItemID  uuid.UUID       `json:"stock_item_id"`
	ItemName     string          `json:"item_name"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Dispensed    int             `json:"dispensed"`
	StartTotal   int             `json:"start_total"`
	EndTotal     int             `json:"end_total"`
	AverageStock decimal.Decimal `json:"average_stock"`
	Rate         decimal.Decimal `json:"rate"`
}

// Dashboard is the cached overview shown on the landing page.
type Dashboard struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	TotalItems      int                      `json:"total_items"`
	Categories      []CategoryTotal          `json:"categories"`
	Alerts          []Alert                  `json:"alerts"`
	RecentMovements []*models.MovementRecord `json:"recent_movements,omitempty"`
}

func NewAnalyticsService(store repositories.LedgerStore, cacheService caching.CacheService, log *logger.Logger, ttl time.Duration) *AnalyticsService {
	if cacheService == nil {
		cacheService = caching.NewNoopCacheService()
	}
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnalyticsService{
		store:        store,
		cacheService: cacheService,
		log:          log,
		ttl:          ttl,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (a *AnalyticsService) activeStock(ctx context.Context) ([]*models.StockRecord, error) {
	active := true
	return repositories.ListAllStock(ctx, a.store.Stock(), models.StockFilter{Active: &active})
}

func (a *AnalyticsService) CategoryTotals(ctx context.Context) ([]CategoryTotal, error) {
	recs, err := a.activeStock(ctx)
	if err != nil {
		return nil, err
	}
	return categoryTotals(recs), nil
}

func categoryTotals(recs []*models.StockRecord) []CategoryTotal {
	byCategory := make(map[models.StockCategory]*CategoryTotal, len(models.StockCategories))
	totals := make([]CategoryTotal, len(models.StockCategories))
	for i, c := range models.StockCategories {
		totals[i].Category = c
		byCategory[c] = &totals[i]
	}
	for _, rec := range recs {
		t, ok := byCategory[rec.Category]
		if !ok {
			continue
		}
		t.Items++
		t.TotalQuantity += rec.TotalQuantity
		switch rec.Status() {
		case models.StatusOutOfStock:
			t.OutOfStock++
		case models.StatusCritical:
			t.Critical++
		case models.StatusLow:
			t.Low++
		default:
			t.Sufficient++
		}
	}
	return totals
}

// Alerts lists item and shelter alerts visible to caller. Staff only see shelter
// alerts for their own shelter; viewers see item alerts only.
func (a *AnalyticsService) Alerts(ctx context.Context, caller models.Caller) ([]Alert, error) {
	recs, err := a.activeStock(ctx)
	if err != nil {
		return nil, err
	}
	return filterAlerts(caller, BuildAlerts(recs)), nil
}

// BuildAlerts derives item alerts from status and shelter_low alerts from entries
// at or below the minimum stock level.
func BuildAlerts(recs []*models.StockRecord) []Alert {
	alerts := []Alert{}
	for _, rec := range recs {
		base := Alert{
			StockItemID:   rec.ID,
			ItemName:      rec.ItemName,
			Category:      rec.Category,
			Quantity:      rec.TotalQuantity,
			MinStockLevel: rec.MinStockLevel,
			CriticalLevel: rec.CriticalLevel,
		}
		switch rec.Status() {
		case models.StatusOutOfStock:
			base.Kind = AlertOutOfStock
			alerts = append(alerts, base)
		case models.StatusCritical:
			base.Kind = AlertCritical
			alerts = append(alerts, base)
		case models.StatusLow:
			base.Kind = AlertLow
			alerts = append(alerts, base)
		}

		shelterIDs := make([]uuid.UUID, 0, len(rec.ShelterQuantities))
		for id := range rec.ShelterQuantities {
			shelterIDs = append(shelterIDs, id)
		}
		sort.Slice(shelterIDs, func(i, j int) bool { return shelterIDs[i].String() < shelterIDs[j].String() })
		for _, id := range shelterIDs {
			entry := rec.ShelterQuantities[id]
			if entry.Quantity > rec.MinStockLevel {
				continue
			}
			shelterID := id
			alert := base
			alert.Kind = AlertShelterLow
			alert.ShelterID = &shelterID
			alert.Quantity = entry.Quantity
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

func filterAlerts(caller models.Caller, alerts []Alert) []Alert {
	if caller.IsAdmin() {
		return alerts
	}
	out := make([]Alert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.ShelterID == nil || caller.AssignedTo(*alert.ShelterID) {
			out = append(out, alert)
		}
	}
	return out
}

// Turnover computes dispensed ÷ average(start total, end total) for each active
// item over [from, to]. Start and end totals are rebuilt from the current total
// by undoing later movements.
func (a *AnalyticsService) Turnover(ctx context.Context, from, to time.Time, itemID *uuid.UUID) ([]TurnoverReport, error) {
	var recs []*models.StockRecord
	if itemID != nil {
		rec, err := a.store.Stock().GetByID(ctx, *itemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, common.NotFound(common.MsgItemNotFound, itemID.String())
		}
		if err != nil {
			return nil, err
		}
		recs = []*models.StockRecord{rec}
	} else {
		var err error
		if recs, err = a.activeStock(ctx); err != nil {
			return nil, err
		}
	}

	movements, err := repositories.ListAllMovements(ctx, a.store.Movements(), models.MovementFilter{StockItemID: itemID, From: &from})
	if err != nil {
		return nil, err
	}

	type window struct{ inPeriod, after, dispensed int }
	windows := make(map[uuid.UUID]*window, len(recs))
	for _, m := range movements {
		w, ok := windows[m.StockItemID]
		if !ok {
			w = &window{}
			windows[m.StockItemID] = w
		}
		delta := netEffect(m)
		if m.PerformedAt.After(to) {
			w.after += delta
			continue
		}
		w.inPeriod += delta
		if m.MovementType == models.MovementDispense {
			w.dispensed += m.Quantity
		}
	}

	reports := make([]TurnoverReport, 0, len(recs))
	two := decimal.NewFromInt(2)
	for _, rec := range recs {
		w := windows[rec.ID]
		if w == nil {
			w = &window{}
		}
		end := rec.TotalQuantity - w.after
		start := end - w.inPeriod
		avg := decimal.NewFromInt(int64(start + end)).Div(two)
		rate := decimal.Zero
		if avg.IsPositive() {
			rate = decimal.NewFromInt(int64(w.dispensed)).Div(avg).Round(4)
		}
		reports = append(reports, TurnoverReport{
			StockItemID:  rec.ID,
			ItemName:     rec.ItemName,
			From:         from,
			To:           to,
			Dispensed:    w.dispensed,
			StartTotal:   start,
			EndTotal:     end,
			AverageStock: avg,
			Rate:         rate,
		})
	}
	return reports, nil
}

// netEffect is how much a movement changed the item's total.
func netEffect(m *models.MovementRecord) int {
	var t models.MovementTotals
	t.Add(m)
	return t.Net()
}

// Dashboard returns the cached overview, computing it on a miss.
func (a *AnalyticsService) Dashboard(ctx context.Context, caller models.Caller) (*Dashboard, error) {
	var cached Dashboard
	hit, err := a.cacheService.GetAnalytics(ctx, dashboardCacheKey, &cached)
	if err != nil {
		a.log.Warn().Err(err).Msg("dashboard cache read failed")
	}
	if hit {
		return scopeDashboard(caller, &cached), nil
	}

	dash, err := a.RefreshDashboard(ctx)
	if err != nil {
		return nil, err
	}
	return scopeDashboard(caller, dash), nil
}

// RefreshDashboard recomputes the overview and stores it in the cache.
func (a *AnalyticsService) RefreshDashboard(ctx context.Context) (*Dashboard, error) {
	var (
		recs   []*models.StockRecord
		recent []*models.MovementRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recs, err = a.activeStock(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = a.store.Movements().Query(gctx, &models.MovementFilter{Limit: 20})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dash := &Dashboard{
		GeneratedAt:     a.now(),
		TotalItems:      len(recs),
		Categories:      categoryTotals(recs),
		Alerts:          BuildAlerts(recs),
		RecentMovements: recent,
	}
	if err := a.cacheService.SetAnalytics(ctx, dashboardCacheKey, dash, a.ttl); err != nil {
		a.log.Warn().Err(err).Msg("dashboard cache write failed")
	}
	return dash, nil
}

func scopeDashboard(caller models.Caller, dash *Dashboard) *Dashboard {
	if caller.IsAdmin() {
		return dash
	}
	scoped := *dash
	scoped.Alerts = filterAlerts(caller, dash.Alerts)
	scoped.RecentMovements = nil
	if caller.Role == models.RoleStaff && caller.AssignedShelterID != nil {
		for _, m := range dash.RecentMovements {
			if m.TouchesShelter(*caller.AssignedShelterID) {
				scoped.RecentMovements = append(scoped.RecentMovements, m)
			}
		}
	}
	return &scoped
}

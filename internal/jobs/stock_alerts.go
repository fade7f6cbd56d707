package jobs

import (
	"context"

	"reliefledger/internal/analytics"
	"reliefledger/internal/models"
	"reliefledger/internal/repositories"
	"reliefledger/pkg/logger"
)

type StockAlertService struct {
	stockRepo repositories.StockRepository
	log       *logger.Logger
}

func NewStockAlertService(stockRepo repositories.StockRepository, log *logger.Logger) *StockAlertService {
	return &StockAlertService{
		stockRepo: stockRepo,
		log:       log,
	}
}

// CheckStock returns alerts for every active item below its thresholds.
func (a *StockAlertService) CheckStock(ctx context.Context) ([]analytics.Alert, error) {
	active := true
	recs, err := repositories.ListAllStock(ctx, a.stockRepo, models.StockFilter{Active: &active})
	if err != nil {
		a.log.Error().Err(err).Msg("failed to list stock for alerts")
		return nil, err
	}
	return analytics.BuildAlerts(recs), nil
}

func (a *StockAlertService) LogAlerts(alerts []analytics.Alert) {
	if len(alerts) == 0 {
		a.log.Debug().Msg("no stock alerts")
		return
	}

	for _, alert := range alerts {
		ev := a.log.Warn()
		if alert.Kind == analytics.AlertOutOfStock || alert.Kind == analytics.AlertCritical {
			ev = a.log.Error()
		}
		ev = ev.Str("kind", string(alert.Kind)).
			Str("stock_item_id", alert.StockItemID.String()).
			Str("item", alert.ItemName).
			Int("quantity", alert.Quantity).
			Int("min_stock_level", alert.MinStockLevel)
		if alert.ShelterID != nil {
			ev = ev.Str("shelter_id", alert.ShelterID.String())
		}
		ev.Msg("stock alert")
	}
}

// ScheduledStockCheck is the periodic alerts task.
func (a *StockAlertService) ScheduledStockCheck(ctx context.Context) error {
	alerts, err := a.CheckStock(ctx)
	if err != nil {
		return err
	}
	a.LogAlerts(alerts)
	a.log.Info().Int("alerts", len(alerts)).Msg("stock alert check completed")
	return nil
}

package jobs

import (
	"context"
	"time"

	"reliefledger/internal/analytics"
	"reliefledger/pkg/logger"
)

type AnalyticsRefreshService struct {
	analyticsService *analytics.AnalyticsService
	log              *logger.Logger
}

type AnalyticsRefreshResult struct {
	TotalItems    int
	Alerts        int
	LastRefreshAt time.Time
}

func NewAnalyticsRefreshService(analyticsService *analytics.AnalyticsService, log *logger.Logger) *AnalyticsRefreshService {
	return &AnalyticsRefreshService{
		analyticsService: analyticsService,
		log:              log,
	}
}

// RefreshDashboard recomputes the cached dashboard.
func (a *AnalyticsRefreshService) RefreshDashboard(ctx context.Context) (*AnalyticsRefreshResult, error) {
	dash, err := a.analyticsService.RefreshDashboard(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to refresh dashboard")
		return nil, err
	}

	result := &AnalyticsRefreshResult{
		TotalItems:    dash.TotalItems,
		Alerts:        len(dash.Alerts),
		LastRefreshAt: dash.GeneratedAt,
	}
	a.log.Info().Int("items", result.TotalItems).Int("alerts", result.Alerts).Msg("dashboard refreshed")
	return result, nil
}

func (a *AnalyticsRefreshService) ScheduledRefresh(ctx context.Context) error {
	_, err := a.RefreshDashboard(ctx)
	return err
}

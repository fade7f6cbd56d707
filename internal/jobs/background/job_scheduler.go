package background

import (
	"context"
	"sort"
	"sync"
	"time"

	"reliefledger/internal/jobs"
	"reliefledger/pkg/logger"

	"github.com/go-co-op/gocron/v2"
)

const (
	JobStockAlerts       = "stock-alerts"
	JobLedgerConsistency = "ledger-consistency"
	JobMovementExport    = "movement-export"
	JobAnalyticsRefresh  = "analytics-refresh"
)

// Intervals sets how often each background job runs.
type Intervals struct {
	Alerts      time.Duration
	Consistency time.Duration
	Export      time.Duration
	Analytics   time.Duration
}

// JobScheduler runs the ledger's periodic jobs
type JobScheduler struct {
	scheduler   gocron.Scheduler
	alerts      *jobs.StockAlertService
	consistency *jobs.ConsistencyChecker
	exporter    *jobs.MovementExporter
	refresher   *jobs.AnalyticsRefreshService
	log         *logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	jobJobs     map[string]gocron.Job
	mu          sync.RWMutex
}

// JobInfo is the reported state of one scheduled job.
type JobInfo struct {
	Name    string     `json:"name"`
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

// NewJobScheduler creates a scheduler with every job registered
func NewJobScheduler(intervals Intervals, alerts *jobs.StockAlertService, consistency *jobs.ConsistencyChecker,
	exporter *jobs.MovementExporter, refresher *jobs.AnalyticsRefreshService, log *logger.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler:   scheduler,
		alerts:      alerts,
		consistency: consistency,
		exporter:    exporter,
		refresher:   refresher,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
		jobJobs:     make(map[string]gocron.Job),
	}

	js.registerJobs(intervals)

	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	js.log.Info().Int("jobs", len(js.jobJobs)).Msg("starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop cancels running jobs and waits for them to return
func (js *JobScheduler) Stop() error {
	js.log.Info().Msg("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(intervals Intervals) {
	if js.alerts != nil {
		js.register(JobStockAlerts, intervals.Alerts, js.alerts.ScheduledStockCheck)
	}
	if js.consistency != nil {
		js.register(JobLedgerConsistency, intervals.Consistency, js.consistency.ScheduledConsistencyCheck)
	}
	if js.exporter != nil && js.exporter.Enabled() {
		js.register(JobMovementExport, intervals.Export, js.exporter.ScheduledExport)
	}
	if js.refresher != nil {
		js.register(JobAnalyticsRefresh, intervals.Analytics, js.refresher.ScheduledRefresh)
	}

	js.log.Info().Int("jobs", len(js.jobJobs)).Msg("registered background jobs")
}

func (js *JobScheduler) register(name string, interval time.Duration, task func(ctx context.Context) error) {
	if interval <= 0 {
		js.log.Warn().Str("job", name).Msg("job disabled: non-positive interval")
		return
	}

	if err := js.AddJob(name, interval, task); err != nil {
		js.log.Error().Err(err).Str("job", name).Msg("failed to create job")
	}
}

// AddJob schedules task every interval under name. A job never overlaps itself.
func (js *JobScheduler) AddJob(name string, interval time.Duration, task func(ctx context.Context) error) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			started := time.Now()
			if err := task(ctx); err != nil {
				js.log.Error().Err(err).Str("job", name).Msg("job failed")
				return
			}
			js.log.Debug().Str("job", name).Dur("took", time.Since(started)).Msg("job finished")
		}, js.ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	js.jobJobs[name] = job
	return nil
}

// RemoveJob removes a job from the scheduler
func (js *JobScheduler) RemoveJob(name string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if job, exists := js.jobJobs[name]; exists {
		err := js.scheduler.RemoveJob(job.ID())
		delete(js.jobJobs, name)
		return err
	}

	return nil
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	infos := make([]JobInfo, 0, len(js.jobJobs))
	for name, job := range js.jobJobs {
		info := JobInfo{Name: name}
		if last, err := job.LastRun(); err == nil && !last.IsZero() {
			info.LastRun = &last
		}
		if next, err := job.NextRun(); err == nil && !next.IsZero() {
			info.NextRun = &next
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return map[string]interface{}{
		"total_jobs": len(infos),
		"jobs":       infos,
	}
}

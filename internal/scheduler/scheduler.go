package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/config"
	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/service/reporting"
)

const jobTimeout = 5 * time.Minute

// Reconciler repairs lot volumes from the withdrawal ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) (*models.ReconciliationReport, error)
}

// Reporter produces the daily snapshot and the alert digest.
type Reporter interface {
	Inventory(ctx context.Context) (models.InventoryReport, error)
	SaveSnapshot(ctx context.Context) (*models.InventorySnapshot, error)
}

// Notifier delivers the alert digest.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron           *cron.Cron
	cfg            config.ReportingConfig
	reconciler     Reconciler
	reporter       Reporter
	notifier       Notifier
	alertRecipient string
	logger         *zap.Logger
}

// NewScheduler creates a new scheduler instance. notifier may be nil, in which
// case the daily job only archives the snapshot.
func NewScheduler(cfg config.ReportingConfig, location *time.Location, reconciler Reconciler, reporter Reporter, notifier Notifier, alertRecipient string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}

	return &Scheduler{
		cron:           cron.New(cron.WithLocation(location)),
		cfg:            cfg,
		reconciler:     reconciler,
		reporter:       reporter,
		notifier:       notifier,
		alertRecipient: alertRecipient,
		logger:         logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("reconcile", s.cfg.ReconcileSchedule),
		zap.String("snapshot", s.cfg.SnapshotSchedule),
	)

	if _, err := s.cron.AddFunc(s.cfg.ReconcileSchedule, s.runReconciliation); err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", s.cfg.ReconcileSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.SnapshotSchedule, s.runDailyReport); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.cfg.SnapshotSchedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runReconciliation() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.reconciler.Reconcile(ctx); err != nil {
		s.logger.Error("scheduled reconciliation failed", zap.Error(err))
	}
}

func (s *Scheduler) runDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.reporter.SaveSnapshot(ctx); err != nil {
		s.logger.Error("failed to save inventory snapshot", zap.Error(err))
	}

	if s.notifier == nil || s.alertRecipient == "" {
		return
	}

	report, err := s.reporter.Inventory(ctx)
	if err != nil {
		s.logger.Error("failed to build alert digest", zap.Error(err))
		return
	}

	req := models.OutboundMessageRequest{
		To:      s.alertRecipient,
		Message: reporting.AlertSummary(report),
	}
	if err := s.notifier.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send alert digest", zap.Error(err))
		return
	}
	s.logger.Info("alert digest sent")
}

package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

// ReportArchive stores reconciliation reports.
type ReportArchive interface {
	SaveReconciliationReport(ctx context.Context, report models.ReconciliationReport) error
}

// ArchivingReconciler runs a reconciliation and keeps a copy of the report.
// Archive failures are logged and never fail the pass, the sheet is already
// corrected by then.
type ArchivingReconciler struct {
	reconciler Reconciler
	archive    ReportArchive
	logger     *zap.Logger
}

// NewArchivingReconciler wraps reconciler. archive may be nil.
func NewArchivingReconciler(reconciler Reconciler, archive ReportArchive, logger *zap.Logger) *ArchivingReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchivingReconciler{reconciler: reconciler, archive: archive, logger: logger}
}

// Reconcile runs one pass and archives the result.
func (a *ArchivingReconciler) Reconcile(ctx context.Context) (*models.ReconciliationReport, error) {
	report, err := a.reconciler.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	if a.archive != nil {
		if err := a.archive.SaveReconciliationReport(ctx, *report); err != nil {
			a.logger.Error("failed to archive reconciliation report", zap.Error(err))
		}
	}
	return report, nil
}

package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

// Reconcile recomputes every lot's current volume as original minus the sum
// of its ledger entries and rewrites cells that drifted. A negative result is
// reported as an anomaly and left untouched. The ledger lock is held for the
// whole pass so no withdrawal lands between read and correction.
func (e *Engine) Reconcile(ctx context.Context) (*models.ReconciliationReport, error) {
	report := &models.ReconciliationReport{StartedAt: e.now().UTC()}

	unlock, err := e.lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	defer unlock()

	lots, lotDiags, err := e.store.GetAllLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	entries, entryDiags, err := e.store.GetAllWithdrawalEntries(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	report.Anomalies = append(report.Anomalies, lotDiags...)
	report.Anomalies = append(report.Anomalies, entryDiags...)

	withdrawn := make(map[string]decimal.Decimal)
	for _, entry := range entries {
		withdrawn[entry.LotCode] = withdrawn[entry.LotCode].Add(entry.Amount)
	}

	known := make(map[string]bool, len(lots))
	for _, lot := range lots {
		known[lot.Code] = true
		report.CheckedLots++

		expected := lot.OriginalVolume.Sub(withdrawn[lot.Code])
		if expected.IsNegative() {
			report.Anomalies = append(report.Anomalies, models.Diagnostic{
				Source:  models.SourceWithdrawals,
				Row:     lot.Row,
				LotCode: lot.Code,
				Message: fmt.Sprintf("ledger withdrawals exceed original volume by %s", expected.Neg()),
			})
			continue
		}
		if expected.Equal(lot.CurrentVolume) {
			continue
		}

		ok, err := e.store.UpdateLotFields(ctx, lot.Code, map[string]string{models.KeyCurrentVolume: expected.String()})
		if err != nil || !ok {
			msg := "lot disappeared during reconciliation"
			if err != nil {
				msg = err.Error()
			}
			report.Failed = append(report.Failed, models.Diagnostic{
				Source:  models.SourceLots,
				Row:     lot.Row,
				LotCode: lot.Code,
				Message: msg,
			})
			continue
		}

		e.logger.Warn("current volume corrected",
			zap.String("lot_code", lot.Code),
			zap.String("recorded", lot.CurrentVolume.String()),
			zap.String("expected", expected.String()),
		)
		report.Corrections = append(report.Corrections, models.VolumeCorrection{
			LotCode:      lot.Code,
			Recorded:     lot.CurrentVolume,
			Expected:     expected,
			RecordedText: lot.CurrentVolume.String(),
			ExpectedText: expected.String(),
		})
	}

	var orphans []string
	for code := range withdrawn {
		if !known[code] {
			orphans = append(orphans, code)
		}
	}
	sort.Strings(orphans)
	for _, code := range orphans {
		report.Anomalies = append(report.Anomalies, models.Diagnostic{
			Source:  models.SourceWithdrawals,
			LotCode: code,
			Message: "withdrawal entries reference an unknown lot",
		})
	}

	e.metrics.AddCorrections(len(report.Corrections))
	report.FinishedAt = e.now().UTC()
	e.logger.Info("reconciliation finished",
		zap.Int("checked", report.CheckedLots),
		zap.Int("corrections", len(report.Corrections)),
		zap.Int("anomalies", len(report.Anomalies)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

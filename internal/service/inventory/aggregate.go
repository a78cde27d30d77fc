package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

const hoursPerDay = 24

var daysPerYear = decimal.NewFromInt(365)

// Aggregate joins withdrawal entries to lots and derives each lot's view.
// It does no I/O and never fails: problems are reported as diagnostics and
// the affected signal is left unknown.
func Aggregate(lots []models.SeedLot, entries []models.WithdrawalEntry, now time.Time, policy Policy) models.InventoryReport {
	report := models.InventoryReport{
		GeneratedAt: now,
		Lots:        make([]models.AggregatedLotView, 0, len(lots)),
	}

	byLot := make(map[string][]models.WithdrawalEntry)
	for _, e := range entries {
		byLot[e.LotCode] = append(byLot[e.LotCode], e)
	}

	known := make(map[string]bool, len(lots))
	today := dayOf(now)

	for _, lot := range lots {
		known[lot.Code] = true
		view := models.AggregatedLotView{
			SeedLot:    lot,
			Thresholds: policy.ThresholdsFor(lot.Crop),
		}

		for i, e := range byLot[lot.Code] {
			view.TotalWithdrawn = view.TotalWithdrawn.Add(e.Amount)
			view.WithdrawalCount++
			if view.LastWithdrawal == nil || !e.Timestamp.Before(view.LastWithdrawal.Timestamp) {
				view.LastWithdrawal = &byLot[lot.Code][i]
			}
		}

		view.RemainingVolume = lot.OriginalVolume.Sub(view.TotalWithdrawn)
		if view.RemainingVolume.IsNegative() {
			view.Overdrawn = true
			report.Diagnostics = append(report.Diagnostics, models.Diagnostic{
				Source:  models.SourceAggregation,
				Row:     lot.Row,
				LotCode: lot.Code,
				Message: fmt.Sprintf("withdrawals exceed original volume, remaining %s", view.RemainingVolume),
			})
		}

		if stored, err := models.ParseSheetDate(lot.StoredDate); err != nil {
			report.Diagnostics = append(report.Diagnostics, models.Diagnostic{
				Source:  models.SourceAggregation,
				Row:     lot.Row,
				LotCode: lot.Code,
				Message: fmt.Sprintf("unparseable stored date %q", lot.StoredDate),
			})
		} else {
			sinceStored := daysBetween(dayOf(stored), today)
			untilExpiry := daysBetween(today, dayOf(stored).AddDate(0, 0, policy.ShelfLifeDays))
			view.DaysSinceStored = &sinceStored
			view.DaysUntilExpiry = &untilExpiry

			divisor := sinceStored
			if divisor < 1 {
				divisor = 1
			}
			view.AnnualizedWithdrawal = view.TotalWithdrawn.Mul(daysPerYear).Div(decimal.NewFromInt(int64(divisor))).Round(2)
		}

		if view.LastWithdrawal != nil {
			since := daysBetween(dayOf(view.LastWithdrawal.Timestamp.In(now.Location())), today)
			view.DaysSinceLastWithdrawal = &since
		}

		view.Status, view.Alerts = policy.Classify(Signals{
			Remaining:               view.RemainingVolume,
			Thresholds:              view.Thresholds,
			DaysSinceLastWithdrawal: view.DaysSinceLastWithdrawal,
			DaysUntilExpiry:         view.DaysUntilExpiry,
			AnnualizedWithdrawal:    view.AnnualizedWithdrawal,
		})

		report.Lots = append(report.Lots, view)
	}

	var orphans []string
	for code := range byLot {
		if !known[code] {
			orphans = append(orphans, code)
		}
	}
	sort.Strings(orphans)
	for _, code := range orphans {
		report.Diagnostics = append(report.Diagnostics, models.Diagnostic{
			Source:  models.SourceAggregation,
			LotCode: code,
			Message: fmt.Sprintf("%d withdrawal entries reference an unknown lot", len(byLot[code])),
		})
	}

	return report
}

// FilterWindow keeps entries with from <= timestamp < to, ordered by timestamp.
// A zero bound is open.
func FilterWindow(entries []models.WithdrawalEntry, from, to time.Time) []models.WithdrawalEntry {
	out := make([]models.WithdrawalEntry, 0, len(entries))
	for _, e := range entries {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Timestamp.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / hoursPerDay)
}

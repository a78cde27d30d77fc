package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

const maxAlertLines = 15

// AlertSummary renders Critical and Warning lots as a short text message,
// most severe first.
func AlertSummary(report models.InventoryReport) string {
	var flagged []models.AggregatedLotView
	for _, view := range report.Lots {
		if !view.Archived && view.Status != models.StatusNormal {
			flagged = append(flagged, view)
		}
	}

	date := report.GeneratedAt.Format(dateLayout)
	if len(flagged) == 0 {
		return fmt.Sprintf("Seed bank alerts (%s): all lots normal.", date)
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		if flagged[i].Status.Rank() != flagged[j].Status.Rank() {
			return flagged[i].Status.Rank() > flagged[j].Status.Rank()
		}
		return flagged[i].RemainingVolume.LessThan(flagged[j].RemainingVolume)
	})

	var counts models.StatusCounts
	for _, view := range flagged {
		counts.Add(view.Status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Seed bank alerts (%s): %d critical, %d warning.", date, counts.Critical, counts.Warning)
	for i, view := range flagged {
		if i == maxAlertLines {
			fmt.Fprintf(&b, "\n...and %d more.", len(flagged)-maxAlertLines)
			break
		}
		fmt.Fprintf(&b, "\n[%s] %s %s %s: %s", view.Status, view.Code, view.RemainingVolume, view.Unit, strings.Join(view.Alerts, "; "))
	}
	return b.String()
}

// StockSummary renders one lot for a chat reply.
func StockSummary(view models.AggregatedLotView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s %s)\nRemaining %s of %s %s, %d withdrawals.\nStatus: %s",
		view.Code, view.Crop, view.Variety,
		view.RemainingVolume, view.OriginalVolume, view.Unit, view.WithdrawalCount,
		view.Status,
	)
	if len(view.Alerts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(view.Alerts, "; "))
	}
	if view.LastWithdrawal != nil {
		fmt.Fprintf(&b, "\nLast withdrawal %s on %s.", view.LastWithdrawal.Amount, view.LastWithdrawal.Timestamp.Format(dateLayout))
	}
	return b.String()
}

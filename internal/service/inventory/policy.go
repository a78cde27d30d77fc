package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

// Policy holds the constants of the status rules.
type Policy struct {
	ShelfLifeDays        int
	ExpiryWarningDays    int
	CriticalExpiryDays   int
	AgingDays            int
	CriticalAgingDays    int
	HighAnnualWithdrawal decimal.Decimal
	DefaultThresholds    models.Thresholds
	// CropThresholds is keyed by lower-case crop name.
	CropThresholds map[string]models.Thresholds
}

// DefaultPolicy returns the thresholds used by the seed bank.
func DefaultPolicy() Policy {
	return Policy{
		ShelfLifeDays:        1095,
		ExpiryWarningDays:    30,
		CriticalExpiryDays:   7,
		AgingDays:            180,
		CriticalAgingDays:    365,
		HighAnnualWithdrawal: decimal.NewFromInt(1000),
		DefaultThresholds:    thresholds(100, 50),
		CropThresholds: map[string]models.Thresholds{
			"rice":     thresholds(100, 50),
			"corn":     thresholds(150, 75),
			"mungbean": thresholds(50, 25),
			"peanut":   thresholds(80, 40),
			"soybean":  thresholds(80, 40),
			"tomato":   thresholds(20, 10),
			"eggplant": thresholds(20, 10),
			"pepper":   thresholds(20, 10),
		},
	}
}

func thresholds(low, veryLow int64) models.Thresholds {
	return models.Thresholds{Low: decimal.NewFromInt(low), VeryLow: decimal.NewFromInt(veryLow)}
}

// ThresholdsFor looks up the crop's pair, falling back to the default.
func (p Policy) ThresholdsFor(crop string) models.Thresholds {
	if t, ok := p.CropThresholds[strings.ToLower(strings.TrimSpace(crop))]; ok {
		return t
	}
	return p.DefaultThresholds
}

// Signals are the per-lot inputs to Classify. Nil day counts are unknown and
// never trigger a rule.
type Signals struct {
	Remaining               decimal.Decimal
	Thresholds              models.Thresholds
	DaysSinceLastWithdrawal *int
	DaysUntilExpiry         *int
	AnnualizedWithdrawal    decimal.Decimal
}

// Classify returns the most severe matching status and one alert per matched rule.
func (p Policy) Classify(s Signals) (models.Status, []string) {
	var critical, warning []string

	if s.Remaining.LessThan(s.Thresholds.VeryLow) {
		critical = append(critical, fmt.Sprintf("volume %s below very low threshold %s", s.Remaining, s.Thresholds.VeryLow))
	} else if s.Remaining.LessThan(s.Thresholds.Low) {
		warning = append(warning, fmt.Sprintf("volume %s below low threshold %s", s.Remaining, s.Thresholds.Low))
	}

	if d := s.DaysSinceLastWithdrawal; d != nil {
		switch {
		case *d > p.CriticalAgingDays:
			critical = append(critical, fmt.Sprintf("no withdrawal for %d days", *d))
		case *d > p.AgingDays:
			warning = append(warning, fmt.Sprintf("no withdrawal for %d days", *d))
		}
	}

	if d := s.DaysUntilExpiry; d != nil {
		switch {
		case *d > 0 && *d < p.CriticalExpiryDays:
			critical = append(critical, fmt.Sprintf("expires in %d days", *d))
		case *d <= 0:
			warning = append(warning, fmt.Sprintf("expired %d days ago", -*d))
		case *d < p.ExpiryWarningDays:
			warning = append(warning, fmt.Sprintf("expires in %d days", *d))
		}
	}

	if s.AnnualizedWithdrawal.GreaterThan(p.HighAnnualWithdrawal) {
		warning = append(warning, fmt.Sprintf("annualized withdrawal %s above %s", s.AnnualizedWithdrawal, p.HighAnnualWithdrawal))
	}

	alerts := append(critical, warning...)
	switch {
	case len(critical) > 0:
		return models.StatusCritical, alerts
	case len(warning) > 0:
		return models.StatusWarning, alerts
	default:
		return models.StatusNormal, nil
	}
}

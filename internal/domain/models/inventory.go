package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the derived alert classification of a lot.
type Status string

const (
	StatusNormal   Status = "Normal"
	StatusWarning  Status = "Warning"
	StatusCritical Status = "Critical"
)

// Rank orders statuses by severity.
func (s Status) Rank() int {
	switch s {
	case StatusCritical:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Thresholds is the crop-specific volume threshold pair.
type Thresholds struct {
	Low     decimal.Decimal `json:"low"`
	VeryLow decimal.Decimal `json:"veryLow"`
}

// AggregatedLotView is computed per lot at read time and never persisted.
type AggregatedLotView struct {
	SeedLot

	RemainingVolume         decimal.Decimal  `json:"remainingVolume"`
	TotalWithdrawn          decimal.Decimal  `json:"totalWithdrawn"`
	WithdrawalCount         int              `json:"withdrawalCount"`
	LastWithdrawal          *WithdrawalEntry `json:"lastWithdrawal"`
	DaysSinceStored         *int             `json:"daysSinceStored"`
	DaysUntilExpiry         *int             `json:"daysUntilExpiry"`
	DaysSinceLastWithdrawal *int             `json:"daysSinceLastWithdrawal"`
	AnnualizedWithdrawal    decimal.Decimal  `json:"annualizedWithdrawal"`
	Thresholds              Thresholds       `json:"thresholds"`
	Status                  Status           `json:"status"`
	Alerts                  []string         `json:"alerts"`
	// Overdrawn marks a negative remaining volume, which means the ledger and lot sheet disagree.
	Overdrawn bool `json:"overdrawn"`
}

// InventoryReport is the output of one aggregation pass.
type InventoryReport struct {
	GeneratedAt time.Time           `json:"generatedAt"`
	Lots        []AggregatedLotView `json:"lots"`
	Diagnostics []Diagnostic        `json:"diagnostics"`
}

// StatusCounts tallies lots per status.
type StatusCounts struct {
	Normal   int `bson:"normal" json:"normal"`
	Warning  int `bson:"warning" json:"warning"`
	Critical int `bson:"critical" json:"critical"`
}

// Add counts one lot.
func (c *StatusCounts) Add(s Status) {
	switch s {
	case StatusCritical:
		c.Critical++
	case StatusWarning:
		c.Warning++
	default:
		c.Normal++
	}
}

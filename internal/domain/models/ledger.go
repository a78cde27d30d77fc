package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalEntry is one immutable row of the Withdrawal Logs sheet.
type WithdrawalEntry struct {
	ID            string          `json:"id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	LotCode       string          `json:"lotCode"`
	InventoryType InventoryType   `json:"inventoryType"`
	Amount        decimal.Decimal `json:"amount"`
	PreviousValue decimal.Decimal `json:"previousValue"`
	NewValue      decimal.Decimal `json:"newValue"`
	Reason        string          `json:"reason,omitempty"`
	User          string          `json:"user,omitempty"`
}

// FieldChange holds the before and after value of one lot field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// EditLogEntry is one immutable row of the Edit Logs sheet. Snapshots only carry changed keys.
type EditLogEntry struct {
	Timestamp        time.Time         `json:"timestamp"`
	LotCode          string            `json:"lotCode"`
	PreviousSnapshot map[string]string `json:"previousSnapshot"`
	NewSnapshot      map[string]string `json:"newSnapshot"`
	UserRole         string            `json:"userRole"`
}

// WithdrawalResult is returned for an accepted withdrawal.
type WithdrawalResult struct {
	LotCode        string          `json:"lotCode"`
	PreviousVolume decimal.Decimal `json:"previousVolume"`
	NewVolume      decimal.Decimal `json:"newVolume"`
	Amount         decimal.Decimal `json:"amount"`
	Timestamp      time.Time       `json:"timestamp"`
	EntryID        string          `json:"entryId"`
}

// VolumeCorrection records a Current Volume cell rewritten by reconciliation.
type VolumeCorrection struct {
	LotCode  string          `bson:"lot_code" json:"lotCode"`
	Recorded decimal.Decimal `bson:"-" json:"recorded"`
	Expected decimal.Decimal `bson:"-" json:"expected"`
	// String copies keep the BSON document free of custom codecs.
	RecordedText string `bson:"recorded" json:"-"`
	ExpectedText string `bson:"expected" json:"-"`
}

// ReconciliationReport summarises one pass of the ledger reconciliation job.
type ReconciliationReport struct {
	StartedAt   time.Time          `bson:"started_at" json:"startedAt"`
	FinishedAt  time.Time          `bson:"finished_at" json:"finishedAt"`
	CheckedLots int                `bson:"checked_lots" json:"checkedLots"`
	Corrections []VolumeCorrection `bson:"corrections" json:"corrections"`
	Anomalies   []Diagnostic       `bson:"anomalies" json:"anomalies"`
	Failed      []Diagnostic       `bson:"failed" json:"failed"`
}

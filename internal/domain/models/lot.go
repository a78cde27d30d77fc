package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryType distinguishes the two inventories kept in the lot sheet.
type InventoryType string

const (
	InventorySeedStorage       InventoryType = "Seed Storage"
	InventoryPlantingMaterials InventoryType = "Planting Materials"
)

// ParseInventoryType maps free-form sheet values onto a known inventory type.
// Anything that is not recognisably planting material is treated as seed storage.
func ParseInventoryType(value string) InventoryType {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	switch {
	case strings.Contains(normalized, "planting"):
		return InventoryPlantingMaterials
	default:
		return InventorySeedStorage
	}
}

// SeedLot is one physical storage unit as recorded in the Form Responses sheet.
type SeedLot struct {
	Code            string          `json:"code"`
	SubmittedAt     string          `json:"submittedAt,omitempty"`
	Crop            string          `json:"crop"`
	Variety         string          `json:"variety"`
	LotNumber       string          `json:"lotNumber"`
	BagNumber       string          `json:"bagNumber"`
	StoredDate      string          `json:"storedDate"`
	HarvestDate     string          `json:"harvestDate"`
	OriginalVolume  decimal.Decimal `json:"originalVolume"`
	CurrentVolume   decimal.Decimal `json:"currentVolume"`
	Unit            string          `json:"unit"`
	SeedClass       string          `json:"seedClass"`
	Location        string          `json:"location"`
	Program         string          `json:"program"`
	MoistureContent string          `json:"moistureContent"`
	GerminationRate string          `json:"germinationRate"`
	Remarks         string          `json:"remarks"`
	InventoryType   InventoryType   `json:"inventoryType"`
	LastModified    string          `json:"lastModified"`
	Archived        bool            `json:"archived"`

	// Row is the 1-based sheet row the lot was read from. Zero for lots not yet persisted.
	Row int `json:"-"`
}

// Diagnostic reports a row that could not be used as-is.
type Diagnostic struct {
	Source  string `json:"source"`
	Row     int    `json:"row,omitempty"`
	LotCode string `json:"lotCode,omitempty"`
	Message string `json:"message"`
}

// Diagnostic sources.
const (
	SourceLots        = "lots"
	SourceWithdrawals = "withdrawals"
	SourceEdits       = "edits"
	SourceAggregation = "aggregation"
)

// TimestampLayout is used for every timestamp the service writes.
const TimestampLayout = time.RFC3339Nano

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"1/2/2006",
	"1/2/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseSheetDate parses the date formats found in the lot sheet. Spreadsheet
// locale settings produce a handful of variants.
func ParseSheetDate(value string) (time.Time, error) {
	str := strings.TrimSpace(value)
	if str == "" {
		return time.Time{}, &time.ParseError{Value: value, Message: ": empty date"}
	}

	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, str)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

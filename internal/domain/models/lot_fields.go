package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Lot field keys used by the API and the edit log.
const (
	KeySubmittedAt     = "submittedAt"
	KeyCrop            = "crop"
	KeyVariety         = "variety"
	KeyLotNumber       = "lotNumber"
	KeyBagNumber       = "bagNumber"
	KeyStoredDate      = "storedDate"
	KeyHarvestDate     = "harvestDate"
	KeyOriginalVolume  = "originalVolume"
	KeyCurrentVolume   = "currentVolume"
	KeyUnit            = "unit"
	KeySeedClass       = "seedClass"
	KeyLocation        = "location"
	KeyProgram         = "program"
	KeyMoistureContent = "moistureContent"
	KeyGerminationRate = "germinationRate"
	KeyRemarks         = "remarks"
	KeyInventoryType   = "inventoryType"
	KeyLastModified    = "lastModified"
	KeyArchived        = "archived"
	KeyCode            = "code"
)

// ErrMissingValue is returned when a required lot column is blank.
var ErrMissingValue = errors.New("missing required value")

// LotField maps one sheet header onto a SeedLot attribute.
type LotField struct {
	Header   string
	Key      string
	Editable bool
	Required bool

	decode   func(lot *SeedLot, raw string) error
	encode   func(lot SeedLot) interface{}
	fallback func(lot *SeedLot)
}

// lotFields is the only place where sheet headers are tied to lot attributes.
// Adding a column means adding a row here.
var lotFields = []LotField{
	textField("Timestamp", KeySubmittedAt, false, func(l *SeedLot) *string { return &l.SubmittedAt }),
	textField("Crop", KeyCrop, true, func(l *SeedLot) *string { return &l.Crop }),
	textField("Variety", KeyVariety, true, func(l *SeedLot) *string { return &l.Variety }),
	textField("Lot Number", KeyLotNumber, true, func(l *SeedLot) *string { return &l.LotNumber }),
	textField("Bag Number", KeyBagNumber, true, func(l *SeedLot) *string { return &l.BagNumber }),
	textField("Stored Date", KeyStoredDate, true, func(l *SeedLot) *string { return &l.StoredDate }),
	textField("Harvest Date", KeyHarvestDate, true, func(l *SeedLot) *string { return &l.HarvestDate }),
	{
		Header:   "Volume",
		Key:      KeyOriginalVolume,
		Required: true,
		decode: func(l *SeedLot, raw string) error {
			v, err := ParseVolume(raw)
			if err != nil {
				return err
			}
			l.OriginalVolume = v
			return nil
		},
		encode: func(l SeedLot) interface{} { return l.OriginalVolume.InexactFloat64() },
	},
	{
		Header: "Current Volume",
		Key:    KeyCurrentVolume,
		decode: func(l *SeedLot, raw string) error {
			v, err := ParseVolume(raw)
			if err != nil {
				return err
			}
			l.CurrentVolume = v
			return nil
		},
		encode: func(l SeedLot) interface{} { return l.CurrentVolume.InexactFloat64() },
		// Fresh form submissions have no live volume yet.
		fallback: func(l *SeedLot) { l.CurrentVolume = l.OriginalVolume },
	},
	textField("Unit", KeyUnit, true, func(l *SeedLot) *string { return &l.Unit }),
	textField("Seed Class", KeySeedClass, true, func(l *SeedLot) *string { return &l.SeedClass }),
	textField("Location", KeyLocation, true, func(l *SeedLot) *string { return &l.Location }),
	textField("Program", KeyProgram, true, func(l *SeedLot) *string { return &l.Program }),
	textField("Moisture Content", KeyMoistureContent, true, func(l *SeedLot) *string { return &l.MoistureContent }),
	textField("Germination Rate", KeyGerminationRate, true, func(l *SeedLot) *string { return &l.GerminationRate }),
	textField("Remarks", KeyRemarks, true, func(l *SeedLot) *string { return &l.Remarks }),
	{
		Header:   "Inventory Type",
		Key:      KeyInventoryType,
		Editable: true,
		decode: func(l *SeedLot, raw string) error {
			l.InventoryType = ParseInventoryType(raw)
			return nil
		},
		encode:   func(l SeedLot) interface{} { return string(l.InventoryType) },
		fallback: func(l *SeedLot) { l.InventoryType = InventorySeedStorage },
	},
	textField("Last Modified", KeyLastModified, false, func(l *SeedLot) *string { return &l.LastModified }),
	{
		Header: "Archived",
		Key:    KeyArchived,
		decode: func(l *SeedLot, raw string) error {
			l.Archived = ParseFlag(raw)
			return nil
		},
		encode: func(l SeedLot) interface{} {
			if l.Archived {
				return "TRUE"
			}
			return "FALSE"
		},
	},
	{
		Header:   "Code",
		Key:      KeyCode,
		Required: true,
		decode: func(l *SeedLot, raw string) error {
			l.Code = raw
			return nil
		},
		encode: func(l SeedLot) interface{} { return l.Code },
	},
}

func textField(header, key string, editable bool, ref func(*SeedLot) *string) LotField {
	return LotField{
		Header:   header,
		Key:      key,
		Editable: editable,
		decode: func(l *SeedLot, raw string) error {
			*ref(l) = raw
			return nil
		},
		encode: func(l SeedLot) interface{} { return *ref(&l) },
	}
}

// LotFields returns the header mapping table in sheet order.
func LotFields() []LotField {
	out := make([]LotField, len(lotFields))
	copy(out, lotFields)
	return out
}

// LookupLotField finds a field by its key.
func LookupLotField(key string) (LotField, bool) {
	for _, f := range lotFields {
		if f.Key == key {
			return f, true
		}
	}
	return LotField{}, false
}

// DecodeLot builds a SeedLot from raw cell values looked up by header.
// Blank optional cells take the field fallback once every column is decoded.
func DecodeLot(cell func(header string) string) (SeedLot, error) {
	var lot SeedLot
	var pending []func(*SeedLot)

	for _, f := range lotFields {
		raw := strings.TrimSpace(cell(f.Header))
		if raw == "" {
			if f.Required {
				return SeedLot{}, fmt.Errorf("%s: %w", f.Header, ErrMissingValue)
			}
			if f.fallback != nil {
				pending = append(pending, f.fallback)
			}
			continue
		}
		if err := f.decode(&lot, raw); err != nil {
			return SeedLot{}, fmt.Errorf("%s: %w", f.Header, err)
		}
	}

	for _, fn := range pending {
		fn(&lot)
	}
	return lot, nil
}

// EncodeLot renders a lot into cell values keyed by header.
func EncodeLot(lot SeedLot) map[string]interface{} {
	out := make(map[string]interface{}, len(lotFields))
	for _, f := range lotFields {
		out[f.Header] = f.encode(lot)
	}
	return out
}

// FieldValue returns the text form of a single lot attribute.
func (f LotField) FieldValue(lot SeedLot) string {
	return fmt.Sprint(f.encode(lot))
}

// ParseVolume parses a non-negative volume cell. Thousands separators are tolerated.
func ParseVolume(raw string) (decimal.Decimal, error) {
	str := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	str = strings.ReplaceAll(str, " ", "")
	if str == "" {
		return decimal.Zero, fmt.Errorf("volume: %w", ErrMissingValue)
	}
	v, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero, fmt.Errorf("volume %q is not numeric", raw)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("volume %q is negative", raw)
	}
	return v, nil
}

// ParseFlag reads the checkbox-ish values spreadsheets produce.
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1", "archived", "x":
		return true
	default:
		return false
	}
}

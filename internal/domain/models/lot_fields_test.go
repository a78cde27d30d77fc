package models

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cells(values map[string]string) func(string) string {
	return func(header string) string { return values[header] }
}

func TestDecodeLot_FullRow(t *testing.T) {
	lot, err := DecodeLot(cells(map[string]string{
		"Crop":           "Rice",
		"Variety":        "NSIC Rc222",
		"Stored Date":    "2024-03-01",
		"Volume":         "1,250.5",
		"Current Volume": "1000",
		"Inventory Type": "planting_materials",
		"Archived":       "TRUE",
		"Code":           "NSIC Rc222-UNK-UNK-2024-03-01-UNK",
	}))

	require.NoError(t, err)
	assert.Equal(t, "Rice", lot.Crop)
	assert.True(t, decimal.RequireFromString("1250.5").Equal(lot.OriginalVolume))
	assert.True(t, decimal.NewFromInt(1000).Equal(lot.CurrentVolume))
	assert.Equal(t, InventoryPlantingMaterials, lot.InventoryType)
	assert.True(t, lot.Archived)
}

func TestDecodeLot_BlankCurrentVolumeFallsBackToOriginal(t *testing.T) {
	lot, err := DecodeLot(cells(map[string]string{
		"Volume": "250",
		"Code":   "X",
	}))

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(250).Equal(lot.CurrentVolume))
	assert.Equal(t, InventorySeedStorage, lot.InventoryType)
}

func TestDecodeLot_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"missing code", map[string]string{"Volume": "10"}},
		{"missing volume", map[string]string{"Code": "X"}},
		{"non numeric volume", map[string]string{"Code": "X", "Volume": "lots"}},
		{"negative volume", map[string]string{"Code": "X", "Volume": "-4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLot(cells(tt.values))
			assert.Error(t, err)
		})
	}
}

func TestEncodeLot_RoundTripsThroughHeaders(t *testing.T) {
	lot := SeedLot{
		Code:           "V-1-1-2024-01-01-C",
		Variety:        "V",
		OriginalVolume: decimal.NewFromInt(250),
		CurrentVolume:  decimal.NewFromInt(190),
		InventoryType:  InventoryPlantingMaterials,
	}

	encoded := EncodeLot(lot)
	decoded, err := DecodeLot(func(h string) string {
		return fmt.Sprint(encoded[h])
	})

	require.NoError(t, err)
	assert.Equal(t, lot.Code, decoded.Code)
	assert.True(t, lot.CurrentVolume.Equal(decoded.CurrentVolume))
	assert.Equal(t, lot.InventoryType, decoded.InventoryType)
	assert.False(t, decoded.Archived)
}

func TestLookupLotField(t *testing.T) {
	f, ok := LookupLotField(KeyRemarks)
	require.True(t, ok)
	assert.Equal(t, "Remarks", f.Header)
	assert.True(t, f.Editable)

	f, ok = LookupLotField(KeyCurrentVolume)
	require.True(t, ok)
	assert.False(t, f.Editable)

	_, ok = LookupLotField("colour")
	assert.False(t, ok)
}

func TestLotFields_UniqueHeadersAndKeys(t *testing.T) {
	headers := map[string]bool{}
	keys := map[string]bool{}
	for _, f := range LotFields() {
		assert.False(t, headers[f.Header], "duplicate header %s", f.Header)
		assert.False(t, keys[f.Key], "duplicate key %s", f.Key)
		headers[f.Header] = true
		keys[f.Key] = true
	}
}

func TestParseSheetDate(t *testing.T) {
	for _, value := range []string{"2024-03-01", "3/1/2024", "03/01/2024", "2024-03-01T08:00:00Z", "Mar 1, 2024"} {
		t.Run(value, func(t *testing.T) {
			d, err := ParseSheetDate(value)
			require.NoError(t, err)
			assert.Equal(t, 2024, d.Year())
			assert.Equal(t, 3, int(d.Month()))
			assert.Equal(t, 1, d.Day())
		})
	}

	_, err := ParseSheetDate("sometime")
	assert.Error(t, err)
	_, err = ParseSheetDate("")
	assert.Error(t, err)
}

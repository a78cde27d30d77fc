package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	schema, err := NewSchema("Form Responses", []interface{}{"Code", " Volume ", "Current Volume", "Last Modified", "Remarks"})

	require.NoError(t, err)
	idx, ok := schema.Column("Volume")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	a1, err := schema.A1("Remarks", 12)
	require.NoError(t, err)
	assert.Equal(t, "'Form Responses'!E12", a1)

	_, err = schema.A1("Crop", 2)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestNewSchema_MissingRequired(t *testing.T) {
	_, err := NewSchema("Lots", []interface{}{"Code", "Volume"})

	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.ErrorContains(t, err, "Current Volume")
}

func TestSchema_CellAndRow(t *testing.T) {
	schema, err := NewSchema("Lots", []interface{}{"Code", "Volume", "Current Volume", "Last Modified"})
	require.NoError(t, err)

	assert.Equal(t, "X", schema.Cell([]interface{}{"X"}, "Code"))
	assert.Equal(t, "", schema.Cell([]interface{}{"X"}, "Volume"))
	assert.Equal(t, "", schema.Cell([]interface{}{"X"}, "Crop"))

	row := schema.Row(map[string]interface{}{"Code": "Y", "Volume": 10.0, "Crop": "ignored"})
	assert.Equal(t, []interface{}{"Y", 10.0, "", ""}, row)
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Bob''s Lots'", quoteSheet("Bob's Lots"))
	assert.Equal(t, "'Edit Logs'!A:E", sheetRange("Edit Logs", "A:E"))
}

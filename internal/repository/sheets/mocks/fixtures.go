package mocks

import (
	"github.com/mamadbah2/seedbank/internal/domain/models"
)

// LotHeaderRow returns a header row carrying every lot column in table order.
func LotHeaderRow() []interface{} {
	fields := models.LotFields()
	row := make([]interface{}, len(fields))
	for i, f := range fields {
		row[i] = f.Header
	}
	return row
}

// LotRow renders a lot in the column order of LotHeaderRow.
func LotRow(lot models.SeedLot) []interface{} {
	encoded := models.EncodeLot(lot)
	fields := models.LotFields()
	row := make([]interface{}, len(fields))
	for i, f := range fields {
		row[i] = encoded[f.Header]
	}
	return row
}

// SeedLots fills the lot sheet with a header row followed by the given lots.
func (m *MemoryRepository) SeedLots(sheet string, lots ...models.SeedLot) {
	rows := [][]interface{}{LotHeaderRow()}
	for _, lot := range lots {
		rows = append(rows, LotRow(lot))
	}
	m.SetSheet(sheet, rows)
}

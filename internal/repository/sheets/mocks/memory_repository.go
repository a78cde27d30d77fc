package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/seedbank/internal/repository/sheets"
)

// MemoryRepository is an in-memory implementation of sheets.Repository for testing.
// It understands the range shapes the record store issues: whole sheets,
// column spans ("A:I"), the header row ("1:1") and single cells ("T12").
type MemoryRepository struct {
	mu     sync.Mutex
	sheets map[string][][]interface{}

	// For tracking calls in tests
	WriteCalls  []WriteCall
	UpdateCalls [][]sheets.CellUpdate

	// Errors keyed by sheet name; UpdateErr applies to every UpdateCells call.
	ReadErr   map[string]error
	WriteErr  map[string]error
	UpdateErr error
}

// WriteCall records parameters passed to WriteRow
type WriteCall struct {
	Sheet  string
	Values []interface{}
}

// NewMemoryRepository creates an empty MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sheets:   make(map[string][][]interface{}),
		ReadErr:  make(map[string]error),
		WriteErr: make(map[string]error),
	}
}

// SetSheet replaces the content of a sheet.
func (m *MemoryRepository) SetSheet(name string, rows [][]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[name] = cloneRows(rows)
}

// Rows returns a copy of a sheet's content.
func (m *MemoryRepository) Rows(name string) [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRows(m.sheets[name])
}

// ReadRange returns the rows addressed by the range.
func (m *MemoryRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sheet, a1 := splitRange(sheetRange)
	if err := m.ReadErr[sheet]; err != nil {
		return nil, err
	}

	rows := m.sheets[sheet]
	if a1 == "1:1" {
		if len(rows) == 0 {
			return nil, nil
		}
		return cloneRows(rows[:1]), nil
	}
	return cloneRows(rows), nil
}

// WriteRow appends a row to the sheet.
func (m *MemoryRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sheet, _ := splitRange(sheetRange)
	m.WriteCalls = append(m.WriteCalls, WriteCall{Sheet: sheet, Values: append([]interface{}(nil), values...)})
	if err := m.WriteErr[sheet]; err != nil {
		return err
	}

	m.sheets[sheet] = append(m.sheets[sheet], append([]interface{}(nil), values...))
	return nil
}

// UpdateCells writes single-cell updates, growing the sheet as needed.
func (m *MemoryRepository) UpdateCells(ctx context.Context, updates []sheets.CellUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, append([]sheets.CellUpdate(nil), updates...))
	if m.UpdateErr != nil {
		return m.UpdateErr
	}

	for _, u := range updates {
		sheet, a1 := splitRange(u.Range)
		col, row, err := excelize.CellNameToCoordinates(a1)
		if err != nil {
			return fmt.Errorf("invalid cell %q: %w", u.Range, err)
		}
		rows := m.sheets[sheet]
		for len(rows) < row {
			rows = append(rows, []interface{}{})
		}
		for len(rows[row-1]) < col {
			rows[row-1] = append(rows[row-1], "")
		}
		rows[row-1][col-1] = u.Value
		m.sheets[sheet] = rows
	}
	return nil
}

func splitRange(r string) (sheet, a1 string) {
	if strings.HasPrefix(r, "'") {
		for i := 1; i < len(r); i++ {
			if r[i] != '\'' {
				continue
			}
			if i+1 < len(r) && r[i+1] == '\'' {
				i++
				continue
			}
			sheet = strings.ReplaceAll(r[1:i], "''", "'")
			return sheet, strings.TrimPrefix(r[i+1:], "!")
		}
	}
	sheet, a1, _ = strings.Cut(r, "!")
	return sheet, a1
}

func cloneRows(rows [][]interface{}) [][]interface{} {
	if rows == nil {
		return nil
	}
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = append([]interface{}(nil), row...)
	}
	return out
}

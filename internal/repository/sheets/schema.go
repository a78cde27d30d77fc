package sheets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

// ErrColumnNotFound is returned when a header the service relies on is absent from the sheet.
var ErrColumnNotFound = errors.New("column not found")

// Schema maps the lot sheet header row onto column positions. Header text is
// authoritative; column order in the sheet is free to change.
type Schema struct {
	sheet   string
	headers []string
	columns map[string]int
}

// writtenHeaders must exist because the ledger writes them.
var writtenHeaders = []string{"Current Volume", "Last Modified"}

// NewSchema builds a Schema from a header row.
func NewSchema(sheet string, headerRow []interface{}) (*Schema, error) {
	s := &Schema{
		sheet:   sheet,
		headers: make([]string, len(headerRow)),
		columns: make(map[string]int, len(headerRow)),
	}

	for i, cell := range headerRow {
		header := strings.TrimSpace(fmt.Sprint(cell))
		s.headers[i] = header
		if header == "" {
			continue
		}
		if _, dup := s.columns[header]; !dup {
			s.columns[header] = i
		}
	}

	var missing []string
	for _, f := range models.LotFields() {
		if f.Required {
			if _, ok := s.columns[f.Header]; !ok {
				missing = append(missing, f.Header)
			}
		}
	}
	for _, h := range writtenHeaders {
		if _, ok := s.columns[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("sheet %s missing %s: %w", sheet, strings.Join(missing, ", "), ErrColumnNotFound)
	}

	return s, nil
}

// Sheet returns the sheet name the schema was read from.
func (s *Schema) Sheet() string {
	return s.sheet
}

// Column returns the zero-based index of a header.
func (s *Schema) Column(header string) (int, bool) {
	idx, ok := s.columns[header]
	return idx, ok
}

// Cell returns the text of the named column in a row; short rows yield "".
func (s *Schema) Cell(row []interface{}, header string) string {
	idx, ok := s.columns[header]
	if !ok || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprint(row[idx])
}

// A1 returns the A1 reference of a header's cell in the given 1-based row.
func (s *Schema) A1(header string, row int) (string, error) {
	idx, ok := s.columns[header]
	if !ok {
		return "", fmt.Errorf("header %q: %w", header, ErrColumnNotFound)
	}
	col, err := excelize.ColumnNumberToName(idx + 1)
	if err != nil {
		return "", fmt.Errorf("column name for %q: %w", header, err)
	}
	return fmt.Sprintf("%s!%s%d", quoteSheet(s.sheet), col, row), nil
}

// Row lays out values keyed by header in sheet column order. Unknown columns stay blank.
func (s *Schema) Row(values map[string]interface{}) []interface{} {
	row := make([]interface{}, len(s.headers))
	for i, h := range s.headers {
		if v, ok := values[h]; ok {
			row[i] = v
		} else {
			row[i] = ""
		}
	}
	return row
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// sheetRange scopes an A1 range to a sheet.
func sheetRange(sheet, a1 string) string {
	if a1 == "" {
		return quoteSheet(sheet)
	}
	return quoteSheet(sheet) + "!" + a1
}

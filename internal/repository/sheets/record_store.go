package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/config"
	"github.com/mamadbah2/seedbank/internal/domain/models"
)

// ErrUnknownField is returned when an update names a key missing from the lot field table.
var ErrUnknownField = errors.New("unknown lot field")

// Fixed column order of the append-only log sheets.
var (
	WithdrawalLogHeaders = []string{"Timestamp", "Lot Code", "Inventory Type", "Amount", "Previous Value", "New Value", "Reason", "User", "Entry ID"}
	EditLogHeaders       = []string{"Timestamp", "Lot Code", "Previous Values", "New Values", "User Role"}
)

const (
	withdrawalLogColumns = "A:I"
	editLogColumns       = "A:E"
)

// SheetNames locates the three sheets the store works with.
type SheetNames struct {
	Lots        string
	Withdrawals string
	Edits       string
}

// SheetNamesFrom extracts sheet names from configuration.
func SheetNamesFrom(cfg config.SheetsConfig) SheetNames {
	return SheetNames{Lots: cfg.LotsSheet, Withdrawals: cfg.WithdrawalsSheet, Edits: cfg.EditsSheet}
}

// RecordStore exposes lots and ledger rows on top of a raw sheet Repository.
type RecordStore struct {
	repo   Repository
	names  SheetNames
	logger *zap.Logger

	mu     sync.RWMutex
	schema *Schema
}

// NewRecordStore wires a record store. The lot schema is read on first use.
func NewRecordStore(repo Repository, names SheetNames, logger *zap.Logger) *RecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{repo: repo, names: names, logger: logger}
}

// Schema returns the session schema, loading it on first call.
func (s *RecordStore) Schema(ctx context.Context) (*Schema, error) {
	s.mu.RLock()
	schema := s.schema
	s.mu.RUnlock()
	if schema != nil {
		return schema, nil
	}
	return s.RefreshSchema(ctx)
}

// RefreshSchema re-reads the lot header row and replaces the session schema.
func (s *RecordStore) RefreshSchema(ctx context.Context) (*Schema, error) {
	rows, err := s.repo.ReadRange(ctx, sheetRange(s.names.Lots, "1:1"))
	if err != nil {
		return nil, fmt.Errorf("load lot headers: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row: %w", s.names.Lots, ErrColumnNotFound)
	}
	return s.installSchema(rows[0])
}

func (s *RecordStore) installSchema(headerRow []interface{}) (*Schema, error) {
	schema, err := NewSchema(s.names.Lots, headerRow)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.schema = schema
	s.mu.Unlock()
	return schema, nil
}

// EnsureLogHeaders writes the header row of empty log sheets.
func (s *RecordStore) EnsureLogHeaders(ctx context.Context) error {
	for sheet, headers := range map[string][]string{
		s.names.Withdrawals: WithdrawalLogHeaders,
		s.names.Edits:       EditLogHeaders,
	} {
		rows, err := s.repo.ReadRange(ctx, sheetRange(sheet, "1:1"))
		if err != nil {
			return fmt.Errorf("read %s headers: %w", sheet, err)
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			continue
		}
		values := make([]interface{}, len(headers))
		for i, h := range headers {
			values[i] = h
		}
		if err := s.repo.WriteRow(ctx, sheetRange(sheet, ""), values); err != nil {
			return fmt.Errorf("write %s headers: %w", sheet, err)
		}
		s.logger.Info("log sheet headers written", zap.String("sheet", sheet))
	}
	return nil
}

// GetAllLots reads every lot row. Rows that cannot be decoded are reported, not returned.
func (s *RecordStore) GetAllLots(ctx context.Context) ([]models.SeedLot, []models.Diagnostic, error) {
	rows, err := s.repo.ReadRange(ctx, sheetRange(s.names.Lots, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("load lots: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	schema, err := s.Schema(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !sameHeaders(schema.headers, rows[0]) {
		s.logger.Info("lot header row changed, rebuilding schema")
		if schema, err = s.installSchema(rows[0]); err != nil {
			return nil, nil, err
		}
	}

	var (
		lots  []models.SeedLot
		diags []models.Diagnostic
		seen  = make(map[string]int)
	)

	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}

		lot, err := models.DecodeLot(func(header string) string { return schema.Cell(row, header) })
		if err != nil {
			s.logger.Debug("skip lot row", zap.Int("row", rowNum), zap.Error(err))
			diags = append(diags, models.Diagnostic{
				Source:  models.SourceLots,
				Row:     rowNum,
				LotCode: strings.TrimSpace(schema.Cell(row, "Code")),
				Message: err.Error(),
			})
			continue
		}
		lot.Row = rowNum

		if first, dup := seen[lot.Code]; dup {
			diags = append(diags, models.Diagnostic{
				Source:  models.SourceLots,
				Row:     rowNum,
				LotCode: lot.Code,
				Message: fmt.Sprintf("duplicate lot code, row %d is used", first),
			})
			continue
		}
		seen[lot.Code] = rowNum
		lots = append(lots, lot)
	}

	return lots, diags, nil
}

// GetLotByCode returns nil without error when no lot carries the code.
func (s *RecordStore) GetLotByCode(ctx context.Context, code string) (*models.SeedLot, error) {
	lots, _, err := s.GetAllLots(ctx)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	for i := range lots {
		if lots[i].Code == code {
			lot := lots[i]
			return &lot, nil
		}
	}
	return nil, nil
}

// UpdateLotFields writes the given key/value pairs into the lot row.
// It returns false when no lot has the code.
func (s *RecordStore) UpdateLotFields(ctx context.Context, code string, fields map[string]string) (bool, error) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if _, ok := models.LookupLotField(key); !ok {
			return false, fmt.Errorf("%s: %w", key, ErrUnknownField)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lot, err := s.GetLotByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if lot == nil {
		return false, nil
	}

	schema, err := s.Schema(ctx)
	if err != nil {
		return false, err
	}

	updates := make([]CellUpdate, 0, len(keys))
	for _, key := range keys {
		field, _ := models.LookupLotField(key)
		a1, err := schema.A1(field.Header, lot.Row)
		if err != nil {
			return false, fmt.Errorf("update lot %s: %w", code, err)
		}
		value, err := cellValue(key, fields[key])
		if err != nil {
			return false, fmt.Errorf("update lot %s: %w", code, err)
		}
		updates = append(updates, CellUpdate{Range: a1, Value: value})
	}

	if err := s.repo.UpdateCells(ctx, updates); err != nil {
		s.logger.Error("lot row update failed", zap.String("lot_code", code), zap.Int("row", lot.Row), zap.Error(err))
		return false, fmt.Errorf("update lot %s row %d: %w", code, lot.Row, err)
	}
	return true, nil
}

// AppendLot adds a new lot row laid out by the session schema.
func (s *RecordStore) AppendLot(ctx context.Context, lot models.SeedLot) error {
	schema, err := s.Schema(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.WriteRow(ctx, sheetRange(s.names.Lots, ""), schema.Row(models.EncodeLot(lot))); err != nil {
		return fmt.Errorf("append lot %s: %w", lot.Code, err)
	}
	return nil
}

// AppendWithdrawalEntry appends one ledger row.
func (s *RecordStore) AppendWithdrawalEntry(ctx context.Context, entry models.WithdrawalEntry) error {
	values := []interface{}{
		entry.Timestamp.UTC().Format(models.TimestampLayout),
		entry.LotCode,
		string(entry.InventoryType),
		entry.Amount.InexactFloat64(),
		entry.PreviousValue.InexactFloat64(),
		entry.NewValue.InexactFloat64(),
		entry.Reason,
		entry.User,
		entry.ID,
	}
	if err := s.repo.WriteRow(ctx, sheetRange(s.names.Withdrawals, withdrawalLogColumns), values); err != nil {
		return fmt.Errorf("append withdrawal for %s: %w", entry.LotCode, err)
	}
	return nil
}

// AppendEditLogEntry appends one edit audit row.
func (s *RecordStore) AppendEditLogEntry(ctx context.Context, entry models.EditLogEntry) error {
	prev, err := json.Marshal(entry.PreviousSnapshot)
	if err != nil {
		return fmt.Errorf("encode previous snapshot: %w", err)
	}
	next, err := json.Marshal(entry.NewSnapshot)
	if err != nil {
		return fmt.Errorf("encode new snapshot: %w", err)
	}

	values := []interface{}{
		entry.Timestamp.UTC().Format(models.TimestampLayout),
		entry.LotCode,
		string(prev),
		string(next),
		entry.UserRole,
	}
	if err := s.repo.WriteRow(ctx, sheetRange(s.names.Edits, editLogColumns), values); err != nil {
		return fmt.Errorf("append edit log for %s: %w", entry.LotCode, err)
	}
	return nil
}

// GetAllWithdrawalEntries reads the withdrawal ledger ordered by timestamp.
// An empty lotCode returns every entry.
func (s *RecordStore) GetAllWithdrawalEntries(ctx context.Context, lotCode string) ([]models.WithdrawalEntry, []models.Diagnostic, error) {
	rows, err := s.repo.ReadRange(ctx, sheetRange(s.names.Withdrawals, withdrawalLogColumns))
	if err != nil {
		return nil, nil, fmt.Errorf("load withdrawal logs: %w", err)
	}

	lotCode = strings.TrimSpace(lotCode)
	var (
		entries []models.WithdrawalEntry
		diags   []models.Diagnostic
	)

	for i, row := range rows {
		rowNum := i + 1
		if isBlank(row) || (i == 0 && cellText(row, 0) == WithdrawalLogHeaders[0]) {
			continue
		}

		entry, problems := parseWithdrawalRow(row)
		if lotCode != "" && entry.LotCode != lotCode {
			continue
		}
		if entry.LotCode == "" {
			problems = append(problems, fatalProblem("missing lot code"))
		}

		skip := false
		for _, p := range problems {
			skip = skip || p.fatal
			diags = append(diags, models.Diagnostic{Source: models.SourceWithdrawals, Row: rowNum, LotCode: entry.LotCode, Message: p.message})
		}
		if skip {
			s.logger.Debug("skip withdrawal row", zap.Int("row", rowNum))
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, diags, nil
}

// GetAllEditLogEntries reads the edit audit trail ordered by timestamp.
func (s *RecordStore) GetAllEditLogEntries(ctx context.Context, lotCode string) ([]models.EditLogEntry, []models.Diagnostic, error) {
	rows, err := s.repo.ReadRange(ctx, sheetRange(s.names.Edits, editLogColumns))
	if err != nil {
		return nil, nil, fmt.Errorf("load edit logs: %w", err)
	}

	lotCode = strings.TrimSpace(lotCode)
	var (
		entries []models.EditLogEntry
		diags   []models.Diagnostic
	)

	for i, row := range rows {
		rowNum := i + 1
		if isBlank(row) || (i == 0 && cellText(row, 0) == EditLogHeaders[0]) {
			continue
		}
		code := cellText(row, 1)
		if lotCode != "" && code != lotCode {
			continue
		}

		ts, err := parseTimestamp(cellText(row, 0))
		if err != nil {
			diags = append(diags, models.Diagnostic{Source: models.SourceEdits, Row: rowNum, LotCode: code, Message: "invalid timestamp"})
			continue
		}
		entry := models.EditLogEntry{
			Timestamp: ts,
			LotCode:   code,
			UserRole:  cellText(row, 4),
		}
		if err := decodeSnapshot(cellText(row, 2), &entry.PreviousSnapshot); err != nil {
			diags = append(diags, models.Diagnostic{Source: models.SourceEdits, Row: rowNum, LotCode: code, Message: "invalid previous values"})
		}
		if err := decodeSnapshot(cellText(row, 3), &entry.NewSnapshot); err != nil {
			diags = append(diags, models.Diagnostic{Source: models.SourceEdits, Row: rowNum, LotCode: code, Message: "invalid new values"})
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, diags, nil
}

type rowProblem struct {
	message string
	fatal   bool
}

func fatalProblem(message string) rowProblem {
	return rowProblem{message: message, fatal: true}
}

func parseWithdrawalRow(row []interface{}) (models.WithdrawalEntry, []rowProblem) {
	var problems []rowProblem
	entry := models.WithdrawalEntry{
		LotCode:       cellText(row, 1),
		InventoryType: models.ParseInventoryType(cellText(row, 2)),
		Reason:        cellText(row, 6),
		User:          cellText(row, 7),
		ID:            cellText(row, 8),
	}

	ts, err := parseTimestamp(cellText(row, 0))
	if err != nil {
		problems = append(problems, fatalProblem("invalid timestamp"))
	}
	entry.Timestamp = ts

	amount, err := models.ParseVolume(cellText(row, 3))
	switch {
	case err != nil:
		problems = append(problems, fatalProblem("invalid amount: "+err.Error()))
	case !amount.IsPositive():
		problems = append(problems, fatalProblem("amount must be positive"))
	}
	entry.Amount = amount

	// Previous and new values are informational; a bad cell is reported but the entry is kept.
	if entry.PreviousValue, err = models.ParseVolume(cellText(row, 4)); err != nil {
		problems = append(problems, rowProblem{message: "invalid previous value"})
	}
	if entry.NewValue, err = models.ParseVolume(cellText(row, 5)); err != nil {
		problems = append(problems, rowProblem{message: "invalid new value"})
	}

	return entry, problems
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(models.TimestampLayout, raw); err == nil {
		return ts, nil
	}
	return models.ParseSheetDate(raw)
}

func decodeSnapshot(raw string, out *map[string]string) error {
	if strings.TrimSpace(raw) == "" {
		*out = map[string]string{}
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func cellValue(key, raw string) (interface{}, error) {
	switch key {
	case models.KeyOriginalVolume, models.KeyCurrentVolume:
		v, err := models.ParseVolume(raw)
		if err != nil {
			return nil, err
		}
		return v.InexactFloat64(), nil
	default:
		return raw, nil
	}
}

func cellText(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func isBlank(row []interface{}) bool {
	for i := range row {
		if cellText(row, i) != "" {
			return false
		}
	}
	return true
}

func sameHeaders(headers []string, row []interface{}) bool {
	if len(headers) != len(row) {
		return false
	}
	for i := range row {
		if headers[i] != strings.TrimSpace(fmt.Sprint(row[i])) {
			return false
		}
	}
	return true
}

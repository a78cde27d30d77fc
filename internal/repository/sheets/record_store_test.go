package sheets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/repository/sheets"
	"github.com/mamadbah2/seedbank/internal/repository/sheets/mocks"
)

var names = sheets.SheetNames{Lots: "Form Responses", Withdrawals: "Withdrawal Logs", Edits: "Edit Logs"}

func testLot(code string, volume int64) models.SeedLot {
	return models.SeedLot{
		Code:           code,
		Crop:           "Rice",
		Variety:        "V",
		StoredDate:     "2024-01-10",
		OriginalVolume: decimal.NewFromInt(volume),
		CurrentVolume:  decimal.NewFromInt(volume),
		InventoryType:  models.InventorySeedStorage,
	}
}

func newTestStore(lots ...models.SeedLot) (*sheets.RecordStore, *mocks.MemoryRepository) {
	repo := mocks.NewMemoryRepository()
	repo.SeedLots(names.Lots, lots...)
	return sheets.NewRecordStore(repo, names, nil), repo
}

// ============================================
// Lot Reads
// ============================================

func TestRecordStore_GetAllLots(t *testing.T) {
	store, _ := newTestStore(testLot("A", 100), testLot("B", 50))

	lots, diags, err := store.GetAllLots(context.Background())

	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, lots, 2)
	assert.Equal(t, "A", lots[0].Code)
	assert.Equal(t, 2, lots[0].Row)
	assert.Equal(t, 3, lots[1].Row)
}

func TestRecordStore_GetAllLots_ReportsBadRows(t *testing.T) {
	store, repo := newTestStore(testLot("A", 100), testLot("A", 20))
	rows := repo.Rows(names.Lots)
	bad := mocks.LotRow(testLot("C", 1))
	bad[7] = "lots" // Volume column
	rows = append(rows, bad, []interface{}{})
	repo.SetSheet(names.Lots, rows)

	lots, diags, err := store.GetAllLots(context.Background())

	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.Len(t, diags, 2)
	assert.Equal(t, 3, diags[0].Row)
	assert.Contains(t, diags[0].Message, "duplicate")
	assert.Equal(t, "C", diags[1].LotCode)
}

func TestRecordStore_GetAllLots_HeaderOrderIsIrrelevant(t *testing.T) {
	repo := mocks.NewMemoryRepository()
	repo.SetSheet(names.Lots, [][]interface{}{
		{"Code", "Current Volume", "Last Modified", "Volume", "Crop"},
		{"X-1", "40", "", "100", "Corn"},
	})
	store := sheets.NewRecordStore(repo, names, nil)

	lot, err := store.GetLotByCode(context.Background(), "X-1")

	require.NoError(t, err)
	require.NotNil(t, lot)
	assert.Equal(t, "Corn", lot.Crop)
	assert.True(t, decimal.NewFromInt(40).Equal(lot.CurrentVolume))
	assert.True(t, decimal.NewFromInt(100).Equal(lot.OriginalVolume))
}

func TestRecordStore_MissingHeaders(t *testing.T) {
	repo := mocks.NewMemoryRepository()
	repo.SetSheet(names.Lots, [][]interface{}{{"Code", "Volume"}})
	store := sheets.NewRecordStore(repo, names, nil)

	_, _, err := store.GetAllLots(context.Background())

	assert.ErrorIs(t, err, sheets.ErrColumnNotFound)
}

func TestRecordStore_GetLotByCode_NotFound(t *testing.T) {
	store, _ := newTestStore(testLot("A", 100))

	lot, err := store.GetLotByCode(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, lot)
}

// ============================================
// Lot Writes
// ============================================

func TestRecordStore_UpdateLotFields(t *testing.T) {
	store, repo := newTestStore(testLot("A", 100), testLot("B", 50))
	ctx := context.Background()

	ok, err := store.UpdateLotFields(ctx, "B", map[string]string{
		models.KeyCurrentVolume: "45",
		models.KeyRemarks:       "resealed",
	})

	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, repo.UpdateCalls, 1)
	assert.Len(t, repo.UpdateCalls[0], 2)

	lot, err := store.GetLotByCode(ctx, "B")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(45).Equal(lot.CurrentVolume))
	assert.True(t, decimal.NewFromInt(50).Equal(lot.OriginalVolume))
	assert.Equal(t, "resealed", lot.Remarks)
}

func TestRecordStore_UpdateLotFields_UnknownCode(t *testing.T) {
	store, repo := newTestStore(testLot("A", 100))

	ok, err := store.UpdateLotFields(context.Background(), "Z", map[string]string{models.KeyRemarks: "x"})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, repo.UpdateCalls)
}

func TestRecordStore_UpdateLotFields_UnknownField(t *testing.T) {
	store, repo := newTestStore(testLot("A", 100))

	ok, err := store.UpdateLotFields(context.Background(), "A", map[string]string{"colour": "red"})

	assert.ErrorIs(t, err, sheets.ErrUnknownField)
	assert.False(t, ok)
	assert.Empty(t, repo.UpdateCalls)
}

func TestRecordStore_UpdateLotFields_WriteFailure(t *testing.T) {
	store, repo := newTestStore(testLot("A", 100))
	repo.UpdateErr = errors.New("quota exceeded")

	ok, err := store.UpdateLotFields(context.Background(), "A", map[string]string{models.KeyRemarks: "x"})

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRecordStore_AppendLot(t *testing.T) {
	store, _ := newTestStore(testLot("A", 100))
	ctx := context.Background()

	require.NoError(t, store.AppendLot(ctx, testLot("B", 75)))

	lot, err := store.GetLotByCode(ctx, "B")
	require.NoError(t, err)
	require.NotNil(t, lot)
	assert.Equal(t, 3, lot.Row)
}

// ============================================
// Ledger Rows
// ============================================

func TestRecordStore_WithdrawalEntries_RoundTrip(t *testing.T) {
	store, repo := newTestStore(testLot("A", 100))
	ctx := context.Background()
	require.NoError(t, store.EnsureLogHeaders(ctx))

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	// Appended out of order; reads must come back ordered by timestamp.
	for i, offset := range []time.Duration{2 * time.Hour, time.Hour} {
		require.NoError(t, store.AppendWithdrawalEntry(ctx, models.WithdrawalEntry{
			ID:            []string{"e1", "e2"}[i],
			Timestamp:     base.Add(offset),
			LotCode:       "A",
			InventoryType: models.InventorySeedStorage,
			Amount:        decimal.NewFromInt(10),
			PreviousValue: decimal.NewFromInt(100),
			NewValue:      decimal.NewFromInt(90),
			Reason:        "trial",
		}))
	}
	require.NoError(t, store.AppendWithdrawalEntry(ctx, models.WithdrawalEntry{
		Timestamp: base, LotCode: "B", Amount: decimal.NewFromInt(1),
	}))

	entries, diags, err := store.GetAllWithdrawalEntries(ctx, "A")

	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2", entries[0].ID)
	assert.Equal(t, "e1", entries[1].ID)
	assert.True(t, decimal.NewFromInt(10).Equal(entries[0].Amount))
	assert.Equal(t, "trial", entries[0].Reason)

	all, _, err := store.GetAllWithdrawalEntries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, sheets.WithdrawalLogHeaders[0], repo.Rows(names.Withdrawals)[0][0])
}

func TestRecordStore_WithdrawalEntries_BadRows(t *testing.T) {
	store, repo := newTestStore()
	repo.SetSheet(names.Withdrawals, [][]interface{}{
		{"Timestamp", "Lot Code", "Inventory Type", "Amount", "Previous Value", "New Value"},
		{"2024-05-01T08:00:00Z", "A", "Seed Storage", "5", "10", "5"},
		{"not a date", "A", "Seed Storage", "5", "5", "0"},
		{"2024-05-02T08:00:00Z", "A", "Seed Storage", "-3", "5", "8"},
		{"2024-05-03T08:00:00Z", "", "Seed Storage", "1", "5", "4"},
		{"2024-05-04T08:00:00Z", "A", "Seed Storage", "1", "?", "4"},
	})

	entries, diags, err := store.GetAllWithdrawalEntries(context.Background(), "")

	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, diags, 4)
}

func TestRecordStore_EditLogEntries_RoundTrip(t *testing.T) {
	store, _ := newTestStore(testLot("A", 100))
	ctx := context.Background()

	require.NoError(t, store.AppendEditLogEntry(ctx, models.EditLogEntry{
		Timestamp:        time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		LotCode:          "A",
		PreviousSnapshot: map[string]string{"remarks": ""},
		NewSnapshot:      map[string]string{"remarks": "dry"},
		UserRole:         "Curator",
	}))

	entries, diags, err := store.GetAllEditLogEntries(ctx, "A")

	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, entries, 1)
	assert.Equal(t, "dry", entries[0].NewSnapshot["remarks"])
	assert.Equal(t, "Curator", entries[0].UserRole)
}

func TestRecordStore_ReadFailure(t *testing.T) {
	store, repo := newTestStore(testLot("A", 100))
	repo.ReadErr[names.Withdrawals] = errors.New("backend unavailable")

	_, _, err := store.GetAllWithdrawalEntries(context.Background(), "")

	assert.Error(t, err)
}

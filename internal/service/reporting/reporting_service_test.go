package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/metrics"
	"github.com/mamadbah2/seedbank/internal/repository/sheets"
	"github.com/mamadbah2/seedbank/internal/repository/sheets/mocks"
	"github.com/mamadbah2/seedbank/internal/service/inventory"
)

var sheetNames = sheets.SheetNames{Lots: "Form Responses", Withdrawals: "Withdrawal Logs", Edits: "Edit Logs"}

var clock = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeSnapshots struct {
	saved []models.InventorySnapshot
	err   error
}

func (f *fakeSnapshots) SaveInventorySnapshot(ctx context.Context, snapshot models.InventorySnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, snapshot)
	return nil
}

func (f *fakeSnapshots) ListInventorySnapshots(ctx context.Context, limit int64) ([]models.InventorySnapshot, error) {
	return f.saved, f.err
}

func lot(code, crop, stored string, original int64, invType models.InventoryType) models.SeedLot {
	return models.SeedLot{
		Code:           code,
		Crop:           crop,
		Variety:        "V1",
		StoredDate:     stored,
		OriginalVolume: decimal.NewFromInt(original),
		CurrentVolume:  decimal.NewFromInt(original),
		Unit:           "g",
		InventoryType:  invType,
		LastModified:   "2024-01-10T00:00:00Z",
	}
}

// newService seeds four lots:
//
//	L1 rice, 205 of 250 withdrawn: critical
//	L2 rice, untouched: normal
//	L3 corn planting material, 120 of 250 withdrawn: warning
//	L4 rice, archived and nearly empty
//
// plus one entry for the unknown lot L9.
func newService(t *testing.T, snapshots SnapshotRepository) (*Service, *sheets.RecordStore) {
	t.Helper()
	ctx := context.Background()

	archived := lot("L4", "Rice", "2024-01-10", 250, models.InventorySeedStorage)
	archived.Archived = true

	repo := mocks.NewMemoryRepository()
	repo.SeedLots(sheetNames.Lots,
		lot("L1", "Rice", "2024-01-10", 250, models.InventorySeedStorage),
		lot("L2", "Rice", "2024-05-01", 250, models.InventorySeedStorage),
		lot("L3", "Corn", "2024-03-01", 250, models.InventoryPlantingMaterials),
		archived,
	)
	store := sheets.NewRecordStore(repo, sheetNames, nil)
	require.NoError(t, store.EnsureLogHeaders(ctx))

	for _, e := range []struct {
		code   string
		amount int64
		at     time.Time
	}{
		{"L1", 60, time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)},
		{"L1", 100, time.Date(2024, 5, 20, 11, 0, 0, 0, time.UTC)},
		{"L1", 45, time.Date(2024, 5, 25, 10, 0, 0, 0, time.UTC)},
		{"L3", 120, time.Date(2024, 5, 28, 10, 0, 0, 0, time.UTC)},
		{"L4", 240, time.Date(2024, 5, 28, 12, 0, 0, 0, time.UTC)},
		{"L9", 5, time.Date(2024, 5, 29, 12, 0, 0, 0, time.UTC)},
	} {
		require.NoError(t, store.AppendWithdrawalEntry(ctx, models.WithdrawalEntry{
			ID:        fmt.Sprintf("%s-%d", e.code, e.at.Unix()),
			Timestamp: e.at,
			LotCode:   e.code,
			Amount:    decimal.NewFromInt(e.amount),
			Reason:    "trial",
			User:      "tester",
		}))
	}

	svc := NewService(store, snapshots, inventory.DefaultPolicy(), time.UTC, metrics.New(), nil)
	svc.now = func() time.Time { return clock }
	return svc, store
}

// ==================== Reads ====================

func TestInventory_MergesDiagnostics(t *testing.T) {
	svc, _ := newService(t, nil)

	report, err := svc.Inventory(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Lots, 4)
	assert.Equal(t, clock, report.GeneratedAt)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "L9", report.Diagnostics[0].LotCode)
}

func TestListLots_FilterByInventoryType(t *testing.T) {
	svc, _ := newService(t, nil)

	all, _, err := svc.ListLots(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	planting, _, err := svc.ListLots(context.Background(), "planting_materials")
	require.NoError(t, err)
	require.Len(t, planting, 1)
	assert.Equal(t, "L3", planting[0].Code)
}

func TestLotView(t *testing.T) {
	svc, _ := newService(t, nil)

	view, _, err := svc.LotView(context.Background(), "L1")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.True(t, view.RemainingVolume.Equal(decimal.NewFromInt(45)))
	assert.Equal(t, 3, view.WithdrawalCount)
	assert.Equal(t, models.StatusCritical, view.Status)
	require.NotNil(t, view.DaysSinceLastWithdrawal)
	assert.Equal(t, 7, *view.DaysSinceLastWithdrawal)

	missing, _, err := svc.LotView(context.Background(), "L42")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWithdrawals_Window(t *testing.T) {
	svc, _ := newService(t, nil)

	entries, _, err := svc.Withdrawals(context.Background(), "L1",
		time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(60)))
	assert.True(t, entries[1].Amount.Equal(decimal.NewFromInt(100)))
}

func TestEdits(t *testing.T) {
	svc, store := newService(t, nil)
	require.NoError(t, store.AppendEditLogEntry(context.Background(), models.EditLogEntry{
		Timestamp:        clock,
		LotCode:          "L2",
		PreviousSnapshot: map[string]string{"remarks": ""},
		NewSnapshot:      map[string]string{"remarks": "dry"},
		UserRole:         "Curator",
	}))

	entries, _, err := svc.Edits(context.Background(), "L2")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dry", entries[0].NewSnapshot["remarks"])
}

// ==================== Dashboard ====================

func TestDashboard(t *testing.T) {
	svc, _ := newService(t, nil)

	dash, err := svc.Dashboard(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, 4, dash.TotalLots)
	assert.Equal(t, 1, dash.ArchivedLots)
	assert.Equal(t, models.StatusCounts{Normal: 1, Warning: 1, Critical: 1}, dash.Counts)
	assert.Equal(t, models.StatusCounts{Normal: 1, Critical: 1}, dash.ByInventoryType[models.InventorySeedStorage])
	assert.Equal(t, models.StatusCounts{Warning: 1}, dash.ByInventoryType[models.InventoryPlantingMaterials])
	assert.True(t, dash.TotalRemaining.Equal(decimal.NewFromInt(425)), dash.TotalRemaining.String())
	assert.True(t, dash.TotalWithdrawn.Equal(decimal.NewFromInt(325)), dash.TotalWithdrawn.String())
	assert.Len(t, dash.Lots, 4)
}

func TestDashboard_Filtered(t *testing.T) {
	svc, _ := newService(t, nil)

	dash, err := svc.Dashboard(context.Background(), "Planting Materials")

	require.NoError(t, err)
	assert.Equal(t, models.InventoryPlantingMaterials, dash.InventoryType)
	assert.Equal(t, 1, dash.TotalLots)
	assert.Equal(t, models.StatusCounts{Warning: 1}, dash.Counts)
}

// ==================== Snapshots ====================

func TestSaveSnapshot(t *testing.T) {
	archive := &fakeSnapshots{}
	svc, _ := newService(t, archive)

	snapshot, err := svc.SaveSnapshot(context.Background())

	require.NoError(t, err)
	require.Len(t, archive.saved, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), snapshot.Date)
	assert.Equal(t, []string{"L1"}, snapshot.CriticalLots)
	assert.Equal(t, "425", snapshot.TotalRemaining)
	assert.Equal(t, 1, snapshot.Diagnostics)

	listed, err := svc.Snapshots(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestSaveSnapshot_Errors(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.SaveSnapshot(context.Background())
	assert.Error(t, err)

	svc, _ = newService(t, &fakeSnapshots{err: errors.New("mongo down")})
	_, err = svc.SaveSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save snapshot 2024-06-01")
}

// ==================== Summaries ====================

func TestAlertSummary(t *testing.T) {
	svc, _ := newService(t, nil)
	report, err := svc.Inventory(context.Background())
	require.NoError(t, err)

	text := AlertSummary(report)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Seed bank alerts (2024-06-01): 1 critical, 1 warning.", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[Critical] L1 45 g"))
	assert.True(t, strings.HasPrefix(lines[2], "[Warning] L3 130 g"))
	assert.NotContains(t, text, "L4")
}

func TestAlertSummary_AllNormalAndTruncation(t *testing.T) {
	report := models.InventoryReport{GeneratedAt: clock}
	assert.Equal(t, "Seed bank alerts (2024-06-01): all lots normal.", AlertSummary(report))

	for i := 0; i < maxAlertLines+3; i++ {
		report.Lots = append(report.Lots, models.AggregatedLotView{
			SeedLot:         models.SeedLot{Code: fmt.Sprintf("W%02d", i)},
			RemainingVolume: decimal.NewFromInt(int64(i)),
			Status:          models.StatusWarning,
		})
	}
	lines := strings.Split(AlertSummary(report), "\n")
	assert.Len(t, lines, maxAlertLines+2)
	assert.Equal(t, "...and 3 more.", lines[len(lines)-1])
}

func TestStockSummary(t *testing.T) {
	svc, _ := newService(t, nil)
	view, _, err := svc.LotView(context.Background(), "L1")
	require.NoError(t, err)

	text := StockSummary(*view)

	assert.True(t, strings.HasPrefix(text, "L1 (Rice V1)\nRemaining 45 of 250 g, 3 withdrawals.\nStatus: Critical"))
}

// ==================== Workbook ====================

func TestExportWorkbook(t *testing.T) {
	svc, _ := newService(t, nil)

	f, filename, err := svc.ExportWorkbook(context.Background())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "seedbank_inventory_2024-06-01.xlsx", filename)

	rows, err := f.GetRows(inventorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, inventoryExportHeaders, rows[0])
	assert.Equal(t, "L1", rows[1][0])

	status, err := f.GetCellValue(inventorySheet, "M2")
	require.NoError(t, err)
	assert.Equal(t, "Critical", status)

	ledgerRows, err := f.GetRows(withdrawalsSheet)
	require.NoError(t, err)
	assert.Len(t, ledgerRows, 7)
}

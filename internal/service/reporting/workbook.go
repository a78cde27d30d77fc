package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

const (
	inventorySheet   = "Inventory"
	withdrawalsSheet = "Withdrawals"
)

var inventoryExportHeaders = []string{
	"Code", "Crop", "Variety", "Inventory Type", "Location", "Stored Date",
	"Original Volume", "Withdrawn", "Remaining", "Unit", "Withdrawals",
	"Days Until Expiry", "Status", "Alerts", "Archived",
}

var withdrawalExportHeaders = []string{"Timestamp", "Lot Code", "Inventory Type", "Amount", "Previous", "New", "Reason", "User"}

// ExportWorkbook builds an xlsx workbook with the aggregated inventory and the
// full withdrawal ledger. The caller closes the file.
func (s *Service) ExportWorkbook(ctx context.Context) (*excelize.File, string, error) {
	report, err := s.Inventory(ctx)
	if err != nil {
		return nil, "", err
	}
	entries, _, err := s.store.GetAllWithdrawalEntries(ctx, "")
	if err != nil {
		return nil, "", fmt.Errorf("load withdrawals: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(withdrawalsSheet); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("add sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	statusFill := map[models.Status]int{}
	for status, color := range map[models.Status]string{
		models.StatusWarning:  "#FFF2CC",
		models.StatusCritical: "#F8CBAD",
	} {
		style, _ := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}})
		statusFill[status] = style
	}

	writeHeaders(f, inventorySheet, inventoryExportHeaders, headerStyle)
	for i, view := range report.Lots {
		row := i + 2
		expiry := interface{}("")
		if view.DaysUntilExpiry != nil {
			expiry = *view.DaysUntilExpiry
		}
		values := []interface{}{
			view.Code, view.Crop, view.Variety, string(view.InventoryType), view.Location, view.StoredDate,
			view.OriginalVolume.InexactFloat64(), view.TotalWithdrawn.InexactFloat64(), view.RemainingVolume.InexactFloat64(),
			view.Unit, view.WithdrawalCount, expiry, string(view.Status), strings.Join(view.Alerts, "; "), view.Archived,
		}
		if err := setRow(f, inventorySheet, row, values); err != nil {
			f.Close()
			return nil, "", err
		}
		if style, ok := statusFill[view.Status]; ok {
			_ = f.SetCellStyle(inventorySheet, fmt.Sprintf("M%d", row), fmt.Sprintf("M%d", row), style)
		}
	}

	writeHeaders(f, withdrawalsSheet, withdrawalExportHeaders, headerStyle)
	for i, e := range entries {
		values := []interface{}{
			e.Timestamp.In(s.location).Format("2006-01-02 15:04:05"), e.LotCode, string(e.InventoryType),
			e.Amount.InexactFloat64(), e.PreviousValue.InexactFloat64(), e.NewValue.InexactFloat64(), e.Reason, e.User,
		}
		if err := setRow(f, withdrawalsSheet, i+2, values); err != nil {
			f.Close()
			return nil, "", err
		}
	}

	colWidths := []float64{28, 12, 14, 18, 16, 12, 14, 12, 12, 8, 12, 16, 10, 50, 10}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(inventorySheet, col, col, w)
	}

	filename := fmt.Sprintf("seedbank_inventory_%s.xlsx", report.GeneratedAt.Format(dateLayout))
	return f, filename, nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, style)
	}
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

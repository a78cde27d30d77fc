package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/service/ledger"
)

type fakeLedger struct {
	calls []ledger.WithdrawalRequest
	err   error
}

func (f *fakeLedger) ApplyWithdrawal(ctx context.Context, req ledger.WithdrawalRequest) (*models.WithdrawalResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	amount := decimal.NewFromFloat(req.Amount)
	return &models.WithdrawalResult{
		LotCode:        req.LotCode,
		PreviousVolume: decimal.NewFromInt(250),
		NewVolume:      decimal.NewFromInt(250).Sub(amount),
		Amount:         amount,
		Timestamp:      time.Now(),
	}, nil
}

type fakeReporting struct {
	views  map[string]models.AggregatedLotView
	report models.InventoryReport
}

func (f *fakeReporting) LotView(ctx context.Context, code string) (*models.AggregatedLotView, []models.Diagnostic, error) {
	view, ok := f.views[code]
	if !ok {
		return nil, nil, nil
	}
	return &view, nil, nil
}

func (f *fakeReporting) Inventory(ctx context.Context) (models.InventoryReport, error) {
	return f.report, nil
}

func TestHandleCommand_Withdraw(t *testing.T) {
	l := &fakeLedger{}
	svc := NewService(l, &fakeReporting{}, nil)

	reply, err := svc.HandleCommand(context.Background(), models.ParseCommand("/withdraw NSIC-1-2-2024-01-10-C 60 field trial"), "63917")

	require.NoError(t, err)
	assert.Equal(t, "Withdrew 60 from NSIC-1-2-2024-01-10-C. Volume 250 to 190.", reply)
	require.Len(t, l.calls, 1)
	assert.Equal(t, "field trial", l.calls[0].Reason)
	assert.Equal(t, "whatsapp:63917", l.calls[0].User)
}

func TestHandleCommand_WithdrawCodeWithSpaces(t *testing.T) {
	l := &fakeLedger{}
	svc := NewService(l, &fakeReporting{}, nil)

	_, err := svc.HandleCommand(context.Background(), models.ParseCommand("/withdraw Sweet Corn-1-2-2024-01-10-C 1,500 trial 2"), "63917")

	require.NoError(t, err)
	require.Len(t, l.calls, 1)
	assert.Equal(t, "Sweet Corn-1-2-2024-01-10-C", l.calls[0].LotCode)
	assert.Equal(t, 1500.0, l.calls[0].Amount)
	assert.Equal(t, "trial 2", l.calls[0].Reason)
}

func TestHandleCommand_InvalidWithdraw(t *testing.T) {
	l := &fakeLedger{}
	svc := NewService(l, &fakeReporting{}, nil)

	for _, text := range []string{"/withdraw", "/withdraw L1", "/w L1 lots"} {
		_, err := svc.HandleCommand(context.Background(), models.ParseCommand(text), "1")
		assert.ErrorIs(t, err, ErrInvalidArguments, text)
	}
	assert.Empty(t, l.calls)
}

func TestHandleCommand_Stock(t *testing.T) {
	view := models.AggregatedLotView{
		SeedLot:         models.SeedLot{Code: "L1", Crop: "Rice", Variety: "NSIC", OriginalVolume: decimal.NewFromInt(250), Unit: "g"},
		RemainingVolume: decimal.NewFromInt(90),
		WithdrawalCount: 2,
		Status:          models.StatusWarning,
		Alerts:          []string{"volume 90 below low threshold 100"},
	}
	svc := NewService(&fakeLedger{}, &fakeReporting{views: map[string]models.AggregatedLotView{"L1": view}}, nil)

	reply, err := svc.HandleCommand(context.Background(), models.ParseCommand("/stock L1"), "1")
	require.NoError(t, err)
	assert.Contains(t, reply, "Remaining 90 of 250 g")
	assert.Contains(t, reply, "Status: Warning")

	_, err = svc.HandleCommand(context.Background(), models.ParseCommand("/stock L9"), "1")
	assert.ErrorIs(t, err, ledger.ErrLotNotFound)

	_, err = svc.HandleCommand(context.Background(), models.ParseCommand("/stock"), "1")
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestHandleCommand_StockCodeWithSpaces(t *testing.T) {
	code := "Sweet Corn-1-2-2024-01-10-C"
	view := models.AggregatedLotView{
		SeedLot:         models.SeedLot{Code: code, Crop: "Corn", Variety: "Sweet Corn", OriginalVolume: decimal.NewFromInt(250), Unit: "g"},
		RemainingVolume: decimal.NewFromInt(250),
		Status:          models.StatusNormal,
	}
	svc := NewService(&fakeLedger{}, &fakeReporting{views: map[string]models.AggregatedLotView{code: view}}, nil)

	reply, err := svc.HandleCommand(context.Background(), models.ParseCommand("/stock "+code), "1")

	require.NoError(t, err)
	assert.Contains(t, reply, "Remaining 250 of 250 g")
}

func TestHandleCommand_Alerts(t *testing.T) {
	report := models.InventoryReport{
		GeneratedAt: time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC),
		Lots: []models.AggregatedLotView{
			{SeedLot: models.SeedLot{Code: "A"}, Status: models.StatusNormal},
			{SeedLot: models.SeedLot{Code: "B"}, Status: models.StatusCritical, Alerts: []string{"low"}},
		},
	}
	svc := NewService(&fakeLedger{}, &fakeReporting{report: report}, nil)

	reply, err := svc.HandleCommand(context.Background(), models.ParseCommand("alerts"), "1")

	require.NoError(t, err)
	assert.Contains(t, reply, "1 critical, 0 warning")
	assert.Contains(t, reply, "[Critical] B")
}

func TestHandleCommand_Unknown(t *testing.T) {
	svc := NewService(&fakeLedger{}, &fakeReporting{}, nil)

	_, err := svc.HandleCommand(context.Background(), models.ParseCommand("/eggs 12"), "1")

	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestReplyForError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("L1: %w", ledger.ErrInsufficientVolume), "Not enough volume"},
		{ledger.ErrLockTimeout, "try again"},
		{ErrInvalidArguments, "/withdraw CODE AMOUNT"},
		{errors.New("sheets down"), "not recorded"},
	}
	for _, tt := range tests {
		assert.Contains(t, ReplyForError(tt.err), tt.want)
	}
}

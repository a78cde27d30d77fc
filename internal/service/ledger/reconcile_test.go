package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

func appendEntry(t *testing.T, f *fixture, code string, amount int64) {
	t.Helper()
	require.NoError(t, f.store.AppendWithdrawalEntry(context.Background(), models.WithdrawalEntry{
		Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		LotCode:   code,
		Amount:    decimal.NewFromInt(amount),
	}))
}

func TestReconcile(t *testing.T) {
	// L1 drifted after a lost restore, L2 is consistent, L3 is overdrawn by the log.
	f := newFixture(t, lotWith("L1", 100, 100), lotWith("L2", 50, 40), lotWith("L3", 10, 10))
	appendEntry(t, f, "L1", 30)
	appendEntry(t, f, "L2", 10)
	appendEntry(t, f, "L3", 25)
	appendEntry(t, f, "GHOST", 5)

	report, err := f.engine.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, report.CheckedLots)
	require.Len(t, report.Corrections, 1)
	assert.Equal(t, "L1", report.Corrections[0].LotCode)
	assert.Equal(t, "70", report.Corrections[0].ExpectedText)
	assert.True(t, decimal.NewFromInt(70).Equal(f.current(t, "L1")))
	assert.True(t, decimal.NewFromInt(10).Equal(f.current(t, "L3")), "negative results are not written")

	require.Len(t, report.Anomalies, 2)
	assert.Equal(t, "L3", report.Anomalies[0].LotCode)
	assert.Equal(t, "GHOST", report.Anomalies[1].LotCode)
	assert.Empty(t, report.Failed)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestReconcile_CleanLedgerWritesNothing(t *testing.T) {
	f := newFixture(t, lotWith("L1", 100, 100))
	_, err := f.engine.ApplyWithdrawal(context.Background(), WithdrawalRequest{LotCode: "L1", Amount: 15})
	require.NoError(t, err)
	writes := len(f.repo.UpdateCalls)

	report, err := f.engine.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Empty(t, report.Corrections)
	assert.Len(t, f.repo.UpdateCalls, writes)
}

func TestReconcile_UpdateFailureIsReported(t *testing.T) {
	f := newFixture(t, lotWith("L1", 100, 100))
	appendEntry(t, f, "L1", 30)
	f.repo.UpdateErr = errors.New("quota exceeded")

	report, err := f.engine.Reconcile(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "L1", report.Failed[0].LotCode)
}

func TestReconcile_ReadFailure(t *testing.T) {
	f := newFixture(t, lotWith("L1", 100, 100))
	f.repo.ReadErr[sheetNames.Withdrawals] = errors.New("backend unavailable")

	_, err := f.engine.Reconcile(context.Background())

	assert.Error(t, err)
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/metrics"
)

// Validation errors. They are returned before anything is written.
var (
	ErrLotNotFound        = errors.New("lot not found")
	ErrInvalidAmount      = errors.New("amount must be a positive number")
	ErrInsufficientVolume = errors.New("insufficient volume")
)

// Store is the slice of the record store the engine reads and writes.
type Store interface {
	GetAllLots(ctx context.Context) ([]models.SeedLot, []models.Diagnostic, error)
	GetLotByCode(ctx context.Context, code string) (*models.SeedLot, error)
	UpdateLotFields(ctx context.Context, code string, fields map[string]string) (bool, error)
	AppendLot(ctx context.Context, lot models.SeedLot) error
	AppendWithdrawalEntry(ctx context.Context, entry models.WithdrawalEntry) error
	AppendEditLogEntry(ctx context.Context, entry models.EditLogEntry) error
	GetAllWithdrawalEntries(ctx context.Context, lotCode string) ([]models.WithdrawalEntry, []models.Diagnostic, error)
}

// Engine applies withdrawals and edits to the record store one at a time.
type Engine struct {
	store   Store
	locker  Locker
	roles   Roles
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	clockMu    sync.Mutex
	lastCommit time.Time
}

// NewEngine wires the ledger engine.
func NewEngine(store Store, locker Locker, roles Roles, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:   store,
		locker:  locker,
		roles:   roles,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// WithdrawalRequest carries one withdrawal as submitted by staff.
type WithdrawalRequest struct {
	LotCode       string  `json:"lotCode"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
	InventoryType string  `json:"inventoryType"`
	User          string  `json:"user"`
}

// ApplyWithdrawal validates a withdrawal against the lot's current volume,
// writes the new volume and appends the ledger entry.
//
// The lot row is updated before the entry is appended. If the append fails
// the previous volume is written back; if that also fails the row is left
// for Reconcile to repair from the log.
func (e *Engine) ApplyWithdrawal(ctx context.Context, req WithdrawalRequest) (*models.WithdrawalResult, error) {
	code := strings.TrimSpace(req.LotCode)
	if code == "" {
		e.metrics.ObserveWithdrawal(metrics.ResultRejected)
		return nil, fmt.Errorf("lot code is required: %w", ErrLotNotFound)
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		e.metrics.ObserveWithdrawal(metrics.ResultRejected)
		return nil, fmt.Errorf("%v: %w", req.Amount, ErrInvalidAmount)
	}
	amount := decimal.NewFromFloat(req.Amount)

	unlock, err := e.lock(ctx)
	if err != nil {
		e.metrics.ObserveWithdrawal(metrics.ResultBusy)
		e.logger.Warn("withdrawal dropped, lock not acquired", zap.String("lot_code", code), zap.Error(err))
		return nil, err
	}
	defer unlock()

	lot, err := e.store.GetLotByCode(ctx, code)
	if err != nil {
		e.metrics.ObserveWithdrawal(metrics.ResultFailed)
		return nil, fmt.Errorf("load lot %s: %w", code, err)
	}
	if lot == nil {
		e.metrics.ObserveWithdrawal(metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", code, ErrLotNotFound)
	}

	previous := lot.CurrentVolume
	available, err := e.available(ctx, *lot)
	if err != nil {
		e.metrics.ObserveWithdrawal(metrics.ResultFailed)
		return nil, err
	}
	if amount.GreaterThan(available) {
		e.metrics.ObserveWithdrawal(metrics.ResultRejected)
		e.logger.Info("withdrawal rejected",
			zap.String("lot_code", code),
			zap.String("amount", amount.String()),
			zap.String("available", available.String()),
		)
		return nil, fmt.Errorf("%s: requested %s, available %s: %w", code, amount, available, ErrInsufficientVolume)
	}

	ts := e.commitTime()
	next := previous.Sub(amount)

	ok, err := e.store.UpdateLotFields(ctx, code, map[string]string{
		models.KeyCurrentVolume: next.String(),
		models.KeyLastModified:  ts.Format(models.TimestampLayout),
	})
	if err != nil {
		e.metrics.ObserveWithdrawal(metrics.ResultFailed)
		return nil, fmt.Errorf("update lot %s: %w", code, err)
	}
	if !ok {
		e.metrics.ObserveWithdrawal(metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", code, ErrLotNotFound)
	}

	inventoryType := lot.InventoryType
	if strings.TrimSpace(req.InventoryType) != "" {
		inventoryType = models.ParseInventoryType(req.InventoryType)
	}

	entry := models.WithdrawalEntry{
		ID:            uuid.NewString(),
		Timestamp:     ts,
		LotCode:       code,
		InventoryType: inventoryType,
		Amount:        amount,
		PreviousValue: previous,
		NewValue:      next,
		Reason:        strings.TrimSpace(req.Reason),
		User:          strings.TrimSpace(req.User),
	}

	if err := e.store.AppendWithdrawalEntry(ctx, entry); err != nil {
		e.metrics.ObserveWithdrawal(metrics.ResultFailed)
		e.restore(ctx, code, map[string]string{
			models.KeyCurrentVolume: previous.String(),
			models.KeyLastModified:  lot.LastModified,
		})
		return nil, fmt.Errorf("append withdrawal entry for %s: %w", code, err)
	}

	e.metrics.ObserveWithdrawal(metrics.ResultAccepted)
	e.logger.Info("withdrawal applied",
		zap.String("lot_code", code),
		zap.String("entry_id", entry.ID),
		zap.String("amount", amount.String()),
		zap.String("previous", previous.String()),
		zap.String("new", next.String()),
	)

	return &models.WithdrawalResult{
		LotCode:        code,
		PreviousVolume: previous,
		NewVolume:      next,
		Amount:         amount,
		Timestamp:      ts,
		EntryID:        entry.ID,
	}, nil
}

// available is the smaller of the Current Volume cell and the original volume
// minus the lot's logged withdrawals. The two differ only when a write was
// lost or an append landed after reporting an error.
func (e *Engine) available(ctx context.Context, lot models.SeedLot) (decimal.Decimal, error) {
	entries, _, err := e.store.GetAllWithdrawalEntries(ctx, lot.Code)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load withdrawals for %s: %w", lot.Code, err)
	}

	logged := lot.OriginalVolume
	for _, entry := range entries {
		logged = logged.Sub(entry.Amount)
	}
	if logged.Equal(lot.CurrentVolume) {
		return logged, nil
	}

	e.logger.Warn("current volume disagrees with withdrawal log",
		zap.String("lot_code", lot.Code),
		zap.String("current", lot.CurrentVolume.String()),
		zap.String("logged", logged.String()),
	)
	return decimal.Min(lot.CurrentVolume, logged), nil
}

func (e *Engine) lock(ctx context.Context) (func(), error) {
	start := time.Now()
	unlock, err := e.locker.Lock(ctx)
	e.metrics.ObserveLockWait(time.Since(start))
	return unlock, err
}

// restore writes back the cells changed by a mutation whose log append failed.
func (e *Engine) restore(ctx context.Context, code string, fields map[string]string) {
	if _, err := e.store.UpdateLotFields(ctx, code, fields); err != nil {
		e.logger.Error("restore after failed append did not complete, reconciliation required",
			zap.String("lot_code", code),
			zap.Error(err),
		)
		return
	}
	e.logger.Warn("lot restored after failed append", zap.String("lot_code", code))
}

// commitTime returns a UTC timestamp strictly after the previous commit.
func (e *Engine) commitTime() time.Time {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()

	ts := e.now().UTC()
	if !ts.After(e.lastCommit) {
		ts = e.lastCommit.Add(time.Microsecond)
	}
	e.lastCommit = ts
	return ts
}

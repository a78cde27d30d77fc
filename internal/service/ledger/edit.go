package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/metrics"
)

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrFieldNotEditable = errors.New("field is not editable")
)

// EditRequest carries new values for lot fields keyed by field key.
type EditRequest struct {
	LotCode       string            `json:"lotCode"`
	ChangedFields map[string]string `json:"changedFields"`
	PinCode       string            `json:"pinCode"`
}

// EditResult lists the fields that actually changed.
type EditResult struct {
	LotCode   string                        `json:"lotCode"`
	Changes   map[string]models.FieldChange `json:"changes"`
	UserRole  string                        `json:"userRole"`
	Timestamp time.Time                     `json:"timestamp"`
}

// ApplyFieldEdit writes the fields whose value differs from the stored lot and
// appends one edit log entry holding only those fields. Every key is checked
// before anything is written; a single unknown or protected key rejects the edit.
func (e *Engine) ApplyFieldEdit(ctx context.Context, req EditRequest) (*EditResult, error) {
	code := strings.TrimSpace(req.LotCode)
	if code == "" {
		e.metrics.ObserveEdit(metrics.ResultRejected)
		return nil, fmt.Errorf("lot code is required: %w", ErrLotNotFound)
	}

	requested, err := normalizeEdits(req.ChangedFields)
	if err != nil {
		e.metrics.ObserveEdit(metrics.ResultRejected)
		e.logger.Info("edit rejected", zap.String("lot_code", code), zap.Error(err))
		return nil, err
	}
	role := e.roles.Resolve(req.PinCode)

	unlock, err := e.lock(ctx)
	if err != nil {
		e.metrics.ObserveEdit(metrics.ResultBusy)
		e.logger.Warn("edit dropped, lock not acquired", zap.String("lot_code", code), zap.Error(err))
		return nil, err
	}
	defer unlock()

	lot, err := e.store.GetLotByCode(ctx, code)
	if err != nil {
		e.metrics.ObserveEdit(metrics.ResultFailed)
		return nil, fmt.Errorf("load lot %s: %w", code, err)
	}
	if lot == nil {
		e.metrics.ObserveEdit(metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", code, ErrLotNotFound)
	}

	result := &EditResult{LotCode: code, Changes: map[string]models.FieldChange{}, UserRole: role}
	previous := make(map[string]string)
	next := make(map[string]string)
	for key, value := range requested {
		field, _ := models.LookupLotField(key)
		old := field.FieldValue(*lot)
		if old == value {
			continue
		}
		previous[key] = old
		next[key] = value
		result.Changes[key] = models.FieldChange{Old: old, New: value}
	}

	if len(next) == 0 {
		e.metrics.ObserveEdit(metrics.ResultAccepted)
		return result, nil
	}

	ts := e.commitTime()
	result.Timestamp = ts

	writes := make(map[string]string, len(next)+1)
	for key, value := range next {
		writes[key] = value
	}
	writes[models.KeyLastModified] = ts.Format(models.TimestampLayout)

	ok, err := e.store.UpdateLotFields(ctx, code, writes)
	if err != nil {
		e.metrics.ObserveEdit(metrics.ResultFailed)
		return nil, fmt.Errorf("update lot %s: %w", code, err)
	}
	if !ok {
		e.metrics.ObserveEdit(metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", code, ErrLotNotFound)
	}

	entry := models.EditLogEntry{
		Timestamp:        ts,
		LotCode:          code,
		PreviousSnapshot: previous,
		NewSnapshot:      next,
		UserRole:         role,
	}
	if err := e.store.AppendEditLogEntry(ctx, entry); err != nil {
		e.metrics.ObserveEdit(metrics.ResultFailed)
		undo := make(map[string]string, len(previous)+1)
		for key, value := range previous {
			undo[key] = value
		}
		undo[models.KeyLastModified] = lot.LastModified
		e.restore(ctx, code, undo)
		return nil, fmt.Errorf("append edit log for %s: %w", code, err)
	}

	e.metrics.ObserveEdit(metrics.ResultAccepted)
	e.logger.Info("lot edited",
		zap.String("lot_code", code),
		zap.String("role", role),
		zap.Strings("fields", sortedKeys(next)),
	)
	return result, nil
}

// normalizeEdits validates keys and canonicalises values the way they are stored.
func normalizeEdits(fields map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for _, key := range sortedKeys(fields) {
		field, ok := models.LookupLotField(key)
		if !ok {
			return nil, fmt.Errorf("%s: %w", key, ErrUnknownField)
		}
		if !field.Editable {
			return nil, fmt.Errorf("%s: %w", key, ErrFieldNotEditable)
		}
		value := strings.TrimSpace(fields[key])
		if key == models.KeyInventoryType {
			value = string(models.ParseInventoryType(value))
		}
		out[key] = value
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

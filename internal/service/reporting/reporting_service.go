package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/metrics"
	"github.com/mamadbah2/seedbank/internal/service/inventory"
)

const dateLayout = "2006-01-02"

// Store is the read side of the record store.
type Store interface {
	GetAllLots(ctx context.Context) ([]models.SeedLot, []models.Diagnostic, error)
	GetLotByCode(ctx context.Context, code string) (*models.SeedLot, error)
	GetAllWithdrawalEntries(ctx context.Context, lotCode string) ([]models.WithdrawalEntry, []models.Diagnostic, error)
	GetAllEditLogEntries(ctx context.Context, lotCode string) ([]models.EditLogEntry, []models.Diagnostic, error)
}

// SnapshotRepository archives daily snapshots.
type SnapshotRepository interface {
	SaveInventorySnapshot(ctx context.Context, snapshot models.InventorySnapshot) error
	ListInventorySnapshots(ctx context.Context, limit int64) ([]models.InventorySnapshot, error)
}

// Service builds read models over the lot sheet and the withdrawal ledger.
// Reads take no lock and work on whatever the store returns.
type Service struct {
	store     Store
	snapshots SnapshotRepository
	policy    inventory.Policy
	location  *time.Location
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance. snapshots may be nil
// when no archive is configured.
func NewService(store Store, snapshots SnapshotRepository, policy inventory.Policy, location *time.Location, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		store:     store,
		snapshots: snapshots,
		policy:    policy,
		location:  location,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Location is the time zone day boundaries are computed in.
func (s *Service) Location() *time.Location {
	return s.location
}

// Inventory loads lots and the full ledger and aggregates them. Row problems
// from the store are merged into the report diagnostics.
func (s *Service) Inventory(ctx context.Context) (models.InventoryReport, error) {
	lots, lotDiags, err := s.store.GetAllLots(ctx)
	if err != nil {
		return models.InventoryReport{}, fmt.Errorf("load lots: %w", err)
	}
	entries, entryDiags, err := s.store.GetAllWithdrawalEntries(ctx, "")
	if err != nil {
		return models.InventoryReport{}, fmt.Errorf("load withdrawals: %w", err)
	}

	report := inventory.Aggregate(lots, entries, s.now().In(s.location), s.policy)

	diags := make([]models.Diagnostic, 0, len(lotDiags)+len(entryDiags)+len(report.Diagnostics))
	diags = append(diags, lotDiags...)
	diags = append(diags, entryDiags...)
	report.Diagnostics = append(diags, report.Diagnostics...)

	if len(report.Diagnostics) > 0 {
		s.logger.Debug("inventory built with diagnostics", zap.Int("count", len(report.Diagnostics)))
	}
	return report, nil
}

// ListLots returns lots, optionally restricted to one inventory type.
func (s *Service) ListLots(ctx context.Context, inventoryType string) ([]models.SeedLot, []models.Diagnostic, error) {
	lots, diags, err := s.store.GetAllLots(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load lots: %w", err)
	}
	if strings.TrimSpace(inventoryType) == "" {
		return lots, diags, nil
	}

	want := models.ParseInventoryType(inventoryType)
	filtered := make([]models.SeedLot, 0, len(lots))
	for _, lot := range lots {
		if lot.InventoryType == want {
			filtered = append(filtered, lot)
		}
	}
	return filtered, diags, nil
}

// LotView aggregates a single lot against its own ledger entries. It returns
// nil without error when no lot has the code.
func (s *Service) LotView(ctx context.Context, code string) (*models.AggregatedLotView, []models.Diagnostic, error) {
	lot, err := s.store.GetLotByCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("load lot %s: %w", code, err)
	}
	if lot == nil {
		return nil, nil, nil
	}
	entries, diags, err := s.store.GetAllWithdrawalEntries(ctx, lot.Code)
	if err != nil {
		return nil, nil, fmt.Errorf("load withdrawals for %s: %w", lot.Code, err)
	}

	report := inventory.Aggregate([]models.SeedLot{*lot}, entries, s.now().In(s.location), s.policy)
	view := report.Lots[0]
	return &view, append(diags, report.Diagnostics...), nil
}

// Withdrawals returns ledger entries inside [from, to). Zero bounds are open.
func (s *Service) Withdrawals(ctx context.Context, lotCode string, from, to time.Time) ([]models.WithdrawalEntry, []models.Diagnostic, error) {
	entries, diags, err := s.store.GetAllWithdrawalEntries(ctx, lotCode)
	if err != nil {
		return nil, nil, fmt.Errorf("load withdrawals: %w", err)
	}
	return inventory.FilterWindow(entries, from, to), diags, nil
}

// Edits returns the edit audit trail, optionally for one lot.
func (s *Service) Edits(ctx context.Context, lotCode string) ([]models.EditLogEntry, []models.Diagnostic, error) {
	entries, diags, err := s.store.GetAllEditLogEntries(ctx, lotCode)
	if err != nil {
		return nil, nil, fmt.Errorf("load edit logs: %w", err)
	}
	return entries, diags, nil
}

// Dashboard is the summary shown on the inventory overview.
type Dashboard struct {
	GeneratedAt     time.Time                                    `json:"generatedAt"`
	InventoryType   models.InventoryType                         `json:"inventoryType,omitempty"`
	TotalLots       int                                          `json:"totalLots"`
	ArchivedLots    int                                          `json:"archivedLots"`
	Counts          models.StatusCounts                          `json:"counts"`
	ByInventoryType map[models.InventoryType]models.StatusCounts `json:"byInventoryType"`
	TotalRemaining  decimal.Decimal                              `json:"totalRemaining"`
	TotalWithdrawn  decimal.Decimal                              `json:"totalWithdrawn"`
	Lots            []models.AggregatedLotView                   `json:"lots"`
	Diagnostics     []models.Diagnostic                          `json:"diagnostics"`
}

// Dashboard aggregates the inventory and summarises active lots. Archived lots
// are counted but excluded from the status figures.
func (s *Service) Dashboard(ctx context.Context, inventoryType string) (*Dashboard, error) {
	report, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	dash := summarize(report, inventoryType)
	if dash.InventoryType == "" {
		s.metrics.SetLotStatus(dash.Counts)
	}
	return dash, nil
}

func summarize(report models.InventoryReport, inventoryType string) *Dashboard {
	dash := &Dashboard{
		GeneratedAt:     report.GeneratedAt,
		ByInventoryType: make(map[models.InventoryType]models.StatusCounts),
		Lots:            make([]models.AggregatedLotView, 0, len(report.Lots)),
		Diagnostics:     report.Diagnostics,
	}
	if strings.TrimSpace(inventoryType) != "" {
		dash.InventoryType = models.ParseInventoryType(inventoryType)
	}

	for _, view := range report.Lots {
		if dash.InventoryType != "" && view.InventoryType != dash.InventoryType {
			continue
		}
		dash.TotalLots++
		dash.Lots = append(dash.Lots, view)
		if view.Archived {
			dash.ArchivedLots++
			continue
		}

		dash.Counts.Add(view.Status)
		byType := dash.ByInventoryType[view.InventoryType]
		byType.Add(view.Status)
		dash.ByInventoryType[view.InventoryType] = byType

		dash.TotalRemaining = dash.TotalRemaining.Add(view.RemainingVolume)
		dash.TotalWithdrawn = dash.TotalWithdrawn.Add(view.TotalWithdrawn)
	}
	return dash
}

// SaveSnapshot archives today's dashboard figures.
func (s *Service) SaveSnapshot(ctx context.Context) (*models.InventorySnapshot, error) {
	if s.snapshots == nil {
		return nil, fmt.Errorf("snapshot archive not configured")
	}

	dash, err := s.Dashboard(ctx, "")
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.location)
	y, m, d := now.Date()
	snapshot := models.InventorySnapshot{
		Date:            time.Date(y, m, d, 0, 0, 0, 0, s.location),
		TotalLots:       dash.TotalLots,
		ArchivedLots:    dash.ArchivedLots,
		Counts:          dash.Counts,
		ByInventoryType: dash.ByInventoryType,
		TotalRemaining:  dash.TotalRemaining.String(),
		TotalWithdrawn:  dash.TotalWithdrawn.String(),
		CriticalLots:    []string{},
		Diagnostics:     len(dash.Diagnostics),
		CreatedAt:       now,
	}
	for _, view := range dash.Lots {
		if !view.Archived && view.Status == models.StatusCritical {
			snapshot.CriticalLots = append(snapshot.CriticalLots, view.Code)
		}
	}

	if err := s.snapshots.SaveInventorySnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot %s: %w", snapshot.Date.Format(dateLayout), err)
	}
	s.logger.Info("inventory snapshot saved",
		zap.String("date", snapshot.Date.Format(dateLayout)),
		zap.Int("critical", snapshot.Counts.Critical),
		zap.Int("warning", snapshot.Counts.Warning),
	)
	return &snapshot, nil
}

// Snapshots lists archived snapshots, newest first.
func (s *Service) Snapshots(ctx context.Context, limit int64) ([]models.InventorySnapshot, error) {
	if s.snapshots == nil {
		return nil, fmt.Errorf("snapshot archive not configured")
	}
	return s.snapshots.ListInventorySnapshots(ctx, limit)
}

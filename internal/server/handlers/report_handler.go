package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/service/ledger"
	"github.com/mamadbah2/seedbank/internal/service/reporting"
)

// ReportService builds dashboards and exports.
type ReportService interface {
	Dashboard(ctx context.Context, inventoryType string) (*reporting.Dashboard, error)
	ExportWorkbook(ctx context.Context) (*excelize.File, string, error)
	Snapshots(ctx context.Context, limit int64) ([]models.InventorySnapshot, error)
}

// Reconciler repairs lot volumes from the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) (*models.ReconciliationReport, error)
}

// ReportHandler serves dashboard, export and admin routes.
type ReportHandler struct {
	reports    ReportService
	reconciler Reconciler
	roles      ledger.Roles
	logger     *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(reports ReportService, reconciler Reconciler, roles ledger.Roles, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, reconciler: reconciler, roles: roles, logger: logger}
}

// Dashboard returns status counts and lot views.
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dash, err := h.reports.Dashboard(c.Request.Context(), c.Query("inventoryType"))
	if err != nil {
		h.logger.Error("dashboard failed", zap.Error(err))
		fail(c, err)
		return
	}
	dash.Diagnostics = nonNil(dash.Diagnostics)
	c.JSON(http.StatusOK, dash)
}

// ExportInventory streams the inventory workbook.
func (h *ReportHandler) ExportInventory(c *gin.Context) {
	f, filename, err := h.reports.ExportWorkbook(c.Request.Context())
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		fail(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("write workbook failed", zap.Error(err))
	}
}

// Snapshots lists archived daily snapshots.
func (h *ReportHandler) Snapshots(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "30"), 10, 64)
	if err != nil || limit <= 0 {
		badRequest(c, "limit must be a positive integer")
		return
	}

	snapshots, err := h.reports.Snapshots(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list snapshots failed", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": nonNil(snapshots)})
}

// Reconcile runs the ledger reconciliation on demand. The caller must present
// a PIN known to the role table in X-Edit-Pin.
func (h *ReportHandler) Reconcile(c *gin.Context) {
	role := h.roles.Resolve(c.GetHeader("X-Edit-Pin"))
	if role == ledger.UnknownRole {
		c.JSON(http.StatusForbidden, failure{Success: false, Message: "a valid PIN is required"})
		return
	}

	report, err := h.reconciler.Reconcile(c.Request.Context())
	if err != nil {
		h.logger.Error("reconciliation failed", zap.String("role", role), zap.Error(err))
		fail(c, err)
		return
	}
	h.logger.Info("reconciliation requested", zap.String("role", role), zap.Int("corrections", len(report.Corrections)))
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

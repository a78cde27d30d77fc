package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/service/ledger"
	"github.com/mamadbah2/seedbank/pkg/clients/qrcode"
)

// LedgerService is the write side used by the lot routes.
type LedgerService interface {
	ApplyWithdrawal(ctx context.Context, req ledger.WithdrawalRequest) (*models.WithdrawalResult, error)
	ApplyFieldEdit(ctx context.Context, req ledger.EditRequest) (*ledger.EditResult, error)
	RegisterLot(ctx context.Context, req ledger.NewLotRequest) (*models.SeedLot, error)
}

// LotReader is the read side used by the lot routes.
type LotReader interface {
	ListLots(ctx context.Context, inventoryType string) ([]models.SeedLot, []models.Diagnostic, error)
	LotView(ctx context.Context, code string) (*models.AggregatedLotView, []models.Diagnostic, error)
	Withdrawals(ctx context.Context, lotCode string, from, to time.Time) ([]models.WithdrawalEntry, []models.Diagnostic, error)
	Edits(ctx context.Context, lotCode string) ([]models.EditLogEntry, []models.Diagnostic, error)
	Location() *time.Location
}

// LotHandler serves lot, withdrawal and edit routes.
type LotHandler struct {
	ledger LedgerService
	reader LotReader
	qr     qrcode.Client
	logger *zap.Logger
}

// NewLotHandler constructs the HTTP handler adapter.
func NewLotHandler(ledgerSvc LedgerService, reader LotReader, qr qrcode.Client, logger *zap.Logger) *LotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LotHandler{ledger: ledgerSvc, reader: reader, qr: qr, logger: logger}
}

// Withdraw applies one withdrawal.
func (h *LotHandler) Withdraw(c *gin.Context) {
	var req ledger.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.ledger.ApplyWithdrawal(c.Request.Context(), req)
	if err != nil {
		h.logger.Info("withdrawal failed", zap.String("lot_code", req.LotCode), zap.Float64("amount", req.Amount), zap.Error(err))
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"lotCode":        res.LotCode,
		"previousVolume": res.PreviousVolume,
		"newVolume":      res.NewVolume,
		"amount":         res.Amount,
		"timestamp":      res.Timestamp,
		"entryId":        res.EntryID,
	})
}

// Edit changes non-volume lot fields.
func (h *LotHandler) Edit(c *gin.Context) {
	var req ledger.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.ledger.ApplyFieldEdit(c.Request.Context(), req)
	if err != nil {
		h.logger.Info("edit failed", zap.String("lot_code", req.LotCode), zap.Error(err))
		fail(c, err)
		return
	}

	message := "no changes"
	if n := len(res.Changes); n > 0 {
		message = fmt.Sprintf("%d field(s) updated", n)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  message,
		"changes":  res.Changes,
		"userRole": res.UserRole,
	})
}

// Register records a new lot.
func (h *LotHandler) Register(c *gin.Context) {
	var req ledger.NewLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	lot, err := h.ledger.RegisterLot(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "lot": lot})
}

// List returns lots, optionally filtered by inventory type.
func (h *LotHandler) List(c *gin.Context) {
	lots, diags, err := h.reader.ListLots(c.Request.Context(), c.Query("inventoryType"))
	if err != nil {
		h.logger.Error("list lots failed", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": nonNil(lots), "diagnostics": nonNil(diags)})
}

// Get returns one lot with its derived figures.
func (h *LotHandler) Get(c *gin.Context) {
	view, diags, err := h.reader.LotView(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.logger.Error("load lot failed", zap.String("lot_code", c.Param("code")), zap.Error(err))
		fail(c, err)
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, failure{Success: false, Message: "lot not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lot": view, "diagnostics": nonNil(diags)})
}

// QR returns a PNG label for the lot code.
func (h *LotHandler) QR(c *gin.Context) {
	code := c.Param("code")
	view, _, err := h.reader.LotView(c.Request.Context(), code)
	if err != nil {
		fail(c, err)
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, failure{Success: false, Message: "lot not found"})
		return
	}

	img, err := h.qr.Generate(c.Request.Context(), view.Code)
	if err != nil {
		h.logger.Warn("qr generation failed", zap.String("lot_code", code), zap.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, qrcode.ErrRetriesExhausted) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, failure{Success: false, Message: "qr image unavailable"})
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

// Withdrawals returns ledger entries, optionally for one lot and a date window.
// from and to accept a date (to is inclusive of that day) or an RFC 3339 timestamp.
func (h *LotHandler) Withdrawals(c *gin.Context) {
	loc := h.reader.Location()
	from, err := parseBound(c.Query("from"), loc, false)
	if err != nil {
		badRequest(c, "invalid from: "+err.Error())
		return
	}
	to, err := parseBound(c.Query("to"), loc, true)
	if err != nil {
		badRequest(c, "invalid to: "+err.Error())
		return
	}

	entries, diags, err := h.reader.Withdrawals(c.Request.Context(), c.Query("lotCode"), from, to)
	if err != nil {
		h.logger.Error("load withdrawals failed", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": nonNil(entries), "diagnostics": nonNil(diags)})
}

// Edits returns the edit audit trail.
func (h *LotHandler) Edits(c *gin.Context) {
	entries, diags, err := h.reader.Edits(c.Request.Context(), c.Query("lotCode"))
	if err != nil {
		h.logger.Error("load edits failed", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": nonNil(entries), "diagnostics": nonNil(diags)})
}

func parseBound(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.AddDate(0, 0, 1), nil
	}
	return day, nil
}

// nonNil keeps empty lists as [] in JSON.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

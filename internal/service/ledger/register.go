package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
)

// ErrDuplicateCode is returned when a new lot would reuse an existing code.
var ErrDuplicateCode = errors.New("lot code already exists")

// NewLotRequest is a lot submission. The code is derived, never supplied.
type NewLotRequest struct {
	Crop            string  `json:"crop"`
	Variety         string  `json:"variety"`
	LotNumber       string  `json:"lotNumber"`
	BagNumber       string  `json:"bagNumber"`
	StoredDate      string  `json:"storedDate"`
	HarvestDate     string  `json:"harvestDate"`
	Volume          float64 `json:"volume"`
	Unit            string  `json:"unit"`
	SeedClass       string  `json:"seedClass"`
	Location        string  `json:"location"`
	Program         string  `json:"program"`
	MoistureContent string  `json:"moistureContent"`
	GerminationRate string  `json:"germinationRate"`
	Remarks         string  `json:"remarks"`
	InventoryType   string  `json:"inventoryType"`
}

// RegisterLot derives the lot code and appends a new lot row whose current
// volume equals its original volume.
func (e *Engine) RegisterLot(ctx context.Context, req NewLotRequest) (*models.SeedLot, error) {
	if math.IsNaN(req.Volume) || math.IsInf(req.Volume, 0) || req.Volume < 0 {
		return nil, fmt.Errorf("volume %v: %w", req.Volume, ErrInvalidAmount)
	}
	volume := decimal.NewFromFloat(req.Volume)

	lot := models.SeedLot{
		Crop:            strings.TrimSpace(req.Crop),
		Variety:         strings.TrimSpace(req.Variety),
		LotNumber:       strings.TrimSpace(req.LotNumber),
		BagNumber:       strings.TrimSpace(req.BagNumber),
		StoredDate:      strings.TrimSpace(req.StoredDate),
		HarvestDate:     strings.TrimSpace(req.HarvestDate),
		OriginalVolume:  volume,
		CurrentVolume:   volume,
		Unit:            strings.TrimSpace(req.Unit),
		SeedClass:       strings.TrimSpace(req.SeedClass),
		Location:        strings.TrimSpace(req.Location),
		Program:         strings.TrimSpace(req.Program),
		MoistureContent: strings.TrimSpace(req.MoistureContent),
		GerminationRate: strings.TrimSpace(req.GerminationRate),
		Remarks:         strings.TrimSpace(req.Remarks),
		InventoryType:   models.ParseInventoryType(req.InventoryType),
	}
	lot.Code = models.GenerateLotCode(models.LotCodeInputFor(lot))

	unlock, err := e.lock(ctx)
	if err != nil {
		e.logger.Warn("lot registration dropped, lock not acquired", zap.String("lot_code", lot.Code), zap.Error(err))
		return nil, err
	}
	defer unlock()

	existing, err := e.store.GetLotByCode(ctx, lot.Code)
	if err != nil {
		return nil, fmt.Errorf("check lot %s: %w", lot.Code, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", lot.Code, ErrDuplicateCode)
	}

	ts := e.commitTime().Format(models.TimestampLayout)
	lot.SubmittedAt = ts
	lot.LastModified = ts

	if err := e.store.AppendLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("register lot %s: %w", lot.Code, err)
	}

	e.logger.Info("lot registered", zap.String("lot_code", lot.Code), zap.String("volume", volume.String()))
	return &lot, nil
}

package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ingestdomain "github.com/lotsight/lotsight/internal/ingest/domain"
	intakedomain "github.com/lotsight/lotsight/internal/intake/domain"
	lotdomain "github.com/lotsight/lotsight/internal/lot/domain"
	"github.com/lotsight/lotsight/internal/normalize"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p ServiceParam) intakedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("intake.service"),
		genID: p.GenID,
	}
}

func (s *Service) AddProductionLog(ctx context.Context, req intakedomain.AddProductionLogRequest) (*ingestdomain.ProductionLog, error) {
	record := &ingestdomain.ProductionLog{
		LotIDRaw:        req.LotID,
		LineName:        req.Line,
		RunDate:         req.RunDate,
		Shift:           req.Shift,
		PrimaryIssue:    req.PrimaryIssue,
		LineIssue:       req.LineIssue,
		DowntimeMinutes: req.DowntimeMinutes,
		Notes:           req.Notes,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) AddShippingLog(ctx context.Context, req intakedomain.AddShippingLogRequest) (*ingestdomain.ShippingLog, error) {
	record := &ingestdomain.ShippingLog{
		LotIDRaw:   req.LotID,
		ShipDate:   req.ShipDate,
		ShipStatus: req.ShipStatus,
		HoldReason: req.HoldReason,
		Carrier:    req.Carrier,
		Notes:      req.Notes,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) UpsertLot(ctx context.Context, req intakedomain.UpsertLotRequest) (*lotdomain.Lot, error) {
	normalized, ok := normalize.LotID(req.LotID)
	if !ok {
		return nil, intakedomain.ErrInvalidLotID
	}

	record := &lotdomain.Lot{
		ID:              s.genID.Generate(),
		NormalizedLotID: normalized,
		PartRef:         req.PartRef,
		CreatedAt:       time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_lot_id"}},
			DoNothing: true,
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}

	var existing lotdomain.Lot
	err = s.db.WithContext(ctx).
		Where("normalized_lot_id = ?", normalized).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

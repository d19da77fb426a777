package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	lotdomain "github.com/lotsight/lotsight/internal/lot/domain"
	"github.com/lotsight/lotsight/internal/normalize"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p ServiceParam) lotdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("lot.service"),
	}
}

func (s *Service) WithTx(tx *gorm.DB) lotdomain.Service {
	return &Service{db: tx, log: s.log}
}

func (s *Service) Resolve(ctx context.Context, rawLotID string, resolvedID snowflake.ID) (lotdomain.Resolution, error) {
	if resolvedID != 0 {
		lot, err := s.findByID(ctx, resolvedID)
		if err != nil {
			return lotdomain.Resolution{}, err
		}
		if lot != nil {
			return lotdomain.Resolution{Outcome: lotdomain.OutcomeFastPath, Lot: lot, NormalizedID: lot.NormalizedLotID}, nil
		}
		// Stale backfill; fall through to raw resolution.
	}

	normalized, ok := normalize.LotID(rawLotID)
	if !ok {
		return lotdomain.Resolution{Outcome: lotdomain.OutcomeUnmatched}, nil
	}

	var lot lotdomain.Lot
	err := s.db.WithContext(ctx).
		Where("normalized_lot_id = ?", normalized).
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lotdomain.Resolution{Outcome: lotdomain.OutcomeUnmatched, NormalizedID: normalized}, nil
		}
		return lotdomain.Resolution{}, err
	}

	return lotdomain.Resolution{Outcome: lotdomain.OutcomeResolved, Lot: &lot, NormalizedID: normalized}, nil
}

func (s *Service) CheckAndAssign(ctx context.Context, lotID, lineID snowflake.ID) (lotdomain.AssignResult, error) {
	record := &lotdomain.LotLineAssignment{
		LotID:            lotID,
		ProductionLineID: lineID,
		CreatedAt:        time.Now().UTC(),
	}

	// Insert-if-absent at the storage layer so two concurrent runs cannot
	// both believe they were first.
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lot_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return lotdomain.AssignResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return lotdomain.AssignResult{}, nil
	}

	existing, err := s.GetAssignment(ctx, lotID)
	if err != nil {
		return lotdomain.AssignResult{}, err
	}
	if existing == nil {
		return lotdomain.AssignResult{}, gorm.ErrRecordNotFound
	}
	if existing.ProductionLineID == lineID {
		return lotdomain.AssignResult{}, nil
	}
	return lotdomain.AssignResult{Conflict: true, ExistingLineID: existing.ProductionLineID}, nil
}

func (s *Service) GetAssignment(ctx context.Context, lotID snowflake.ID) (*lotdomain.LotLineAssignment, error) {
	var record lotdomain.LotLineAssignment
	err := s.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) findByID(ctx context.Context, id snowflake.ID) (*lotdomain.Lot, error) {
	var lot lotdomain.Lot
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

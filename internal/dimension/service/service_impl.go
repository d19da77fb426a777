package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	dimensiondomain "github.com/lotsight/lotsight/internal/dimension/domain"
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

func NewService(p ServiceParam) dimensiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dimension.service"),
		genID: p.GenID,
	}
}

func (s *Service) WithTx(tx *gorm.DB) dimensiondomain.Service {
	return &Service{db: tx, log: s.log, genID: s.genID}
}

func (s *Service) EnsureLine(ctx context.Context, label string) (*dimensiondomain.ProductionLine, error) {
	normalized, ok := normalize.Label(label)
	if !ok {
		return nil, dimensiondomain.ErrInvalidLabel
	}

	record := &dimensiondomain.ProductionLine{
		ID:             s.genID.Generate(),
		Name:           label,
		NormalizedName: normalized,
		CreatedAt:      time.Now().UTC(),
	}

	// Insert-if-absent on the normalized name; concurrent callers with
	// the same label converge on one row without pipeline-level locking.
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_name"}},
			DoNothing: true,
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}

	var existing dimensiondomain.ProductionLine
	err = s.db.WithContext(ctx).
		Where("normalized_name = ?", normalized).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *Service) EnsureIssueType(ctx context.Context, source dimensiondomain.Source, label string) (*dimensiondomain.IssueType, error) {
	normalized, ok := normalize.Label(label)
	if !ok {
		return nil, dimensiondomain.ErrInvalidLabel
	}

	record := &dimensiondomain.IssueType{
		ID:              s.genID.Generate(),
		Source:          source,
		Label:           label,
		NormalizedLabel: normalized,
		CreatedAt:       time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "normalized_label"}},
			DoNothing: true,
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}

	var existing dimensiondomain.IssueType
	err = s.db.WithContext(ctx).
		Where("source = ? AND normalized_label = ?", source, normalized).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

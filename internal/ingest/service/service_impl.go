package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/lotsight/lotsight/internal/calendar"
	"github.com/lotsight/lotsight/internal/config"
	dimensiondomain "github.com/lotsight/lotsight/internal/dimension/domain"
	ingestdomain "github.com/lotsight/lotsight/internal/ingest/domain"
	lotdomain "github.com/lotsight/lotsight/internal/lot/domain"
	"github.com/lotsight/lotsight/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Cfg     config.Config
	LotSvc  lotdomain.Service
	DimSvc  dimensiondomain.Service
	Metrics *metrics.Ingest `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	cfg     config.IngestConfig
	lotSvc  lotdomain.Service
	dimSvc  dimensiondomain.Service
	metrics *metrics.Ingest
}

func NewService(p ServiceParam) ingestdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("ingest.service"),

		genID:   p.GenID,
		cfg:     p.Cfg.Ingest,
		lotSvc:  p.LotSvc,
		dimSvc:  p.DimSvc,
		metrics: p.Metrics,
	}
}

// ProcessProductionLogs runs one atomic batch over production records
// that have no outcome yet. Records are walked in ascending sequence so
// first-writer-wins on the ledger is reproducible across retries.
func (s *Service) ProcessProductionLogs(ctx context.Context, batchSize int) (ingestdomain.Result, error) {
	if batchSize <= 0 {
		batchSize = s.cfg.DefaultBatchSize
	}
	runID := uuid.NewString()

	var res ingestdomain.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var records []*ingestdomain.ProductionLog
		err := tx.
			Where("NOT EXISTS (SELECT 1 FROM issue_events e WHERE e.production_log_id = production_logs.id)").
			Where("NOT EXISTS (SELECT 1 FROM data_quality_flags f WHERE f.production_log_id = production_logs.id)").
			Order("id ASC").
			Limit(batchSize).
			Find(&records).Error
		if err != nil {
			return err
		}

		for _, rec := range records {
			eval := s.newProductionEval(tx, rec)
			decision, err := eval.classify(ctx)
			if err != nil {
				return err
			}
			if decision != nil {
				if err := s.persistFlag(ctx, tx, eval.flag(s.genID.Generate(), decision)); err != nil {
					return err
				}
				res.Flagged++
			} else {
				if err := tx.Create(eval.event(s.genID.Generate())).Error; err != nil {
					return err
				}
			}
			res.Processed++
		}
		return nil
	})
	if err != nil {
		return ingestdomain.Result{}, err
	}

	s.metrics.ObserveBatch(string(ingestdomain.SourceKindProductionLog), res.Processed, res.Flagged)
	s.log.Info("production pass complete",
		zap.String("run_id", runID),
		zap.Int("processed", res.Processed),
		zap.Int("flagged", res.Flagged),
	)
	return res, nil
}

// ProcessShippingLogs runs one atomic batch over shipping records that
// have no outcome yet.
func (s *Service) ProcessShippingLogs(ctx context.Context, batchSize int) (ingestdomain.Result, error) {
	if batchSize <= 0 {
		batchSize = s.cfg.DefaultBatchSize
	}
	runID := uuid.NewString()

	var res ingestdomain.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var records []*ingestdomain.ShippingLog
		err := tx.
			Where("NOT EXISTS (SELECT 1 FROM issue_events e WHERE e.shipping_log_id = shipping_logs.id)").
			Where("NOT EXISTS (SELECT 1 FROM data_quality_flags f WHERE f.shipping_log_id = shipping_logs.id)").
			Order("id ASC").
			Limit(batchSize).
			Find(&records).Error
		if err != nil {
			return err
		}

		for _, rec := range records {
			eval := s.newShippingEval(tx, rec)
			decision, err := eval.classify(ctx)
			if err != nil {
				return err
			}
			if decision != nil {
				if err := s.persistFlag(ctx, tx, eval.flag(s.genID.Generate(), decision)); err != nil {
					return err
				}
				res.Flagged++
			} else {
				if err := tx.Create(eval.event(s.genID.Generate())).Error; err != nil {
					return err
				}
			}
			res.Processed++
		}
		return nil
	})
	if err != nil {
		return ingestdomain.Result{}, err
	}

	s.metrics.ObserveBatch(string(ingestdomain.SourceKindShippingLog), res.Processed, res.Flagged)
	s.log.Info("shipping pass complete",
		zap.String("run_id", runID),
		zap.Int("processed", res.Processed),
		zap.Int("flagged", res.Flagged),
	)
	return res, nil
}

// ProcessAll runs production then shipping. Shipping goes second because
// its line inference reads assignments the production pass may have just
// written. The passes commit independently; a production failure does
// not stop the shipping attempt.
func (s *Service) ProcessAll(ctx context.Context, batchSize int) (ingestdomain.RunResult, error) {
	var run ingestdomain.RunResult

	production, prodErr := s.ProcessProductionLogs(ctx, batchSize)
	if prodErr == nil {
		run.Production = production
	}

	shipping, shipErr := s.ProcessShippingLogs(ctx, batchSize)
	if shipErr == nil {
		run.Shipping = shipping
	}

	return run, errors.Join(prodErr, shipErr)
}

func (s *Service) persistFlag(ctx context.Context, tx *gorm.DB, flag *ingestdomain.DataQualityFlag) error {
	return tx.WithContext(ctx).Create(flag).Error
}

func (s *Service) backfillProductionLot(ctx context.Context, tx *gorm.DB, rec *ingestdomain.ProductionLog, lotID snowflake.ID) error {
	err := tx.WithContext(ctx).
		Model(&ingestdomain.ProductionLog{}).
		Where("id = ?", rec.ID).
		Update("lot_id", lotID).Error
	if err != nil {
		return err
	}
	rec.LotID = &lotID
	return nil
}

func (s *Service) backfillShippingLot(ctx context.Context, tx *gorm.DB, rec *ingestdomain.ShippingLog, lotID snowflake.ID) error {
	err := tx.WithContext(ctx).
		Model(&ingestdomain.ShippingLog{}).
		Where("id = ?", rec.ID).
		Update("lot_id", lotID).Error
	if err != nil {
		return err
	}
	rec.LotID = &lotID
	return nil
}

func missingFieldsJSON(missing []string) []byte {
	if len(missing) == 0 {
		return nil
	}
	encoded, err := json.Marshal(missing)
	if err != nil {
		return nil
	}
	return encoded
}

// recordWeekStart derives the flag's week bucket from the record's own
// date text when it parses.
func recordWeekStart(rawDate string) *time.Time {
	parsed, err := calendar.ParseDate(strings.TrimSpace(rawDate))
	if err != nil {
		return nil
	}
	weekStart := calendar.WeekStart(parsed)
	return &weekStart
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lotsight/lotsight/internal/config"
	dimensiondomain "github.com/lotsight/lotsight/internal/dimension/domain"
	dimensionservice "github.com/lotsight/lotsight/internal/dimension/service"
	ingestdomain "github.com/lotsight/lotsight/internal/ingest/domain"
	lotdomain "github.com/lotsight/lotsight/internal/lot/domain"
	lotservice "github.com/lotsight/lotsight/internal/lot/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	conn *gorm.DB
	node *snowflake.Node
	svc  ingestdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(
		&dimensiondomain.ProductionLine{},
		&dimensiondomain.IssueType{},
		&lotdomain.Lot{},
		&lotdomain.LotLineAssignment{},
		&ingestdomain.ProductionLog{},
		&ingestdomain.ShippingLog{},
		&ingestdomain.IssueEvent{},
		&ingestdomain.DataQualityFlag{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	cfg := config.Config{Ingest: config.IngestConfig{
		DefaultBatchSize:       500,
		DefaultProductionIssue: 1,
		ShippingIssueQuantity:  1,
	}}

	svc := NewService(ServiceParam{
		DB:     conn,
		Log:    log,
		GenID:  node,
		Cfg:    cfg,
		LotSvc: lotservice.NewService(lotservice.ServiceParam{DB: conn, Log: log}),
		DimSvc: dimensionservice.NewService(dimensionservice.ServiceParam{DB: conn, Log: log, GenID: node}),
	})

	return &fixture{conn: conn, node: node, svc: svc}
}

func (f *fixture) seedLot(t *testing.T, normalizedID string) lotdomain.Lot {
	t.Helper()
	lot := lotdomain.Lot{
		ID:              f.node.Generate(),
		NormalizedLotID: normalizedID,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, f.conn.Create(&lot).Error)
	return lot
}

func (f *fixture) seedProductionLog(t *testing.T, rec ingestdomain.ProductionLog) int64 {
	t.Helper()
	rec.CreatedAt = time.Now().UTC()
	require.NoError(t, f.conn.Create(&rec).Error)
	return rec.ID
}

func (f *fixture) seedShippingLog(t *testing.T, rec ingestdomain.ShippingLog) int64 {
	t.Helper()
	rec.CreatedAt = time.Now().UTC()
	require.NoError(t, f.conn.Create(&rec).Error)
	return rec.ID
}

func boolPtr(v bool) *bool { return &v }

func TestProcessProductionLogs_AcceptsValidRecord(t *testing.T) {
	f := newFixture(t)
	lot := f.seedLot(t, "lot-100")
	recID := f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw:     "LOT-100",
		LineName:     "Line A",
		RunDate:      "2026-02-04",
		PrimaryIssue: "Scratch",
		LineIssue:    boolPtr(true),
	})

	res, err := f.svc.ProcessProductionLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 1, Flagged: 0}, res)

	var event ingestdomain.IssueEvent
	require.NoError(t, f.conn.First(&event).Error)
	assert.Equal(t, dimensiondomain.SourceProduction, event.EventSource)
	assert.Equal(t, lot.ID, event.LotID)
	assert.Equal(t, 1, event.QuantityImpacted)
	assert.Equal(t, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), event.WeekStartDate.UTC())
	require.NotNil(t, event.ProductionLogID)
	assert.Equal(t, recID, *event.ProductionLogID)
	assert.Nil(t, event.ShippingLogID)

	// The resolved lot key is backfilled onto the raw row.
	var raw ingestdomain.ProductionLog
	require.NoError(t, f.conn.First(&raw, recID).Error)
	require.NotNil(t, raw.LotID)
	assert.Equal(t, lot.ID, *raw.LotID)
}

func TestProcessProductionLogs_MissingLineIssueDefaultsToOne(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-101")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw:     "LOT 101",
		LineName:     "Line A",
		RunDate:      "2026-02-05",
		PrimaryIssue: "Dent",
	})

	_, err := f.svc.ProcessProductionLogs(context.Background(), 0)
	require.NoError(t, err)

	var event ingestdomain.IssueEvent
	require.NoError(t, f.conn.First(&event).Error)
	assert.Equal(t, 1, event.QuantityImpacted)
}

func TestProcessProductionLogs_ZeroQuantityStillProjected(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-102")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw:     "LOT-102",
		LineName:     "Line A",
		RunDate:      "2026-02-05",
		PrimaryIssue: "Scratch",
		LineIssue:    boolPtr(false),
	})

	res, err := f.svc.ProcessProductionLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 1, Flagged: 0}, res)

	var event ingestdomain.IssueEvent
	require.NoError(t, f.conn.First(&event).Error)
	assert.Equal(t, 0, event.QuantityImpacted)
}

func TestProcessProductionLogs_ConflictingLineClaim(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-200")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-200", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "Scratch",
	})
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-200", LineName: "Line B", RunDate: "2026-02-03", PrimaryIssue: "Dent",
	})

	res, err := f.svc.ProcessProductionLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 2, Flagged: 1}, res)

	var flags []ingestdomain.DataQualityFlag
	require.NoError(t, f.conn.Find(&flags).Error)
	require.Len(t, flags, 1)
	assert.Equal(t, ingestdomain.FlagConflict, flags[0].FlagType)

	// Ledger still points at the first writer.
	var assignments []lotdomain.LotLineAssignment
	require.NoError(t, f.conn.Find(&assignments).Error)
	require.Len(t, assignments, 1)

	var lineA dimensiondomain.ProductionLine
	require.NoError(t, f.conn.Where("name = ?", "Line A").First(&lineA).Error)
	assert.Equal(t, lineA.ID, assignments[0].ProductionLineID)

	var events int64
	require.NoError(t, f.conn.Model(&ingestdomain.IssueEvent{}).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestProcessProductionLogs_UnmatchedLot(t *testing.T) {
	f := newFixture(t)
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-999", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "Scratch",
	})

	res, err := f.svc.ProcessProductionLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 1, Flagged: 1}, res)

	var flag ingestdomain.DataQualityFlag
	require.NoError(t, f.conn.First(&flag).Error)
	assert.Equal(t, ingestdomain.FlagUnmatchedLotID, flag.FlagType)
	assert.Equal(t, "LOT-999", flag.LotIDRaw)
	assert.Equal(t, "lot-999", flag.LotIDNorm)
}

func TestProcessProductionLogs_BlankDefectLabel(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-300")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-300", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "   ",
	})

	res, err := f.svc.ProcessProductionLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 1, Flagged: 1}, res)

	var flag ingestdomain.DataQualityFlag
	require.NoError(t, f.conn.First(&flag).Error)
	assert.Equal(t, ingestdomain.FlagIncompleteData, flag.FlagType)
	assert.Contains(t, string(flag.MissingFields), "primary_issue")

	var events int64
	require.NoError(t, f.conn.Model(&ingestdomain.IssueEvent{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestProcessProductionLogs_InvalidRunDate(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-301")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-301", LineName: "Line A", RunDate: "02/03/2026", PrimaryIssue: "Scratch",
	})

	res, err := f.svc.ProcessProductionLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 1, Flagged: 1}, res)

	var flag ingestdomain.DataQualityFlag
	require.NoError(t, f.conn.First(&flag).Error)
	assert.Equal(t, ingestdomain.FlagIncompleteData, flag.FlagType)
	assert.Nil(t, flag.WeekStartDate)
}

func TestProcessShippingLogs_UnassignedLotIsIncompleteData(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-400")
	f.seedShippingLog(t, ingestdomain.ShippingLog{
		LotIDRaw: "LOT-400", ShipDate: "2026-02-06", HoldReason: "Damaged carton",
	})

	res, err := f.svc.ProcessShippingLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 1, Flagged: 1}, res)

	// The lot itself resolves; the missing ledger entry is the failure.
	var flag ingestdomain.DataQualityFlag
	require.NoError(t, f.conn.First(&flag).Error)
	assert.Equal(t, ingestdomain.FlagIncompleteData, flag.FlagType)
	assert.Equal(t, ingestdomain.SourceKindShippingLog, flag.SourceKind)
}

func TestProcessAll_ShippingInfersLineFromProductionPass(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-500")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-500", LineName: "Line C", RunDate: "2026-02-03", PrimaryIssue: "Scratch",
	})
	f.seedShippingLog(t, ingestdomain.ShippingLog{
		LotIDRaw: "lot_500", ShipDate: "2026-02-06", HoldReason: "Customer hold",
	})

	run, err := f.svc.ProcessAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 1, Flagged: 0}, run.Production)
	assert.Equal(t, ingestdomain.Result{Processed: 1, Flagged: 0}, run.Shipping)

	var lineC dimensiondomain.ProductionLine
	require.NoError(t, f.conn.Where("name = ?", "Line C").First(&lineC).Error)

	var shipped ingestdomain.IssueEvent
	require.NoError(t, f.conn.Where("event_source = ?", dimensiondomain.SourceShipping).First(&shipped).Error)
	assert.Equal(t, lineC.ID, shipped.ProductionLineID)
	assert.Equal(t, 1, shipped.QuantityImpacted)
}

func TestProcessAll_IdempotentReprocessing(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-600")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-600", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "Scratch",
	})
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "???", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "Dent",
	})
	f.seedShippingLog(t, ingestdomain.ShippingLog{
		LotIDRaw: "LOT-600", ShipDate: "2026-02-06", HoldReason: "Hold",
	})

	first, err := f.svc.ProcessAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Production.Processed)
	assert.Equal(t, 1, first.Shipping.Processed)

	// Every raw row already has an outcome; the second run selects nothing.
	second, err := f.svc.ProcessAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.RunResult{}, second)

	var events, flags int64
	require.NoError(t, f.conn.Model(&ingestdomain.IssueEvent{}).Count(&events).Error)
	require.NoError(t, f.conn.Model(&ingestdomain.DataQualityFlag{}).Count(&flags).Error)
	assert.EqualValues(t, 2, events)
	assert.EqualValues(t, 1, flags)
}

func TestProcessProductionLogs_BatchSizeBoundsOnePass(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-700")
	for i := 0; i < 3; i++ {
		f.seedProductionLog(t, ingestdomain.ProductionLog{
			LotIDRaw: "LOT-700", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "Scratch",
		})
	}

	res, err := f.svc.ProcessProductionLogs(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)

	res, err = f.svc.ProcessProductionLogs(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestProcessAll_ExactlyOneOutcomePerRecord(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-800")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-800", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "Scratch",
	})
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-800", LineName: "Line B", RunDate: "2026-02-04", PrimaryIssue: "Dent",
	})
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "NOPE", LineName: "Line A", RunDate: "2026-02-04", PrimaryIssue: "Dent",
	})
	f.seedShippingLog(t, ingestdomain.ShippingLog{
		LotIDRaw: "LOT-800", ShipDate: "2026-02-06", HoldReason: "Hold",
	})
	f.seedShippingLog(t, ingestdomain.ShippingLog{
		LotIDRaw: "LOT-800", ShipDate: "", HoldReason: "Hold",
	})

	_, err := f.svc.ProcessAll(context.Background(), 0)
	require.NoError(t, err)

	var prodLogs []ingestdomain.ProductionLog
	require.NoError(t, f.conn.Find(&prodLogs).Error)
	for _, rec := range prodLogs {
		var events, flags int64
		require.NoError(t, f.conn.Model(&ingestdomain.IssueEvent{}).Where("production_log_id = ?", rec.ID).Count(&events).Error)
		require.NoError(t, f.conn.Model(&ingestdomain.DataQualityFlag{}).Where("production_log_id = ?", rec.ID).Count(&flags).Error)
		assert.EqualValues(t, 1, events+flags, "production log %d", rec.ID)
	}

	var shipLogs []ingestdomain.ShippingLog
	require.NoError(t, f.conn.Find(&shipLogs).Error)
	for _, rec := range shipLogs {
		var events, flags int64
		require.NoError(t, f.conn.Model(&ingestdomain.IssueEvent{}).Where("shipping_log_id = ?", rec.ID).Count(&events).Error)
		require.NoError(t, f.conn.Model(&ingestdomain.DataQualityFlag{}).Where("shipping_log_id = ?", rec.ID).Count(&flags).Error)
		assert.EqualValues(t, 1, events+flags, "shipping log %d", rec.ID)
	}
}

func TestProcessProductionLogs_StorageFailureRollsBackWholeBatch(t *testing.T) {
	f := newFixture(t)
	f.seedLot(t, "lot-900")
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "???", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "Scratch",
	})
	f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-900", LineName: "Line A", RunDate: "2026-02-03", PrimaryIssue: "Dent",
	})
	lastID := f.seedProductionLog(t, ingestdomain.ProductionLog{
		LotIDRaw: "LOT-900", LineName: "Line A", RunDate: "2026-02-04", PrimaryIssue: "Dent",
	})

	// Fail only the last record's event insert, after the first two
	// records' flag and event have already been written in the same
	// transaction.
	errStorage := errors.New("storage offline")
	require.NoError(t, f.conn.Callback().Create().Before("gorm:create").Register("fail_last_event", func(db *gorm.DB) {
		event, ok := db.Statement.Dest.(*ingestdomain.IssueEvent)
		if !ok {
			return
		}
		if event.ProductionLogID != nil && *event.ProductionLogID == lastID {
			db.AddError(errStorage)
		}
	}))

	res, err := f.svc.ProcessProductionLogs(context.Background(), 0)
	require.ErrorIs(t, err, errStorage)
	assert.Equal(t, ingestdomain.Result{}, res)

	var events, flags int64
	require.NoError(t, f.conn.Model(&ingestdomain.IssueEvent{}).Count(&events).Error)
	require.NoError(t, f.conn.Model(&ingestdomain.DataQualityFlag{}).Count(&flags).Error)
	assert.EqualValues(t, 0, events, "batch must commit nothing after a mid-batch failure")
	assert.EqualValues(t, 0, flags, "batch must commit nothing after a mid-batch failure")

	// With storage healthy again, every record is still unprocessed and
	// the whole batch goes through.
	require.NoError(t, f.conn.Callback().Create().Remove("fail_last_event"))

	res, err = f.svc.ProcessProductionLogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, ingestdomain.Result{Processed: 3, Flagged: 1}, res)

	require.NoError(t, f.conn.Model(&ingestdomain.IssueEvent{}).Count(&events).Error)
	require.NoError(t, f.conn.Model(&ingestdomain.DataQualityFlag{}).Count(&flags).Error)
	assert.EqualValues(t, 2, events)
	assert.EqualValues(t, 1, flags)
}

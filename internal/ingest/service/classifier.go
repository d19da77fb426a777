package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lotsight/lotsight/internal/calendar"
	dimensiondomain "github.com/lotsight/lotsight/internal/dimension/domain"
	ingestdomain "github.com/lotsight/lotsight/internal/ingest/domain"
	lotdomain "github.com/lotsight/lotsight/internal/lot/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// flagDecision is the terminal outcome of a failed classifier step.
type flagDecision struct {
	flagType ingestdomain.FlagType
	reason   string
	missing  []string
}

func incompleteData(reason string, missing ...string) *flagDecision {
	return &flagDecision{flagType: ingestdomain.FlagIncompleteData, reason: reason, missing: missing}
}

// classifierStep is one named predicate in the fixed evaluation order.
// A nil decision means continue; the first non-nil decision is terminal.
type classifierStep struct {
	name string
	run  func(ctx context.Context) (*flagDecision, error)
}

func runSteps(ctx context.Context, steps []classifierStep) (*flagDecision, error) {
	for _, step := range steps {
		decision, err := step.run(ctx)
		if err != nil {
			return nil, fmt.Errorf("classifier step %s: %w", step.name, err)
		}
		if decision != nil {
			return decision, nil
		}
	}
	return nil, nil
}

// -- Production records --

type productionEval struct {
	svc *Service
	tx  *gorm.DB
	rec *ingestdomain.ProductionLog

	lotSvc lotdomain.Service
	dimSvc dimensiondomain.Service

	lot       *lotdomain.Lot
	lotNorm   string
	line      *dimensiondomain.ProductionLine
	issueType *dimensiondomain.IssueType
	quantity  int
	eventDate time.Time
}

func (s *Service) newProductionEval(tx *gorm.DB, rec *ingestdomain.ProductionLog) *productionEval {
	return &productionEval{
		svc:    s,
		tx:     tx,
		rec:    rec,
		lotSvc: s.lotSvc.WithTx(tx),
		dimSvc: s.dimSvc.WithTx(tx),
	}
}

func (e *productionEval) classify(ctx context.Context) (*flagDecision, error) {
	return runSteps(ctx, []classifierStep{
		{"required_fields", e.checkRequiredFields},
		{"resolve_lot", e.resolveLot},
		{"defect_label", e.checkDefectLabel},
		{"issue_type", e.ensureIssueType},
		{"line_assignment", e.checkLineAssignment},
		{"quantity", e.computeQuantity},
		{"run_date", e.parseRunDate},
	})
}

func (e *productionEval) checkRequiredFields(ctx context.Context) (*flagDecision, error) {
	var missing []string
	if strings.TrimSpace(e.rec.RunDate) == "" {
		missing = append(missing, "run_date")
	}
	if strings.TrimSpace(e.rec.LineName) == "" {
		missing = append(missing, "line")
	}
	if len(missing) > 0 {
		return incompleteData("missing required fields: "+strings.Join(missing, ", "), missing...), nil
	}
	return nil, nil
}

func (e *productionEval) resolveLot(ctx context.Context) (*flagDecision, error) {
	resolution, err := e.lotSvc.Resolve(ctx, e.rec.LotIDRaw, derefID(e.rec.LotID))
	if err != nil {
		return nil, err
	}
	e.lotNorm = resolution.NormalizedID
	if resolution.Outcome == lotdomain.OutcomeUnmatched {
		return &flagDecision{
			flagType: ingestdomain.FlagUnmatchedLotID,
			reason:   fmt.Sprintf("lot identifier %q did not match the lot master", e.rec.LotIDRaw),
		}, nil
	}
	e.lot = resolution.Lot
	if resolution.Outcome == lotdomain.OutcomeResolved {
		if err := e.svc.backfillProductionLot(ctx, e.tx, e.rec, resolution.Lot.ID); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (e *productionEval) checkDefectLabel(ctx context.Context) (*flagDecision, error) {
	if strings.TrimSpace(e.rec.PrimaryIssue) == "" {
		return incompleteData("missing required fields: primary_issue", "primary_issue"), nil
	}
	return nil, nil
}

func (e *productionEval) ensureIssueType(ctx context.Context) (*flagDecision, error) {
	issueType, err := e.dimSvc.EnsureIssueType(ctx, dimensiondomain.SourceProduction, e.rec.PrimaryIssue)
	if err != nil {
		if errors.Is(err, dimensiondomain.ErrInvalidLabel) {
			return incompleteData("defect label carries no usable text", "primary_issue"), nil
		}
		return nil, err
	}
	e.issueType = issueType
	return nil, nil
}

func (e *productionEval) checkLineAssignment(ctx context.Context) (*flagDecision, error) {
	line, err := e.dimSvc.EnsureLine(ctx, e.rec.LineName)
	if err != nil {
		if errors.Is(err, dimensiondomain.ErrInvalidLabel) {
			return incompleteData("production line label carries no usable text", "line"), nil
		}
		return nil, err
	}
	e.line = line

	result, err := e.lotSvc.CheckAndAssign(ctx, e.lot.ID, line.ID)
	if err != nil {
		return nil, err
	}
	if result.Conflict {
		return &flagDecision{
			flagType: ingestdomain.FlagConflict,
			reason:   fmt.Sprintf("lot %q is already assigned to a different production line", e.rec.LotIDRaw),
		}, nil
	}
	return nil, nil
}

func (e *productionEval) computeQuantity(ctx context.Context) (*flagDecision, error) {
	switch {
	case e.rec.LineIssue == nil:
		e.quantity = e.svc.cfg.DefaultProductionIssue
	case *e.rec.LineIssue:
		e.quantity = 1
	default:
		e.quantity = 0
	}
	return nil, nil
}

func (e *productionEval) parseRunDate(ctx context.Context) (*flagDecision, error) {
	parsed, err := calendar.ParseDate(strings.TrimSpace(e.rec.RunDate))
	if err != nil {
		return incompleteData(fmt.Sprintf("run date %q is not a valid calendar date", e.rec.RunDate)), nil
	}
	e.eventDate = parsed
	return nil, nil
}

func (e *productionEval) event(id snowflake.ID) *ingestdomain.IssueEvent {
	recID := e.rec.ID
	return &ingestdomain.IssueEvent{
		ID:               id,
		EventSource:      dimensiondomain.SourceProduction,
		EventDate:        e.eventDate,
		WeekStartDate:    calendar.WeekStart(e.eventDate),
		ProductionLineID: e.line.ID,
		LotID:            e.lot.ID,
		IssueTypeID:      e.issueType.ID,
		QuantityImpacted: e.quantity,
		ProductionLogID:  &recID,
		CreatedAt:        time.Now().UTC(),
	}
}

func (e *productionEval) flag(id snowflake.ID, decision *flagDecision) *ingestdomain.DataQualityFlag {
	recID := e.rec.ID
	return &ingestdomain.DataQualityFlag{
		ID:              id,
		FlagType:        decision.flagType,
		SourceKind:      ingestdomain.SourceKindProductionLog,
		Reason:          decision.reason,
		MissingFields:   datatypes.JSON(missingFieldsJSON(decision.missing)),
		LotIDRaw:        e.rec.LotIDRaw,
		LotIDNorm:       e.lotNorm,
		WeekStartDate:   recordWeekStart(e.rec.RunDate),
		ProductionLogID: &recID,
		CreatedAt:       time.Now().UTC(),
	}
}

// -- Shipping records --

type shippingEval struct {
	svc *Service
	tx  *gorm.DB
	rec *ingestdomain.ShippingLog

	lotSvc lotdomain.Service
	dimSvc dimensiondomain.Service

	lot       *lotdomain.Lot
	lotNorm   string
	lineID    snowflake.ID
	issueType *dimensiondomain.IssueType
	eventDate time.Time
}

func (s *Service) newShippingEval(tx *gorm.DB, rec *ingestdomain.ShippingLog) *shippingEval {
	return &shippingEval{
		svc:    s,
		tx:     tx,
		rec:    rec,
		lotSvc: s.lotSvc.WithTx(tx),
		dimSvc: s.dimSvc.WithTx(tx),
	}
}

func (e *shippingEval) classify(ctx context.Context) (*flagDecision, error) {
	return runSteps(ctx, []classifierStep{
		{"required_fields", e.checkRequiredFields},
		{"resolve_lot", e.resolveLot},
		{"infer_line", e.inferLine},
		{"hold_reason", e.checkHoldReason},
		{"issue_type", e.ensureIssueType},
		{"ship_date", e.parseShipDate},
	})
}

func (e *shippingEval) checkRequiredFields(ctx context.Context) (*flagDecision, error) {
	if strings.TrimSpace(e.rec.ShipDate) == "" {
		return incompleteData("missing required fields: ship_date", "ship_date"), nil
	}
	return nil, nil
}

func (e *shippingEval) resolveLot(ctx context.Context) (*flagDecision, error) {
	resolution, err := e.lotSvc.Resolve(ctx, e.rec.LotIDRaw, derefID(e.rec.LotID))
	if err != nil {
		return nil, err
	}
	e.lotNorm = resolution.NormalizedID
	if resolution.Outcome == lotdomain.OutcomeUnmatched {
		return &flagDecision{
			flagType: ingestdomain.FlagUnmatchedLotID,
			reason:   fmt.Sprintf("lot identifier %q did not match the lot master", e.rec.LotIDRaw),
		}, nil
	}
	e.lot = resolution.Lot
	if resolution.Outcome == lotdomain.OutcomeResolved {
		if err := e.svc.backfillShippingLot(ctx, e.tx, e.rec, resolution.Lot.ID); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// Shipping records never claim a line; the lot's ledger entry is the
// only way to attribute one. A lot no production pass has claimed yet is
// incomplete data, not a conflict.
func (e *shippingEval) inferLine(ctx context.Context) (*flagDecision, error) {
	assignment, err := e.lotSvc.GetAssignment(ctx, e.lot.ID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return incompleteData(fmt.Sprintf("no production line on record for lot %q", e.rec.LotIDRaw)), nil
	}
	e.lineID = assignment.ProductionLineID
	return nil, nil
}

func (e *shippingEval) checkHoldReason(ctx context.Context) (*flagDecision, error) {
	if strings.TrimSpace(e.rec.HoldReason) == "" {
		return incompleteData("missing required fields: hold_reason", "hold_reason"), nil
	}
	return nil, nil
}

func (e *shippingEval) ensureIssueType(ctx context.Context) (*flagDecision, error) {
	issueType, err := e.dimSvc.EnsureIssueType(ctx, dimensiondomain.SourceShipping, e.rec.HoldReason)
	if err != nil {
		if errors.Is(err, dimensiondomain.ErrInvalidLabel) {
			return incompleteData("hold reason carries no usable text", "hold_reason"), nil
		}
		return nil, err
	}
	e.issueType = issueType
	return nil, nil
}

func (e *shippingEval) parseShipDate(ctx context.Context) (*flagDecision, error) {
	parsed, err := calendar.ParseDate(strings.TrimSpace(e.rec.ShipDate))
	if err != nil {
		return incompleteData(fmt.Sprintf("ship date %q is not a valid calendar date", e.rec.ShipDate)), nil
	}
	e.eventDate = parsed
	return nil, nil
}

func (e *shippingEval) event(id snowflake.ID) *ingestdomain.IssueEvent {
	recID := e.rec.ID
	return &ingestdomain.IssueEvent{
		ID:               id,
		EventSource:      dimensiondomain.SourceShipping,
		EventDate:        e.eventDate,
		WeekStartDate:    calendar.WeekStart(e.eventDate),
		ProductionLineID: e.lineID,
		LotID:            e.lot.ID,
		IssueTypeID:      e.issueType.ID,
		QuantityImpacted: e.svc.cfg.ShippingIssueQuantity,
		ShippingLogID:    &recID,
		CreatedAt:        time.Now().UTC(),
	}
}

func (e *shippingEval) flag(id snowflake.ID, decision *flagDecision) *ingestdomain.DataQualityFlag {
	recID := e.rec.ID
	return &ingestdomain.DataQualityFlag{
		ID:            id,
		FlagType:      decision.flagType,
		SourceKind:    ingestdomain.SourceKindShippingLog,
		Reason:        decision.reason,
		MissingFields: datatypes.JSON(missingFieldsJSON(decision.missing)),
		LotIDRaw:      e.rec.LotIDRaw,
		LotIDNorm:     e.lotNorm,
		WeekStartDate: recordWeekStart(e.rec.ShipDate),
		ShippingLogID: &recID,
		CreatedAt:     time.Now().UTC(),
	}
}

func derefID(id *snowflake.ID) snowflake.ID {
	if id == nil {
		return 0
	}
	return *id
}

// Package domain defines the reporting read path over accepted issue
// events and the data-quality flag log. It is read-only and independent
// of the ingestion write path.
package domain

import (
	"context"
	"errors"
	"time"

	ingestdomain "github.com/lotsight/lotsight/internal/ingest/domain"
)

// WeeklySummaryRow is one (week, line, defect) cell of the weekly
// report. Only events with quantity > 0 contribute.
type WeeklySummaryRow struct {
	WeekStartDate  time.Time `json:"week_start_date"`
	ProductionLine string    `json:"production_line"`
	DefectType     string    `json:"defect_type"`
	TotalDefects   int       `json:"total_defects"`
}

// DrillDownRequest pins one summary cell; all fields are required and
// matched exactly.
type DrillDownRequest struct {
	WeekStartDate  time.Time
	ProductionLine string
	DefectType     string
}

// DrillDownRow is one underlying event with its source-record context.
// Whichever source side is unpopulated scans as zero values.
type DrillDownRow struct {
	EventDate       time.Time `json:"event_date"`
	LotID           string    `json:"lot_id"`
	ProductionLine  string    `json:"production_line"`
	DefectType      string    `json:"defect_type"`
	Quantity        int       `json:"quantity"`
	EventSource     string    `json:"event_source"`
	Shift           string    `json:"shift"`
	DowntimeMinutes int       `json:"downtime_minutes"`
	ShipStatus      string    `json:"ship_status"`
	Carrier         string    `json:"carrier"`
	Notes           string    `json:"notes"`
}

// FlagCountRow counts flags of one type in one week.
type FlagCountRow struct {
	WeekStartDate time.Time             `json:"week_start_date"`
	FlagType      ingestdomain.FlagType `json:"flag_type"`
	FlaggedCount  int                   `json:"flagged_count"`
}

type Service interface {
	// WeeklySummary aggregates accepted events over the inclusive week
	// range, ordered by week, then line, then biggest problem first.
	WeeklySummary(ctx context.Context, start, end time.Time) ([]WeeklySummaryRow, error)

	// DrillDown lists every event behind one summary cell, including
	// zero-quantity events, ordered by event date then lot identifier.
	DrillDown(ctx context.Context, req DrillDownRequest) ([]DrillDownRow, error)

	// FlagCounts groups flags by week and flag type over the inclusive
	// range. Flags whose record carried no parseable date have no week
	// and fall outside every range.
	FlagCounts(ctx context.Context, start, end time.Time) ([]FlagCountRow, error)
}

var (
	ErrInvalidRange  = errors.New("invalid_range")
	ErrMissingFilter = errors.New("missing_filter")
)

// Package domain defines the write side for raw logs and the lot
// master. Intake stores what it is given verbatim; classification is the
// pipeline's job, not intake's.
package domain

import (
	"context"
	"errors"

	ingestdomain "github.com/lotsight/lotsight/internal/ingest/domain"
	lotdomain "github.com/lotsight/lotsight/internal/lot/domain"
)

type AddProductionLogRequest struct {
	LotID           string `json:"lot_id"`
	Line            string `json:"line"`
	RunDate         string `json:"run_date"`
	Shift           string `json:"shift"`
	PrimaryIssue    string `json:"primary_issue"`
	LineIssue       *bool  `json:"line_issue"`
	DowntimeMinutes int    `json:"downtime_minutes"`
	Notes           string `json:"notes"`
}

type AddShippingLogRequest struct {
	LotID      string `json:"lot_id"`
	ShipDate   string `json:"ship_date"`
	ShipStatus string `json:"ship_status"`
	HoldReason string `json:"hold_reason"`
	Carrier    string `json:"carrier"`
	Notes      string `json:"notes"`
}

type UpsertLotRequest struct {
	LotID   string  `json:"lot_id"`
	PartRef *string `json:"part_ref"`
}

type Service interface {
	AddProductionLog(ctx context.Context, req AddProductionLogRequest) (*ingestdomain.ProductionLog, error)
	AddShippingLog(ctx context.Context, req AddShippingLogRequest) (*ingestdomain.ShippingLog, error)

	// UpsertLot adds a lot master row keyed by normalized identifier.
	// Re-loading the same master list is a no-op.
	UpsertLot(ctx context.Context, req UpsertLotRequest) (*lotdomain.Lot, error)
}

var ErrInvalidLotID = errors.New("invalid_lot_id")

// Package domain contains the raw log rows the pipeline consumes and
// the canonical facts and data-quality flags it produces.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	dimensiondomain "github.com/lotsight/lotsight/internal/dimension/domain"
	"gorm.io/datatypes"
)

// ProductionLog is a raw production-line run record. Dates stay as the
// free text they arrived in; the classifier decides whether they parse.
// LotID is backfilled once the raw identifier has been resolved.
type ProductionLog struct {
	ID              int64         `gorm:"primaryKey;autoIncrement"`
	LotIDRaw        string        `gorm:"type:text"`
	LotID           *snowflake.ID `gorm:"index"`
	LineName        string        `gorm:"type:text"`
	RunDate         string        `gorm:"type:text"`
	Shift           string        `gorm:"type:text"`
	PrimaryIssue    string        `gorm:"type:text"`
	LineIssue       *bool
	DowntimeMinutes int       `gorm:"not null;default:0"`
	Notes           string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (ProductionLog) TableName() string { return "production_logs" }

// ShippingLog is a raw shipping record.
type ShippingLog struct {
	ID         int64         `gorm:"primaryKey;autoIncrement"`
	LotIDRaw   string        `gorm:"type:text"`
	LotID      *snowflake.ID `gorm:"index"`
	ShipDate   string        `gorm:"type:text"`
	ShipStatus string        `gorm:"type:text"`
	HoldReason string        `gorm:"type:text"`
	Carrier    string        `gorm:"type:text"`
	Notes      string        `gorm:"type:text"`
	CreatedAt  time.Time     `gorm:"not null"`
}

// TableName sets the database table name.
func (ShippingLog) TableName() string { return "shipping_logs" }

// IssueEvent is the canonical, report-ready fact projected from one
// accepted raw record. Exactly one of ProductionLogID/ShippingLogID is
// set; the unique indexes are what make reprocessing safe.
type IssueEvent struct {
	ID               snowflake.ID           `gorm:"primaryKey"`
	EventSource      dimensiondomain.Source `gorm:"type:text;not null"`
	EventDate        time.Time              `gorm:"not null;index"`
	WeekStartDate    time.Time              `gorm:"not null;index"`
	ProductionLineID snowflake.ID           `gorm:"not null;index"`
	LotID            snowflake.ID           `gorm:"not null;index"`
	IssueTypeID      snowflake.ID           `gorm:"not null;index"`
	QuantityImpacted int                    `gorm:"not null"`
	ProductionLogID  *int64                 `gorm:"uniqueIndex"`
	ShippingLogID    *int64                 `gorm:"uniqueIndex"`
	CreatedAt        time.Time              `gorm:"not null"`
}

// TableName sets the database table name.
func (IssueEvent) TableName() string { return "issue_events" }

// FlagType names why a raw record was excluded from reporting.
type FlagType string

const (
	FlagUnmatchedLotID FlagType = "UNMATCHED_LOT_ID"
	FlagConflict       FlagType = "CONFLICT"
	FlagIncompleteData FlagType = "INCOMPLETE_DATA"
)

// SourceKind names which raw table a flag points into.
type SourceKind string

const (
	SourceKindProductionLog SourceKind = "PRODUCTION_LOG"
	SourceKindShippingLog   SourceKind = "SHIPPING_LOG"
)

// DataQualityFlag records the exclusion of one raw record. WeekStartDate
// is derived from the record's own date when that date parses, so flag
// counts can be bucketed without re-reading raw text; it is nil when the
// record carried no usable date.
type DataQualityFlag struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	FlagType        FlagType       `gorm:"type:text;not null;index"`
	SourceKind      SourceKind     `gorm:"type:text;not null"`
	Reason          string         `gorm:"type:text;not null"`
	MissingFields   datatypes.JSON `gorm:"type:json"`
	LotIDRaw        string         `gorm:"type:text"`
	LotIDNorm       string         `gorm:"type:text"`
	WeekStartDate   *time.Time     `gorm:"index"`
	ProductionLogID *int64         `gorm:"uniqueIndex"`
	ShippingLogID   *int64         `gorm:"uniqueIndex"`
	CreatedAt       time.Time      `gorm:"not null"`
}

// TableName sets the database table name.
func (DataQualityFlag) TableName() string { return "data_quality_flags" }

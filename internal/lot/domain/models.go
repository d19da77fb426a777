// Package domain contains the lot master and the line-assignment ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Lot is a row of the pre-populated lot master, keyed by normalized lot
// identifier. The pipeline only resolves against this table; it never
// invents lots from unmatched raw identifiers.
type Lot struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	NormalizedLotID string       `gorm:"type:text;not null;uniqueIndex"`
	PartRef         *string      `gorm:"type:text"`
	CreatedAt       time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Lot) TableName() string { return "lots" }

// LotLineAssignment records the single authoritative production line for
// a lot. First writer wins; the row is never updated or deleted.
type LotLineAssignment struct {
	LotID            snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	ProductionLineID snowflake.ID `gorm:"not null"`
	CreatedAt        time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (LotLineAssignment) TableName() string { return "lot_line_assignments" }

// Package domain contains the reference entities the pipeline
// materializes on first sight: production lines and issue types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Source tells which log stream an issue type belongs to. The same
// normalized label is a distinct issue type per source.
type Source string

const (
	SourceProduction Source = "PRODUCTION"
	SourceShipping   Source = "SHIPPING"
)

// ProductionLine is keyed by its normalized name. Name keeps the
// first-seen spelling and is never overwritten by later variants.
type ProductionLine struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	Name           string       `gorm:"type:text;not null"`
	NormalizedName string       `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt      time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (ProductionLine) TableName() string { return "production_lines" }

// IssueType is keyed by (source, normalized label). Label keeps the
// first-seen spelling.
type IssueType struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Source          Source       `gorm:"type:text;not null;uniqueIndex:idx_issue_types_source_label"`
	Label           string       `gorm:"type:text;not null"`
	NormalizedLabel string       `gorm:"type:text;not null;uniqueIndex:idx_issue_types_source_label"`
	CreatedAt       time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (IssueType) TableName() string { return "issue_types" }

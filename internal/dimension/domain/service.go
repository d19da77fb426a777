package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service interface {
	// EnsureLine resolves label to its production line, creating the row
	// the first time the normalized name is seen.
	EnsureLine(ctx context.Context, label string) (*ProductionLine, error)

	// EnsureIssueType does the same for issue types, scoped by source.
	EnsureIssueType(ctx context.Context, source Source, label string) (*IssueType, error)

	// WithTx returns a copy bound to the given transaction.
	WithTx(tx *gorm.DB) Service
}

var ErrInvalidLabel = errors.New("invalid_label")

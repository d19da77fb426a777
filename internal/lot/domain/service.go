package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Outcome tags how a lot resolution concluded.
type Outcome int

const (
	// OutcomeUnmatched means the raw identifier was blank, unnormalizable,
	// or absent from the lot master.
	OutcomeUnmatched Outcome = iota
	// OutcomeFastPath means the record already carried a resolved lot key.
	OutcomeFastPath
	// OutcomeResolved means the raw identifier was freshly matched; the
	// caller should backfill the key onto the raw record.
	OutcomeResolved
)

// Resolution is the result of resolving a raw lot identifier. Lot is nil
// exactly when Outcome is OutcomeUnmatched. NormalizedID carries whatever
// normalization produced, even on an unmatched outcome, for flag context.
type Resolution struct {
	Outcome      Outcome
	Lot          *Lot
	NormalizedID string
}

// AssignResult is the ledger's answer to a claim. Conflict is true when
// the lot already belongs to a different line; ExistingLineID then names
// that line.
type AssignResult struct {
	Conflict       bool
	ExistingLineID snowflake.ID
}

type Service interface {
	// Resolve maps a raw identifier (or an already-resolved key) to a lot
	// master row. It never creates lots.
	Resolve(ctx context.Context, rawLotID string, resolvedID snowflake.ID) (Resolution, error)

	// CheckAndAssign enforces first-writer-wins on the lot's line. A
	// repeat claim for the owning line is an idempotent success.
	CheckAndAssign(ctx context.Context, lotID, lineID snowflake.ID) (AssignResult, error)

	// GetAssignment returns the lot's ledger entry, or nil when the lot
	// has never been claimed.
	GetAssignment(ctx context.Context, lotID snowflake.ID) (*LotLineAssignment, error)

	// WithTx returns a copy bound to the given transaction.
	WithTx(tx *gorm.DB) Service
}

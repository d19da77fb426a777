package domain

import "context"

// Result accounts for one source pass. Processed counts every record
// that received an outcome; Flagged is the rejected subset.
type Result struct {
	Processed int `json:"processed"`
	Flagged   int `json:"flagged"`
}

// RunResult pairs the two independent source passes of one run.
type RunResult struct {
	Production Result `json:"production"`
	Shipping   Result `json:"shipping"`
}

type Service interface {
	// ProcessProductionLogs runs one atomic batch over unprocessed
	// production records. batchSize <= 0 selects the configured default.
	ProcessProductionLogs(ctx context.Context, batchSize int) (Result, error)

	// ProcessShippingLogs runs one atomic batch over unprocessed
	// shipping records.
	ProcessShippingLogs(ctx context.Context, batchSize int) (Result, error)

	// ProcessAll runs the production pass then the shipping pass, each in
	// its own transaction. A production failure does not stop the
	// shipping attempt.
	ProcessAll(ctx context.Context, batchSize int) (RunResult, error)
}

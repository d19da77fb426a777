package migration

import (
	dimensiondomain "github.com/lotsight/lotsight/internal/dimension/domain"
	ingestdomain "github.com/lotsight/lotsight/internal/ingest/domain"
	lotdomain "github.com/lotsight/lotsight/internal/lot/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module creates the schema on startup. The uniqueness constraints it
// lays down (normalized dimension keys, one ledger row per lot, one
// outcome per raw record) are what the pipeline's insert-if-absent
// semantics lean on.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(
			&dimensiondomain.ProductionLine{},
			&dimensiondomain.IssueType{},
			&lotdomain.Lot{},
			&lotdomain.LotLineAssignment{},
			&ingestdomain.ProductionLog{},
			&ingestdomain.ShippingLog{},
			&ingestdomain.IssueEvent{},
			&ingestdomain.DataQualityFlag{},
		)
	}),
)

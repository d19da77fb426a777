package service

import (
	"context"
	"strings"
	"time"

	reportdomain "github.com/lotsight/lotsight/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(p ServiceParam) reportdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("report.service"),
	}
}

func (s *Service) WeeklySummary(ctx context.Context, start, end time.Time) ([]reportdomain.WeeklySummaryRow, error) {
	if end.Before(start) {
		return nil, reportdomain.ErrInvalidRange
	}

	var rows []reportdomain.WeeklySummaryRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT e.week_start_date,
		       pl.name AS production_line,
		       it.label AS defect_type,
		       SUM(e.quantity_impacted) AS total_defects
		FROM issue_events e
		JOIN production_lines pl ON pl.id = e.production_line_id
		JOIN issue_types it ON it.id = e.issue_type_id
		WHERE e.quantity_impacted > 0
		  AND e.week_start_date BETWEEN ? AND ?
		GROUP BY e.week_start_date, pl.name, it.label
		ORDER BY e.week_start_date ASC, pl.name ASC, total_defects DESC`,
		start.UTC(), end.UTC(),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) DrillDown(ctx context.Context, req reportdomain.DrillDownRequest) ([]reportdomain.DrillDownRow, error) {
	if req.WeekStartDate.IsZero() ||
		strings.TrimSpace(req.ProductionLine) == "" ||
		strings.TrimSpace(req.DefectType) == "" {
		return nil, reportdomain.ErrMissingFilter
	}

	// Zero-quantity events stay visible here even though the summary
	// excludes them.
	var rows []reportdomain.DrillDownRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT e.event_date,
		       l.normalized_lot_id AS lot_id,
		       pl.name AS production_line,
		       it.label AS defect_type,
		       e.quantity_impacted AS quantity,
		       e.event_source,
		       COALESCE(p.shift, '') AS shift,
		       COALESCE(p.downtime_minutes, 0) AS downtime_minutes,
		       COALESCE(sh.ship_status, '') AS ship_status,
		       COALESCE(sh.carrier, '') AS carrier,
		       COALESCE(p.notes, sh.notes, '') AS notes
		FROM issue_events e
		JOIN lots l ON l.id = e.lot_id
		JOIN production_lines pl ON pl.id = e.production_line_id
		JOIN issue_types it ON it.id = e.issue_type_id
		LEFT JOIN production_logs p ON p.id = e.production_log_id
		LEFT JOIN shipping_logs sh ON sh.id = e.shipping_log_id
		WHERE e.week_start_date = ?
		  AND pl.name = ?
		  AND it.label = ?
		ORDER BY e.event_date ASC, l.normalized_lot_id ASC`,
		req.WeekStartDate.UTC(), req.ProductionLine, req.DefectType,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) FlagCounts(ctx context.Context, start, end time.Time) ([]reportdomain.FlagCountRow, error) {
	if end.Before(start) {
		return nil, reportdomain.ErrInvalidRange
	}

	var rows []reportdomain.FlagCountRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT f.week_start_date,
		       f.flag_type,
		       COUNT(*) AS flagged_count
		FROM data_quality_flags f
		WHERE f.week_start_date IS NOT NULL
		  AND f.week_start_date BETWEEN ? AND ?
		GROUP BY f.week_start_date, f.flag_type
		ORDER BY f.week_start_date ASC, f.flag_type ASC`,
		start.UTC(), end.UTC(),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lotsight/lotsight/internal/calendar"
	reportdomain "github.com/lotsight/lotsight/internal/report/domain"
)

type weeklySummaryRow struct {
	WeekStartDate  string `json:"week_start_date"`
	ProductionLine string `json:"production_line"`
	DefectType     string `json:"defect_type"`
	TotalDefects   int    `json:"total_defects"`
}

type drillDownRow struct {
	EventDate       string `json:"event_date"`
	LotID           string `json:"lot_id"`
	ProductionLine  string `json:"production_line"`
	DefectType      string `json:"defect_type"`
	Quantity        int    `json:"quantity"`
	EventSource     string `json:"event_source"`
	Shift           string `json:"shift,omitempty"`
	DowntimeMinutes int    `json:"downtime_minutes,omitempty"`
	ShipStatus      string `json:"ship_status,omitempty"`
	Carrier         string `json:"carrier,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type flagCountRow struct {
	WeekStartDate string `json:"week_start_date"`
	FlagType      string `json:"flag_type"`
	FlaggedCount  int    `json:"flagged_count"`
}

func (s *Server) WeeklySummary(c *gin.Context) {
	start, end, err := parseDateRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows, err := s.reportSvc.WeeklySummary(c.Request.Context(), start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]weeklySummaryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, weeklySummaryRow{
			WeekStartDate:  calendar.FormatDate(row.WeekStartDate),
			ProductionLine: row.ProductionLine,
			DefectType:     row.DefectType,
			TotalDefects:   row.TotalDefects,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) DrillDown(c *gin.Context) {
	weekRaw := strings.TrimSpace(c.Query("week_start"))
	line := strings.TrimSpace(c.Query("line"))
	defect := strings.TrimSpace(c.Query("defect"))

	if weekRaw == "" || line == "" || defect == "" {
		AbortWithError(c, newValidationError("week_start,line,defect", "missing_filter", "week_start, line and defect are required"))
		return
	}
	weekStart, err := calendar.ParseDate(weekRaw)
	if err != nil {
		AbortWithError(c, newValidationError("week_start", "invalid_date", "week_start must be YYYY-MM-DD"))
		return
	}

	rows, err := s.reportSvc.DrillDown(c.Request.Context(), reportdomain.DrillDownRequest{
		WeekStartDate:  weekStart,
		ProductionLine: line,
		DefectType:     defect,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]drillDownRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, drillDownRow{
			EventDate:       calendar.FormatDate(row.EventDate),
			LotID:           row.LotID,
			ProductionLine:  row.ProductionLine,
			DefectType:      row.DefectType,
			Quantity:        row.Quantity,
			EventSource:     row.EventSource,
			Shift:           row.Shift,
			DowntimeMinutes: row.DowntimeMinutes,
			ShipStatus:      row.ShipStatus,
			Carrier:         row.Carrier,
			Notes:           row.Notes,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) FlagCounts(c *gin.Context) {
	start, end, err := parseDateRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows, err := s.reportSvc.FlagCounts(c.Request.Context(), start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]flagCountRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, flagCountRow{
			WeekStartDate: calendar.FormatDate(row.WeekStartDate),
			FlagType:      string(row.FlagType),
			FlaggedCount:  row.FlaggedCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// parseDateRange validates the inclusive [start, end] query range before
// any storage access.
func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	start, err := calendar.ParseDate(strings.TrimSpace(c.Query("start")))
	if err != nil {
		return time.Time{}, time.Time{}, newValidationError("start", "invalid_date", "start must be YYYY-MM-DD")
	}
	end, err := calendar.ParseDate(strings.TrimSpace(c.Query("end")))
	if err != nil {
		return time.Time{}, time.Time{}, newValidationError("end", "invalid_date", "end must be YYYY-MM-DD")
	}
	return start, end, nil
}

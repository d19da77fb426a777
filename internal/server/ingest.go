package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// TriggerIngest kicks off one full pipeline run. A non-positive or
// non-numeric batch_size is ignored in favor of the configured default.
func (s *Server) TriggerIngest(c *gin.Context) {
	batchSize := parseOptionalInt(c.Query("batch_size"))

	run, err := s.ingestSvc.ProcessAll(c.Request.Context(), batchSize)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func parseOptionalInt(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}

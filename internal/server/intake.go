package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	intakedomain "github.com/lotsight/lotsight/internal/intake/domain"
)

func (s *Server) AddProductionLog(c *gin.Context) {
	var req intakedomain.AddProductionLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rec, err := s.intakeSvc.AddProductionLog(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": rec.ID}})
}

func (s *Server) AddShippingLog(c *gin.Context) {
	var req intakedomain.AddShippingLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rec, err := s.intakeSvc.AddShippingLog(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": rec.ID}})
}

func (s *Server) UpsertLot(c *gin.Context) {
	var req intakedomain.UpsertLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lot, err := s.intakeSvc.UpsertLot(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":                lot.ID.String(),
		"normalized_lot_id": lot.NormalizedLotID,
	}})
}

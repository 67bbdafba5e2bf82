package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/granite-grc/granite/internal/application/assessment"
)

// RiskHandler serves the scoring and compliance read models.
type RiskHandler struct {
	svc *assessment.Service
}

// NewRiskHandler constructs a RiskHandler.
func NewRiskHandler(svc *assessment.Service) *RiskHandler {
	return &RiskHandler{svc: svc}
}

// Register mounts the handler's routes on the given group.
func (h *RiskHandler) Register(g *gin.RouterGroup) {
	g.GET("/risks/:id/score", h.getScore)
	g.GET("/risks/:id/compliance", h.getCompliance)
}

// getScore handles GET /risks/:id/score.
func (h *RiskHandler) getScore(c *gin.Context) {
	dto, err := h.svc.ScoreRisk(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// getCompliance handles GET /risks/:id/compliance.
func (h *RiskHandler) getCompliance(c *gin.Context) {
	dto, err := h.svc.ComplianceForRisk(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

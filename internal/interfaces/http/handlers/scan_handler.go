package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/granite-grc/granite/internal/application/scans"
	"github.com/granite-grc/granite/pkg/errors"
	riskTypes "github.com/granite-grc/granite/pkg/types/risk"
)

// ScanHandler serves the on-demand similarity scan endpoints and the
// pre-save duplicate check.
type ScanHandler struct {
	coord *scans.Coordinator
}

// NewScanHandler constructs a ScanHandler.
func NewScanHandler(coord *scans.Coordinator) *ScanHandler {
	return &ScanHandler{coord: coord}
}

// Register mounts the handler's routes on the given group.
func (h *ScanHandler) Register(g *gin.RouterGroup) {
	g.POST("/risks/:id/similar", h.startScan)
	g.GET("/risks/:id/similar", h.scanBlocking)
	g.GET("/scans/:token", h.scanStatus)
	g.DELETE("/scans/:token", h.cancelScan)
	g.POST("/risks/check-similarity", h.checkSimilarity)
}

// startScan handles POST /risks/:id/similar: it accepts the scan and returns
// a token for polling.
func (h *ScanHandler) startScan(c *gin.Context) {
	token, err := h.coord.StartScan(c.Request.Context(), c.Param("id"), limitParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, riskTypes.StartScanResponse{ScanID: token})
}

// scanBlocking handles GET /risks/:id/similar: it runs a scan to completion
// and returns the ranked matches directly. Meant for clients that do not
// render progress.
func (h *ScanHandler) scanBlocking(c *gin.Context) {
	candidates, err := h.coord.ScanForRisk(c.Request.Context(), c.Param("id"), limitParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, riskTypes.SimilarRisksResponse{SimilarRisks: toSimilarRisks(candidates)})
}

// scanStatus handles GET /scans/:token.
func (h *ScanHandler) scanStatus(c *gin.Context) {
	st, err := h.coord.Status(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScanStatus(st))
}

// cancelScan handles DELETE /scans/:token. Cancelling an unknown or already
// finished scan is a no-op.
func (h *ScanHandler) cancelScan(c *gin.Context) {
	h.coord.Cancel(c.Param("token"))
	c.Status(http.StatusNoContent)
}

// checkSimilarity handles POST /risks/check-similarity, the pre-save
// duplicate hint. The response is always 200; an empty set means no hint.
func (h *ScanHandler) checkSimilarity(c *gin.Context) {
	var req riskTypes.CheckSimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("malformed check-similarity body").WithCause(err))
		return
	}

	matches := h.coord.CheckSimilarity(c.Request.Context(), req.Title, req.ThreatDescription, req.Description)
	c.JSON(http.StatusOK, riskTypes.SimilarRisksResponse{SimilarRisks: toSimilarRisks(matches)})
}

func limitParam(c *gin.Context) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0 // coordinator applies its configured default
}

// Package handlers implements the engine's HTTP endpoints.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/granite-grc/granite/internal/application/scans"
	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/pkg/errors"
	riskTypes "github.com/granite-grc/granite/pkg/types/risk"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an application error onto its HTTP status. Internal
// errors are masked; their detail belongs in the log, not the response.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)

	resp := ErrorResponse{Code: code.String(), Message: "internal server error"}
	if status < 500 {
		if appErr, ok := errors.AsAppError(err); ok {
			resp.Message = appErr.Message
			resp.Detail = appErr.Detail
		} else {
			resp.Message = err.Error()
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

// toSimilarRisks converts ranked candidates to their transport shape.
func toSimilarRisks(candidates []similarity.Candidate) []riskTypes.SimilarRiskDTO {
	out := make([]riskTypes.SimilarRiskDTO, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, riskTypes.SimilarRiskDTO{
			Risk:  riskTypes.RiskRefDTO{ID: cand.RiskID, Title: cand.Title},
			Score: cand.Score,
		})
	}
	return out
}

// toScanStatus converts a coordinator status snapshot to its transport shape.
func toScanStatus(st scans.Status) riskTypes.ScanStatusDTO {
	return riskTypes.ScanStatusDTO{
		ScanID: st.Token,
		RiskID: st.RiskID,
		State:  string(st.State),
		Progress: riskTypes.ScanProgressDTO{
			Processed:  st.Progress.Processed,
			Total:      st.Progress.Total,
			Percentage: st.Progress.Percentage,
		},
		SimilarRisks: toSimilarRisks(st.Results),
		Error:        st.Error,
	}
}

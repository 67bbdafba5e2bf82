package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/granite-grc/granite/internal/application/register"
	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/pkg/errors"
	riskTypes "github.com/granite-grc/granite/pkg/types/risk"
)

// RegisterHandler serves the register's write surface.
type RegisterHandler struct {
	svc *register.Service
}

// NewRegisterHandler constructs a RegisterHandler.
func NewRegisterHandler(svc *register.Service) *RegisterHandler {
	return &RegisterHandler{svc: svc}
}

// Register mounts the handler's routes on the given group.
func (h *RegisterHandler) Register(g *gin.RouterGroup) {
	g.PUT("/risks/:id", h.putRisk)
	g.DELETE("/risks/:id", h.deleteRisk)
}

// putRisk handles PUT /risks/:id. Responds 201 when a new register entry was
// created, 200 on update.
func (h *RegisterHandler) putRisk(c *gin.Context) {
	var req riskTypes.UpsertRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidParam("malformed risk body").WithCause(err))
		return
	}

	a, err := assessmentFromRequest(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	created, err := h.svc.SaveRisk(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, riskTypes.RiskRefDTO{ID: a.ID, Title: a.Title})
}

// deleteRisk handles DELETE /risks/:id.
func (h *RegisterHandler) deleteRisk(c *gin.Context) {
	if err := h.svc.DeleteRisk(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func assessmentFromRequest(id string, req *riskTypes.UpsertRiskRequest) (*risk.Assessment, error) {
	initial, err := risk.ParseTreatment(req.InitialTreatment)
	if err != nil {
		return nil, err
	}
	residual, err := risk.ParseTreatment(req.ResidualTreatment)
	if err != nil {
		return nil, err
	}

	return &risk.Assessment{
		ID:                id,
		Title:             req.Title,
		ThreatDescription: req.ThreatDescription,
		Description:       req.Description,

		Confidentiality: req.Confidentiality,
		Integrity:       req.Integrity,
		Availability:    req.Availability,
		Likelihood:      req.Likelihood,

		MitigatedConfidentiality: req.MitigatedConfidentiality,
		MitigatedIntegrity:       req.MitigatedIntegrity,
		MitigatedAvailability:    req.MitigatedAvailability,
		MitigatedLikelihood:      req.MitigatedLikelihood,

		InitialTreatment:  initial,
		ResidualTreatment: residual,

		ExistingControlsDescription: req.ExistingControlsDescription,
		MitigationDescription:       req.MitigationDescription,
		MitigationImplemented:       req.MitigationImplemented,
	}, nil
}

// Package assessment exposes the register's read-side scoring and compliance
// operations: every read recomputes derived values from the stored
// assessment, nothing is persisted.
package assessment

import (
	"context"

	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	riskTypes "github.com/granite-grc/granite/pkg/types/risk"
)

// Deps holds the service's collaborators.
type Deps struct {
	Risks      risk.Reader
	Calculator *risk.Calculator
	Evaluator  *risk.Evaluator
	Logger     logging.Logger
}

// Service computes score and compliance read models for stored assessments.
// Stateless; safe for concurrent use.
type Service struct {
	risks  risk.Reader
	calc   *risk.Calculator
	eval   *risk.Evaluator
	logger logging.Logger
}

// NewService constructs a Service. A nil Calculator or Evaluator falls back
// to the default policy.
func NewService(deps Deps) *Service {
	calc := deps.Calculator
	if calc == nil {
		calc = risk.NewDefaultCalculator()
	}
	eval := deps.Evaluator
	if eval == nil {
		eval = risk.NewEvaluator(calc)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		risks:  deps.Risks,
		calc:   calc,
		eval:   eval,
		logger: logger.Named("assessment"),
	}
}

// ScoreRisk returns the score read model for a stored assessment. The
// mitigated triple of the DTO stays nil while the mitigated quadruple is
// incomplete.
func (s *Service) ScoreRisk(ctx context.Context, id string) (*riskTypes.ScoreDTO, error) {
	a, err := s.risks.GetRiskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ScoreAssessment(a)
}

// ScoreAssessment computes the score DTO for an already-loaded assessment.
func (s *Service) ScoreAssessment(a *risk.Assessment) (*riskTypes.ScoreDTO, error) {
	initial, err := s.calc.AssessedScore(a)
	if err != nil {
		return nil, err
	}

	dto := &riskTypes.ScoreDTO{}
	if initial != nil {
		dto.Risk = initial.Risk
		dto.RiskScore = initial.RiskScore
		dto.Level = string(initial.Level)
	}

	mitigated, err := s.calc.MitigatedScore(a)
	if err != nil {
		return nil, err
	}
	if mitigated != nil {
		dto.MitigatedRisk = &mitigated.Risk
		dto.MitigatedRiskScore = &mitigated.RiskScore
		lvl := string(mitigated.Level)
		dto.MitigatedLevel = &lvl
	}
	return dto, nil
}

// ComplianceForRisk returns the compliance read model for a stored
// assessment.
func (s *Service) ComplianceForRisk(ctx context.Context, id string) (*riskTypes.ComplianceDTO, error) {
	a, err := s.risks.GetRiskByID(ctx, id)
	if err != nil {
		return nil, err
	}

	report, err := s.eval.Evaluate(a)
	if err != nil {
		return nil, err
	}
	return &riskTypes.ComplianceDTO{
		InitialTreatmentFinding: riskTypes.FindingDTO{
			Severity: string(report.InitialTreatmentFinding.Severity),
			Reason:   report.InitialTreatmentFinding.Reason,
		},
		ResidualTreatmentFinding: riskTypes.FindingDTO{
			Severity: string(report.ResidualTreatmentFinding.Severity),
			Reason:   report.ResidualTreatmentFinding.Reason,
		},
	}, nil
}

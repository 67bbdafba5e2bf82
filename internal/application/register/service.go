// Package register exposes the write side of the risk register: persisting
// assessments and announcing the change so downstream consumers can refresh
// their derived state.
package register

import (
	"context"

	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// Repository is the storage the service writes through.
type Repository interface {
	risk.Reader
	risk.Writer
}

// EventSink receives change notifications after a successful write. Delivery
// is best effort; a sink failure never rolls back the write.
type EventSink interface {
	RiskSaved(ctx context.Context, a *risk.Assessment, created bool) error
	RiskDeleted(ctx context.Context, id string) error
}

// Deps holds the service's collaborators. Events may be nil when no consumer
// is deployed.
type Deps struct {
	Risks  Repository
	Events EventSink
	Logger logging.Logger
}

// Service persists assessments and publishes lifecycle events.
type Service struct {
	risks  Repository
	events EventSink
	logger logging.Logger
}

// NewService constructs a Service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		risks:  deps.Risks,
		events: deps.Events,
		logger: logger.Named("register"),
	}
}

// SaveRisk validates and upserts the assessment, reporting whether a new
// register entry was created.
func (s *Service) SaveRisk(ctx context.Context, a *risk.Assessment) (bool, error) {
	if a == nil || a.ID == "" {
		return false, errors.New(errors.ErrCodeValidation, "assessment id is required")
	}
	if err := a.Validate(); err != nil {
		return false, err
	}

	created := false
	if _, err := s.risks.GetRiskByID(ctx, a.ID); err != nil {
		if !errors.IsNotFound(err) {
			return false, err
		}
		created = true
	}

	if err := s.risks.Save(ctx, a); err != nil {
		return false, err
	}

	if s.events != nil {
		if err := s.events.RiskSaved(ctx, a, created); err != nil {
			s.logger.Warn("risk event not delivered",
				logging.Err(err),
				logging.String("risk_id", a.ID))
		}
	}
	return created, nil
}

// DeleteRisk removes the assessment and announces the deletion.
func (s *Service) DeleteRisk(ctx context.Context, id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeValidation, "assessment id is required")
	}
	if err := s.risks.Delete(ctx, id); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.RiskDeleted(ctx, id); err != nil {
			s.logger.Warn("risk event not delivered",
				logging.Err(err),
				logging.String("risk_id", id))
		}
	}
	return nil
}

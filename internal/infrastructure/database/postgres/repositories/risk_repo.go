// Package repositories provides the PostgreSQL-backed implementations of the
// risk domain's storage ports.
package repositories

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/granite-grc/granite/internal/domain/risk"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// RiskRepository implements risk.Reader and risk.CorpusSource over the risks
// table. Every method takes a context for cancellation propagation and uses
// parameterised queries exclusively.
type RiskRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRiskRepository constructs a ready-to-use RiskRepository.
func NewRiskRepository(pool *pgxpool.Pool, log logging.Logger) *RiskRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RiskRepository{pool: pool, logger: log}
}

const riskColumns = `
	id, title, threat_description, description,
	confidentiality, integrity, availability, likelihood,
	mitigated_confidentiality, mitigated_integrity, mitigated_availability, mitigated_likelihood,
	initial_treatment, residual_treatment,
	existing_controls_description, mitigation_description, mitigation_implemented`

// GetRiskByID returns the assessment with the given identifier, or an
// ErrCodeRiskNotFound error.
func (r *RiskRepository) GetRiskByID(ctx context.Context, id string) (*risk.Assessment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+riskColumns+` FROM risks WHERE id = $1`, id)

	a, err := scanAssessment(row)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeRiskNotFound, "risk not found").WithDetail(id)
	}
	if err != nil {
		r.logger.Error("RiskRepository.GetRiskByID", logging.Err(err), logging.String("risk_id", id))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query risk")
	}
	return a, nil
}

// FetchCorpus returns the comparison summaries of every stored risk,
// excluding excludeID when non-empty. Ordering is by creation time so
// similarity ties resolve to the oldest entry first.
func (r *RiskRepository) FetchCorpus(ctx context.Context, excludeID string) ([]risk.CorpusEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, threat_description, description
		FROM risks
		WHERE $1 = '' OR id <> $1
		ORDER BY created_at, id`, excludeID)
	if err != nil {
		r.logger.Error("RiskRepository.FetchCorpus", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeCorpusUnavailable, "failed to query corpus")
	}
	defer rows.Close()

	var entries []risk.CorpusEntry
	for rows.Next() {
		var e risk.CorpusEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.ThreatDescription, &e.Description); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCorpusUnavailable, "failed to scan corpus row")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusUnavailable, "corpus iteration failed")
	}
	return entries, nil
}

// Save upserts an assessment. The engine itself never writes risks; this
// supports the worker's test fixtures and the register service that owns the
// table.
func (r *RiskRepository) Save(ctx context.Context, a *risk.Assessment) error {
	if err := a.Validate(); err != nil {
		return err
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO risks (`+riskColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			threat_description = EXCLUDED.threat_description,
			description = EXCLUDED.description,
			confidentiality = EXCLUDED.confidentiality,
			integrity = EXCLUDED.integrity,
			availability = EXCLUDED.availability,
			likelihood = EXCLUDED.likelihood,
			mitigated_confidentiality = EXCLUDED.mitigated_confidentiality,
			mitigated_integrity = EXCLUDED.mitigated_integrity,
			mitigated_availability = EXCLUDED.mitigated_availability,
			mitigated_likelihood = EXCLUDED.mitigated_likelihood,
			initial_treatment = EXCLUDED.initial_treatment,
			residual_treatment = EXCLUDED.residual_treatment,
			existing_controls_description = EXCLUDED.existing_controls_description,
			mitigation_description = EXCLUDED.mitigation_description,
			mitigation_implemented = EXCLUDED.mitigation_implemented,
			updated_at = now()`,
		a.ID, a.Title, a.ThreatDescription, a.Description,
		a.Confidentiality, a.Integrity, a.Availability, a.Likelihood,
		a.MitigatedConfidentiality, a.MitigatedIntegrity, a.MitigatedAvailability, a.MitigatedLikelihood,
		nullableTreatment(a.InitialTreatment), nullableTreatment(a.ResidualTreatment),
		a.ExistingControlsDescription, a.MitigationDescription, a.MitigationImplemented,
	)
	if err != nil {
		r.logger.Error("RiskRepository.Save", logging.Err(err), logging.String("risk_id", a.ID))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert risk")
	}
	return nil
}

// Delete removes an assessment, reporting ErrCodeRiskNotFound for unknown
// identifiers.
func (r *RiskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM risks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("RiskRepository.Delete", logging.Err(err), logging.String("risk_id", id))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete risk")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeRiskNotFound, "risk not found").WithDetail(id)
	}
	return nil
}

func scanAssessment(row pgx.Row) (*risk.Assessment, error) {
	var a risk.Assessment
	var initial, residual *string
	err := row.Scan(
		&a.ID, &a.Title, &a.ThreatDescription, &a.Description,
		&a.Confidentiality, &a.Integrity, &a.Availability, &a.Likelihood,
		&a.MitigatedConfidentiality, &a.MitigatedIntegrity, &a.MitigatedAvailability, &a.MitigatedLikelihood,
		&initial, &residual,
		&a.ExistingControlsDescription, &a.MitigationDescription, &a.MitigationImplemented,
	)
	if err != nil {
		return nil, err
	}
	if initial != nil {
		a.InitialTreatment = risk.Treatment(*initial)
	}
	if residual != nil {
		a.ResidualTreatment = risk.Treatment(*residual)
	}
	return &a, nil
}

// nullableTreatment maps the unset treatment to SQL NULL so the column's
// CHECK constraint only sees the four defined categories.
func nullableTreatment(t risk.Treatment) *string {
	if t == "" {
		return nil
	}
	s := string(t)
	return &s
}

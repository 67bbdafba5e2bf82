package risk

import (
	"github.com/granite-grc/granite/pkg/errors"
)

// Level is the qualitative banding of a risk score.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// LevelPolicy holds the riskScore thresholds that band a numeric score into
// a Level. These are policy constants, not derived values; they live in
// configuration so the organisation's policy can evolve without code changes.
type LevelPolicy struct {
	// MediumMin is the inclusive lower bound of MEDIUM.
	MediumMin int `mapstructure:"medium_min"`
	// HighMin is the inclusive lower bound of HIGH.
	HighMin int `mapstructure:"high_min"`
}

// DefaultLevelPolicy returns the register's standard banding: scores of 36
// and above are HIGH, 15 through 35 MEDIUM, everything below LOW.
func DefaultLevelPolicy() LevelPolicy {
	return LevelPolicy{MediumMin: 15, HighMin: 36}
}

// Validate rejects degenerate threshold orderings.
func (p LevelPolicy) Validate() error {
	if p.MediumMin <= 0 || p.HighMin <= p.MediumMin {
		return errors.NewValidationError("level_policy", "require 0 < medium_min < high_min")
	}
	return nil
}

// Level bands a riskScore according to the policy.
func (p LevelPolicy) Level(riskScore int) Level {
	switch {
	case riskScore >= p.HighMin:
		return LevelHigh
	case riskScore >= p.MediumMin:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ScoreResult is the derived scoring of one factor quadruple. It is
// recomputed on every read and never stored.
type ScoreResult struct {
	// Risk is the additive impact value: confidentiality + integrity +
	// availability, range 3..15.
	Risk int `json:"risk"`
	// RiskScore is Risk multiplied by likelihood, range 3..75.
	RiskScore int `json:"risk_score"`
	// Level is the qualitative banding of RiskScore.
	Level Level `json:"level"`
}

// Calculator derives numeric and qualitative risk scores from assessed
// factors. It is stateless and safe for concurrent use.
type Calculator struct {
	policy LevelPolicy
}

// NewCalculator constructs a Calculator with the given banding policy.
func NewCalculator(policy LevelPolicy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{policy: policy}, nil
}

// NewDefaultCalculator constructs a Calculator with DefaultLevelPolicy.
func NewDefaultCalculator() *Calculator {
	return &Calculator{policy: DefaultLevelPolicy()}
}

// Policy returns the banding policy in effect.
func (c *Calculator) Policy() LevelPolicy { return c.policy }

// Compute derives the ScoreResult for one factor quadruple. Each factor must
// be within 1..5; out-of-range input is a caller error and is rejected, never
// clamped.
func (c *Calculator) Compute(conf, integ, avail, likelihood int) (ScoreResult, error) {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"confidentiality", conf},
		{"integrity", integ},
		{"availability", avail},
		{"likelihood", likelihood},
	} {
		if f.v < FactorMin || f.v > FactorMax {
			return ScoreResult{}, errors.New(errors.ErrCodeFactorOutOfRange, "factor outside 1..5").WithDetail(f.name)
		}
	}

	risk := conf + integ + avail
	riskScore := risk * likelihood
	return ScoreResult{
		Risk:      risk,
		RiskScore: riskScore,
		Level:     c.policy.Level(riskScore),
	}, nil
}

// AssessedScore computes the initial score of an assessment. It returns nil
// without error when any of the four factors is unset: an unscored risk is
// undefined, which callers must treat distinctly from LOW.
func (c *Calculator) AssessedScore(a *Assessment) (*ScoreResult, error) {
	conf, integ, avail, l, ok := a.AssessedFactors()
	if !ok {
		return nil, nil
	}
	res, err := c.Compute(conf, integ, avail, l)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// MitigatedScore computes the post-treatment score over the mitigated
// quadruple with the identical function. A partially set mitigated quadruple
// yields nil: the mitigated score is undefined, not zero and not defaulted.
func (c *Calculator) MitigatedScore(a *Assessment) (*ScoreResult, error) {
	conf, integ, avail, l, ok := a.MitigatedFactors()
	if !ok {
		return nil, nil
	}
	res, err := c.Compute(conf, integ, avail, l)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

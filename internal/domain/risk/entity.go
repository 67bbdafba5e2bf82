// Package risk holds the risk-register domain model: the assessment entity,
// the deterministic score calculator, and the treatment-compliance evaluator.
// Everything in this package is pure read-and-compute; assessments are owned
// by the storage layer and are never mutated here.
package risk

import (
	"strings"

	"github.com/granite-grc/granite/pkg/errors"
)

// Treatment is the chosen risk-response strategy.
type Treatment string

const (
	TreatmentRetain Treatment = "RETAIN"
	TreatmentModify Treatment = "MODIFY"
	TreatmentShare  Treatment = "SHARE"
	TreatmentAvoid  Treatment = "AVOID"
)

// IsValid reports whether t is one of the four defined treatment categories.
func (t Treatment) IsValid() bool {
	switch t {
	case TreatmentRetain, TreatmentModify, TreatmentShare, TreatmentAvoid:
		return true
	}
	return false
}

// ParseTreatment converts a string to a Treatment, case-insensitively.
// The empty string parses to the zero Treatment (unset), not an error.
func ParseTreatment(s string) (Treatment, error) {
	if s == "" {
		return "", nil
	}
	t := Treatment(strings.ToUpper(s))
	if !t.IsValid() {
		return "", errors.New(errors.ErrCodeTreatmentInvalid, "unknown treatment category").WithDetail(s)
	}
	return t, nil
}

// FactorMin and FactorMax bound every ordinal assessment factor.
const (
	FactorMin = 1
	FactorMax = 5
)

// Assessment is the scored subject of the register. Factor fields are
// pointers because an assessment may be saved before scoring is finished;
// an unset factor is nil, never zero. The engine reads assessments and
// returns derived values only.
type Assessment struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	ThreatDescription string `json:"threat_description"`
	Description       string `json:"description"`

	Confidentiality *int `json:"confidentiality"`
	Integrity       *int `json:"integrity"`
	Availability    *int `json:"availability"`
	Likelihood      *int `json:"likelihood"`

	MitigatedConfidentiality *int `json:"mitigated_confidentiality"`
	MitigatedIntegrity       *int `json:"mitigated_integrity"`
	MitigatedAvailability    *int `json:"mitigated_availability"`
	MitigatedLikelihood      *int `json:"mitigated_likelihood"`

	InitialTreatment  Treatment `json:"initial_treatment"`
	ResidualTreatment Treatment `json:"residual_treatment"`

	ExistingControlsDescription string `json:"existing_controls_description"`
	MitigationDescription       string `json:"mitigation_description"`
	MitigationImplemented       bool   `json:"mitigation_implemented"`
}

// CombinedText concatenates the free-text fields used for similarity
// comparison. Empty segments are skipped so short assessments do not embed
// stray separators.
func (a *Assessment) CombinedText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{a.Title, a.ThreatDescription, a.Description} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// AssessedFactors returns the initial scoring quadruple, or ok=false when any
// of the four is unset.
func (a *Assessment) AssessedFactors() (c, i, av, l int, ok bool) {
	if a.Confidentiality == nil || a.Integrity == nil || a.Availability == nil || a.Likelihood == nil {
		return 0, 0, 0, 0, false
	}
	return *a.Confidentiality, *a.Integrity, *a.Availability, *a.Likelihood, true
}

// MitigatedFactors returns the mitigated quadruple, or ok=false when any of
// the four is unset. A partially filled mitigated set is permitted in stored
// data (the UI saves in-progress work) but is never treated as complete.
func (a *Assessment) MitigatedFactors() (c, i, av, l int, ok bool) {
	if a.MitigatedConfidentiality == nil || a.MitigatedIntegrity == nil ||
		a.MitigatedAvailability == nil || a.MitigatedLikelihood == nil {
		return 0, 0, 0, 0, false
	}
	return *a.MitigatedConfidentiality, *a.MitigatedIntegrity, *a.MitigatedAvailability, *a.MitigatedLikelihood, true
}

// MitigationComplete reports whether the additional-controls assessment is
// finished: all four mitigated factors set and a non-blank mitigation
// description.
func (a *Assessment) MitigationComplete() bool {
	_, _, _, _, ok := a.MitigatedFactors()
	return ok && strings.TrimSpace(a.MitigationDescription) != ""
}

// Validate checks every set factor is within [FactorMin, FactorMax] and every
// set treatment is a known category. Out-of-range values are rejected, never
// clamped.
func (a *Assessment) Validate() error {
	factors := []struct {
		name string
		v    *int
	}{
		{"confidentiality", a.Confidentiality},
		{"integrity", a.Integrity},
		{"availability", a.Availability},
		{"likelihood", a.Likelihood},
		{"mitigated_confidentiality", a.MitigatedConfidentiality},
		{"mitigated_integrity", a.MitigatedIntegrity},
		{"mitigated_availability", a.MitigatedAvailability},
		{"mitigated_likelihood", a.MitigatedLikelihood},
	}
	for _, f := range factors {
		if f.v == nil {
			continue
		}
		if *f.v < FactorMin || *f.v > FactorMax {
			return errors.New(errors.ErrCodeFactorOutOfRange, "factor outside 1..5").WithDetail(f.name)
		}
	}
	for _, t := range []Treatment{a.InitialTreatment, a.ResidualTreatment} {
		if t != "" && !t.IsValid() {
			return errors.New(errors.ErrCodeTreatmentInvalid, "unknown treatment category").WithDetail(string(t))
		}
	}
	return nil
}

// IntPtr is a convenience for building assessments in callers and tests.
func IntPtr(v int) *int { return &v }

// Package risk defines the transport-level shapes of the register's scoring,
// compliance, and similarity endpoints. All payloads are plain JSON records;
// no binary framing is mandated.
package risk

// ScoreDTO is the derived scoring of one assessment. The mitigated fields
// are nil when the mitigated quadruple is incomplete: an undefined mitigated
// score is distinct from a LOW one.
type ScoreDTO struct {
	Risk               int     `json:"risk"`
	RiskScore          int     `json:"riskScore"`
	Level              string  `json:"level"`
	MitigatedRisk      *int    `json:"mitigatedRisk,omitempty"`
	MitigatedRiskScore *int    `json:"mitigatedRiskScore,omitempty"`
	MitigatedLevel     *string `json:"mitigatedLevel,omitempty"`
}

// FindingDTO is one advisory compliance finding.
type FindingDTO struct {
	Severity string `json:"severity"`
	Reason   string `json:"reason,omitempty"`
}

// ComplianceDTO carries one finding per treatment category.
type ComplianceDTO struct {
	InitialTreatmentFinding  FindingDTO `json:"initialTreatmentFinding"`
	ResidualTreatmentFinding FindingDTO `json:"residualTreatmentFinding"`
}

// RiskRefDTO is the display summary of a register entry.
type RiskRefDTO struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SimilarRiskDTO pairs a corpus risk with its 0..100 similarity score.
type SimilarRiskDTO struct {
	Risk  RiskRefDTO `json:"risk"`
	Score float64    `json:"score"`
}

// SimilarRisksResponse is the result set of a similarity query.
type SimilarRisksResponse struct {
	SimilarRisks []SimilarRiskDTO `json:"similarRisks"`
}

// CheckSimilarityRequest is the pre-save duplicate check body.
type CheckSimilarityRequest struct {
	Title             string `json:"title"`
	ThreatDescription string `json:"threatDescription,omitempty"`
	Description       string `json:"description,omitempty"`
}

// UpsertRiskRequest is the body of a risk write. Factor fields are pointers
// so an in-progress assessment can be saved with factors still unset.
type UpsertRiskRequest struct {
	Title             string `json:"title"`
	ThreatDescription string `json:"threatDescription,omitempty"`
	Description       string `json:"description,omitempty"`

	Confidentiality *int `json:"confidentiality,omitempty"`
	Integrity       *int `json:"integrity,omitempty"`
	Availability    *int `json:"availability,omitempty"`
	Likelihood      *int `json:"likelihood,omitempty"`

	MitigatedConfidentiality *int `json:"mitigatedConfidentiality,omitempty"`
	MitigatedIntegrity       *int `json:"mitigatedIntegrity,omitempty"`
	MitigatedAvailability    *int `json:"mitigatedAvailability,omitempty"`
	MitigatedLikelihood      *int `json:"mitigatedLikelihood,omitempty"`

	InitialTreatment  string `json:"initialTreatment,omitempty"`
	ResidualTreatment string `json:"residualTreatment,omitempty"`

	ExistingControlsDescription string `json:"existingControlsDescription,omitempty"`
	MitigationDescription       string `json:"mitigationDescription,omitempty"`
	MitigationImplemented       bool   `json:"mitigationImplemented,omitempty"`
}

// ScanProgressDTO mirrors the coordinator's progress value object.
type ScanProgressDTO struct {
	Processed  int `json:"processed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// StartScanResponse acknowledges an accepted on-demand scan.
type StartScanResponse struct {
	ScanID string `json:"scanId"`
}

// ScanStatusDTO is one poll of an on-demand scan.
type ScanStatusDTO struct {
	ScanID       string           `json:"scanId"`
	RiskID       string           `json:"riskId"`
	State        string           `json:"state"`
	Progress     ScanProgressDTO  `json:"progress"`
	SimilarRisks []SimilarRiskDTO `json:"similarRisks,omitempty"`
	Error        string           `json:"error,omitempty"`
}

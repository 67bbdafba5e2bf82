// Package scans orchestrates corpus-wide similarity scans for the register:
// the on-demand "find similar risks" scan with live progress reporting, and
// the cheap pre-save duplicate check used while a user is typing. It is pure
// orchestration over the similarity index; no persistent state is mutated.
package scans

import (
	"time"

	"github.com/granite-grc/granite/internal/domain/similarity"
)

// State is the lifecycle phase of one scan.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Progress is the ephemeral, token-scoped progress of one in-flight scan.
// Percentage is monotonically non-decreasing and stays below 100 until the
// scan truly finishes. Progress is a value object; each snapshot is a copy,
// never shared mutable state.
type Progress struct {
	// Processed is the estimated number of corpus entries compared so far.
	Processed int `json:"processed"`
	// Total is the corpus size captured once at scan start.
	Total int `json:"total"`
	// Percentage is 0..100.
	Percentage int `json:"percentage"`
}

// Status is a point-in-time snapshot of one scan, correlated by its opaque
// token.
type Status struct {
	Token    string   `json:"token"`
	RiskID   string   `json:"risk_id"`
	State    State    `json:"state"`
	Progress Progress `json:"progress"`
	// Results is populated only in StateCompleted.
	Results []similarity.Candidate `json:"results,omitempty"`
	// Error is the human-readable failure reason in StateFailed.
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

package risk

import "context"

// Reader fetches single assessments from the external storage layer.
type Reader interface {
	// GetRiskByID returns the assessment with the given identifier, or an
	// ErrCodeRiskNotFound error.
	GetRiskByID(ctx context.Context, id string) (*Assessment, error)
}

// Writer persists assessments in the external storage layer.
type Writer interface {
	// Save upserts the assessment after validating it.
	Save(ctx context.Context, a *Assessment) error
	// Delete removes the assessment, or returns an ErrCodeRiskNotFound error.
	Delete(ctx context.Context, id string) error
}

// CorpusEntry is the summary of one register entry used for similarity
// comparison and result display.
type CorpusEntry struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	ThreatDescription string `json:"threat_description"`
	Description       string `json:"description"`
}

// CombinedText mirrors Assessment.CombinedText for corpus entries so the
// query and corpus sides embed identically shaped text.
func (c CorpusEntry) CombinedText() string {
	a := Assessment{Title: c.Title, ThreatDescription: c.ThreatDescription, Description: c.Description}
	return a.CombinedText()
}

// CorpusSource fetches the similarity corpus from the external storage
// layer. The engine treats the result as a flat collection; paging is the
// source's concern.
type CorpusSource interface {
	// FetchCorpus returns every register entry, excluding excludeID when it
	// is non-empty.
	FetchCorpus(ctx context.Context, excludeID string) ([]CorpusEntry, error)
}

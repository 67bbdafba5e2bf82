package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// DefaultHTTPTimeout bounds one embedding-service round trip.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPConfig configures the generic embedding-service client.
type HTTPConfig struct {
	// BaseURL of the embedding service, e.g. "http://embeddings:8000".
	BaseURL string `mapstructure:"base_url"`
	// Model is sent with each request so the service can select a model;
	// optional when the service hosts a single model.
	Model string `mapstructure:"model"`
	// Dimension of the vectors the service emits. Required: blank text is
	// answered locally with a zero vector of this length.
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// HTTPProvider talks to an embedding service over plain HTTP. The service
// contract is a POST /embed endpoint taking {"texts": [...]} and returning
// {"vectors": [[...]], "dim": N}. Safe for concurrent use.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client
	logger logging.Logger
}

// NewHTTPProvider constructs an HTTPProvider.
func NewHTTPProvider(cfg HTTPConfig, logger logging.Logger) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewValidationError("base_url", "embedding service URL is required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.NewValidationError("dimension", "embedding dimension must be positive")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("embedding.http"),
	}, nil
}

// Dimension returns the configured vector length.
func (p *HTTPProvider) Dimension() int { return p.cfg.Dimension }

type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model,omitempty"`
}

type embedResponse struct {
	Vectors [][]float32 `json:"vectors"`
	Dim     int         `json:"dim"`
}

// Embed returns the vector for a single text.
func (p *HTTPProvider) Embed(ctx context.Context, text string) (similarity.Vector, error) {
	if isBlank(text) {
		return zeroVector(p.cfg.Dimension), nil
	}
	vectors, err := p.post(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one round trip. Blank entries are
// answered locally while the rest share a single request.
func (p *HTTPProvider) EmbedBatch(ctx context.Context, texts []string) ([]similarity.Vector, error) {
	out := make([]similarity.Vector, len(texts))
	pending := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, t := range texts {
		if isBlank(t) {
			out[i] = zeroVector(p.cfg.Dimension)
			continue
		}
		pending = append(pending, t)
		positions = append(positions, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	vectors, err := p.post(ctx, pending)
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		out[positions[i]] = v
	}
	return out, nil
}

func (p *HTTPProvider) post(ctx context.Context, texts []string) ([]similarity.Vector, error) {
	body, err := json.Marshal(embedRequest{Texts: texts, Model: p.cfg.Model})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal embed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "build embed request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "call embedding service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "embedding service returned non-200").
			WithDetail(fmt.Sprintf("status=%d body=%s", resp.StatusCode, snippet))
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode embed response")
	}
	if len(er.Vectors) != len(texts) {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "embedding service returned wrong vector count").
			WithDetail(fmt.Sprintf("want=%d got=%d", len(texts), len(er.Vectors)))
	}

	out := make([]similarity.Vector, len(er.Vectors))
	for i, raw := range er.Vectors {
		if len(raw) != p.cfg.Dimension {
			return nil, errors.New(errors.ErrCodeDimensionMismatch, "embedding service returned wrong dimension").
				WithDetail(fmt.Sprintf("want=%d got=%d", p.cfg.Dimension, len(raw)))
		}
		out[i] = similarity.Vector(raw)
	}

	p.logger.Debug("embedded texts",
		logging.Int("count", len(texts)),
		logging.Duration("took", time.Since(start)),
	)
	return out, nil
}

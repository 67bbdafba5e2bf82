package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/granite-grc/granite/internal/domain/similarity"
	"github.com/granite-grc/granite/internal/infrastructure/monitoring/logging"
	"github.com/granite-grc/granite/pkg/errors"
)

// OpenAIConfig configures the OpenAI-compatible embedding provider. BaseURL
// may point at any API-compatible server (OpenAI itself, or a local gateway).
type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

// OpenAIProvider embeds text through an OpenAI-compatible embeddings API.
// Safe for concurrent use.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger logging.Logger
}

// NewOpenAIProvider constructs an OpenAIProvider.
func NewOpenAIProvider(cfg OpenAIConfig, logger logging.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewValidationError("api_key", "OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Dimension <= 0 {
		return nil, errors.NewValidationError("dimension", "embedding dimension must be positive")
	}
	if logger == nil {
		logger = logging.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger.Named("embedding.openai"),
	}, nil
}

// Dimension returns the configured vector length.
func (p *OpenAIProvider) Dimension() int { return p.cfg.Dimension }

// Embed returns the vector for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (similarity.Vector, error) {
	if isBlank(text) {
		return zeroVector(p.cfg.Dimension), nil
	}
	vectors, err := p.createEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one API call.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]similarity.Vector, error) {
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

	vectors, err := p.createEmbeddings(ctx, pending)
	if err != nil {
		return nil, err
	}
	for i, v := range vectors {
		out[positions[i]] = v
	}
	return out, nil
}

func (p *OpenAIProvider) createEmbeddings(ctx context.Context, texts []string) ([]similarity.Vector, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.cfg.Model),
		Dimensions: p.cfg.Dimension,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "embeddings API returned wrong vector count").
			WithDetail(fmt.Sprintf("want=%d got=%d", len(texts), len(resp.Data)))
	}

	out := make([]similarity.Vector, len(resp.Data))
	for _, d := range resp.Data {
		if len(d.Embedding) != p.cfg.Dimension {
			return nil, errors.New(errors.ErrCodeDimensionMismatch, "embeddings API returned wrong dimension").
				WithDetail(fmt.Sprintf("want=%d got=%d", p.cfg.Dimension, len(d.Embedding)))
		}
		out[d.Index] = similarity.Vector(d.Embedding)
	}
	return out, nil
}

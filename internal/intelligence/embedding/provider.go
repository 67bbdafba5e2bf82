// Package embedding defines the embedding capability the similarity engine
// consumes and its concrete providers: a generic HTTP embedding-service
// client, an OpenAI-compatible client, and a redis-backed caching decorator.
// Training or hosting the model itself is out of scope; providers are thin
// clients over a pretrained black box.
package embedding

import (
	"context"
	"strings"

	"github.com/granite-grc/granite/internal/domain/similarity"
)

// Provider converts risk text into a fixed-dimension vector. Implementations
// must be deterministic for identical input so scans are reproducible, and
// must tolerate empty or very short strings by returning a zero-information
// vector rather than failing: a risk title may be as short as 3 characters.
type Provider interface {
	// Embed returns the vector for text. Blank text yields a zero vector
	// of the provider's dimension, with no upstream call.
	Embed(ctx context.Context, text string) (similarity.Vector, error)

	// Dimension returns the fixed length of every vector the provider
	// emits.
	Dimension() int
}

// BatchProvider is implemented by providers that can embed several texts in
// one upstream round trip. Callers without batch support fall back to
// sequential Embed calls.
type BatchProvider interface {
	Provider
	EmbedBatch(ctx context.Context, texts []string) ([]similarity.Vector, error)
}

// zeroVector returns the zero-information embedding of the given dimension.
func zeroVector(dim int) similarity.Vector {
	return make(similarity.Vector, dim)
}

// isBlank reports whether text carries no embeddable content.
func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

package recall

import (
	"context"
	"math"

	"github.com/CreamyCappuccino/mlxlm/internal/engine"
)

// EmbedFunc produces a float32 embedding vector from text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// NewEngineEmbedFunc returns an EmbedFunc backed by the loaded model's
// embedding endpoint. Vectors are normalized so cosine similarity behaves.
func NewEngineEmbedFunc(e engine.Engine) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		normalizeVector(vec)
		return vec, nil
	}
}

// normalizeVector normalizes a vector to unit length in-place.
func normalizeVector(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sum))
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

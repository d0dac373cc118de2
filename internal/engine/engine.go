// Package engine runs model inference through a local model-server
// subprocess speaking the OpenAI wire protocol.
package engine

import (
	"context"

	"github.com/CreamyCappuccino/mlxlm/pkg/api"
)

// Engine is the interface for model inference backends.
// ProcessEngine manages a model server as a subprocess; a remote engine
// could point the same client at an already-running server.
type Engine interface {
	// Load starts the engine with the given model snapshot directory.
	Load(ctx context.Context, modelPath string, opts Options) error

	// Health returns nil if the engine is ready to serve requests.
	Health(ctx context.Context) error

	// Completion performs a non-streaming text completion.
	Completion(ctx context.Context, req *api.CompletionRequest) (*api.CompletionResponse, error)

	// StreamCompletion performs a streaming text completion, returning a
	// channel of parsed stream events.
	StreamCompletion(ctx context.Context, req *api.CompletionRequest) (<-chan StreamEvent, error)

	// CountTokens returns the token count of text under the loaded
	// model's tokenizer.
	CountTokens(ctx context.Context, text string) (int, error)

	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name/ID of the loaded model.
	ModelName() string

	// Close shuts down the engine and releases resources.
	Close() error
}

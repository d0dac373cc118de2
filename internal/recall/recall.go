// Package recall gives chat sessions long-term memory: completed exchanges
// are embedded into a local vector store and surfaced later by hybrid
// semantic/keyword search.
package recall

import (
	"context"
	"time"
)

// Exchange is a completed user/assistant turn recorded for later recall.
type Exchange struct {
	ID        string
	SessionID string
	Prompt    string
	Reply     string
	At        time.Time
}

// Content returns the combined text of the exchange for embedding and search.
func (e *Exchange) Content() string {
	return "User: " + e.Prompt + "\nAssistant: " + e.Reply
}

// Hit is an exchange with its hybrid search scores.
type Hit struct {
	Exchange      Exchange
	SemanticScore float32
	KeywordScore  float32
	CombinedScore float32
}

// Store is the interface for recall storage with hybrid search.
type Store interface {
	Add(ctx context.Context, ex Exchange) error
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
	List(ctx context.Context, limit int) ([]Exchange, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Count() int
	Close() error
}

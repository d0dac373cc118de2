package recall

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

// Hybrid search weights: semantic similarity dominates, keyword overlap
// breaks ties for exact-term queries.
const (
	semanticWeight = 0.7
	keywordWeight  = 0.3
)

const collectionName = "recall"

// VectorStore implements Store using chromem-go for vector storage.
type VectorStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embed      chromem.EmbeddingFunc
	exchanges  map[string]Exchange
	mu         sync.RWMutex
	persistDir string // empty for in-memory
}

// NewVectorStore creates a persistent VectorStore under persistDir.
func NewVectorStore(persistDir string, embed EmbedFunc) (*VectorStore, error) {
	db, err := chromem.NewPersistentDB(persistDir, false)
	if err != nil {
		return nil, fmt.Errorf("create persistent DB: %w", err)
	}
	return newStore(db, persistDir, embed)
}

// NewVectorStoreInMemory creates an in-memory VectorStore for testing.
func NewVectorStoreInMemory(embed EmbedFunc) (*VectorStore, error) {
	return newStore(chromem.NewDB(), "", embed)
}

func newStore(db *chromem.DB, persistDir string, embed EmbedFunc) (*VectorStore, error) {
	fn := chromem.EmbeddingFunc(embed)
	col, err := db.GetOrCreateCollection(collectionName, nil, fn)
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}

	s := &VectorStore{
		db:         db,
		collection: col,
		embed:      fn,
		exchanges:  make(map[string]Exchange),
		persistDir: persistDir,
	}
	// The index may not exist yet on a fresh store.
	_ = s.loadIndex()
	return s, nil
}

func (s *VectorStore) Add(ctx context.Context, ex Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.At.IsZero() {
		ex.At = time.Now()
	}

	doc := chromem.Document{
		ID:      ex.ID,
		Content: ex.Content(),
		Metadata: map[string]string{
			"prompt":     ex.Prompt,
			"reply":      ex.Reply,
			"at":         ex.At.Format(time.RFC3339),
			"session_id": ex.SessionID,
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	s.exchanges[ex.ID] = ex
	s.mu.Unlock()

	return s.saveIndex()
}

func (s *VectorStore) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	terms := queryTerms(query)
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		kw := termOverlap(terms, r.Content)
		hits = append(hits, Hit{
			Exchange:      s.exchangeFromResult(r),
			SemanticScore: r.Similarity,
			KeywordScore:  kw,
			CombinedScore: semanticWeight*r.Similarity + keywordWeight*kw,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].CombinedScore > hits[j].CombinedScore
	})
	return hits, nil
}

// List returns stored exchanges newest first, up to limit (0 means all).
func (s *VectorStore) List(ctx context.Context, limit int) ([]Exchange, error) {
	out := s.snapshot()
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *VectorStore) Delete(ctx context.Context, id string) error {
	if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.mu.Lock()
	delete(s.exchanges, id)
	s.mu.Unlock()

	return s.saveIndex()
}

// Clear drops the whole collection and starts an empty one, which is cheaper
// than deleting the documents one by one.
func (s *VectorStore) Clear(ctx context.Context) error {
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, s.embed)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}

	s.mu.Lock()
	s.collection = col
	s.exchanges = make(map[string]Exchange)
	s.mu.Unlock()

	return s.saveIndex()
}

func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exchanges)
}

func (s *VectorStore) Close() error {
	return nil
}

// snapshot copies the in-memory exchanges sorted newest first.
func (s *VectorStore) snapshot() []Exchange {
	s.mu.RLock()
	out := make([]Exchange, 0, len(s.exchanges))
	for _, ex := range s.exchanges {
		out = append(out, ex)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].At.After(out[j].At)
	})
	return out
}

// exchangeFromResult reconstructs an Exchange from a chromem-go Result.
func (s *VectorStore) exchangeFromResult(r chromem.Result) Exchange {
	s.mu.RLock()
	if ex, ok := s.exchanges[r.ID]; ok {
		s.mu.RUnlock()
		return ex
	}
	s.mu.RUnlock()

	at, _ := time.Parse(time.RFC3339, r.Metadata["at"])
	return Exchange{
		ID:        r.ID,
		Prompt:    r.Metadata["prompt"],
		Reply:     r.Metadata["reply"],
		At:        at,
		SessionID: r.Metadata["session_id"],
	}
}

// Index persistence. The chromem collection holds documents and vectors; the
// index file alongside it keeps the full Exchange records so sessions survive
// restarts. Stored as a JSON array, oldest first, written atomically.

func (s *VectorStore) indexPath() string {
	if s.persistDir == "" {
		return ""
	}
	return filepath.Join(s.persistDir, "exchanges_index.json")
}

func (s *VectorStore) saveIndex() error {
	path := s.indexPath()
	if path == "" {
		return nil
	}

	list := s.snapshot()
	// Oldest first on disk so diffs append.
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *VectorStore) loadIndex() error {
	path := s.indexPath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var list []Exchange
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range list {
		s.exchanges[ex.ID] = ex
	}
	return nil
}

// Keyword scoring. Queries and content are tokenized the same way: lowercased
// runs of letters and digits, at least three runes long. The score is the
// fraction of distinct query terms that appear as whole tokens in the content,
// so "kube" no longer matches "kubernetes".

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, w := range fields {
		if utf8.RuneCountInString(w) >= 3 {
			words = append(words, w)
		}
	}
	return words
}

func queryTerms(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, w := range tokenize(text) {
		terms[w] = struct{}{}
	}
	return terms
}

func termOverlap(terms map[string]struct{}, content string) float32 {
	if len(terms) == 0 {
		return 0
	}
	matched := make(map[string]struct{})
	for _, w := range tokenize(content) {
		if _, ok := terms[w]; ok {
			matched[w] = struct{}{}
		}
	}
	return float32(len(matched)) / float32(len(terms))
}

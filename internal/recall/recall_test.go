package recall

import (
	"context"
	"hash/fnv"
	"math"
	"testing"
	"time"
)

// mockEmbedFunc creates deterministic embedding vectors from text hashing.
// Produces a 64-dimensional unit vector based on FNV hash.
func mockEmbedFunc(ctx context.Context, text string) ([]float32, error) {
	const dims = 64
	vec := make([]float32, dims)
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	for i := range vec {
		bits := seed ^ (uint64(i) * 0x9E3779B97F4A7C15)
		vec[i] = float32(bits%1000) / 1000.0
	}

	normalizeVector(vec)
	return vec, nil
}

func TestExchangeContent(t *testing.T) {
	ex := Exchange{Prompt: "hello", Reply: "world"}
	expected := "User: hello\nAssistant: world"
	if got := ex.Content(); got != expected {
		t.Errorf("Content() = %q, want %q", got, expected)
	}
}

func TestNormalizeVector(t *testing.T) {
	v := []float32{3, 4}
	normalizeVector(v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("norm = %f, want 1.0", norm)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-5 || math.Abs(float64(v[1])-0.8) > 1e-5 {
		t.Errorf("got [%f, %f], want [0.6, 0.8]", v[0], v[1])
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	normalizeVector(v)
	for _, x := range v {
		if x != 0 {
			t.Errorf("normalize of zero vector: got %f, want 0", x)
		}
	}
}

func TestAddAndSearch(t *testing.T) {
	store, err := NewVectorStoreInMemory(mockEmbedFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()

	exchanges := []Exchange{
		{Prompt: "how do I compile Go code", Reply: "use go build ./..."},
		{Prompt: "what is the capital of France", Reply: "Paris is the capital of France"},
		{Prompt: "explain goroutines in Go", Reply: "goroutines are lightweight threads managed by the Go runtime"},
	}
	for _, ex := range exchanges {
		if err := store.Add(ctx, ex); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	if got := store.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}

	hits, err := store.Search(ctx, "Go programming", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 || len(hits) > 3 {
		t.Fatalf("Search returned %d hits", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].CombinedScore > hits[i-1].CombinedScore {
			t.Error("hits not sorted by combined score")
		}
	}
}

func TestKeywordScoring(t *testing.T) {
	store, err := NewVectorStoreInMemory(mockEmbedFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	store.Add(ctx, Exchange{Prompt: "kubernetes deployment yaml", Reply: "use kubectl apply -f deployment.yaml"})
	store.Add(ctx, Exchange{Prompt: "hello world program", Reply: "print hello world"})

	hits, err := store.Search(ctx, "kubernetes deployment", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) < 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	for _, h := range hits {
		if h.Exchange.Prompt == "kubernetes deployment yaml" && h.KeywordScore == 0 {
			t.Error("expected non-zero keyword score for matching exchange")
		}
	}
}

func TestTokenize(t *testing.T) {
	words := tokenize("Go is a great language; great for backend!")
	for _, w := range words {
		if len(w) < 3 {
			t.Errorf("tokenize returned word %q shorter than 3 runes", w)
		}
	}
	found := map[string]bool{}
	for _, w := range words {
		found[w] = true
	}
	if !found["great"] || !found["language"] || !found["backend"] {
		t.Errorf("tokenize missing expected words, got %v", words)
	}
	if found["go"] || found["is"] {
		t.Errorf("short words should be dropped, got %v", words)
	}
}

func TestTermOverlap(t *testing.T) {
	terms := queryTerms("kubernetes deployment")
	if score := termOverlap(terms, "kubernetes deployment yaml file"); score != 1.0 {
		t.Errorf("score = %f, want 1.0", score)
	}
	if score := termOverlap(terms, "hello world program"); score != 0.0 {
		t.Errorf("score = %f, want 0.0", score)
	}
	if score := termOverlap(terms, "kubernetes cluster setup"); score != 0.5 {
		t.Errorf("score = %f, want 0.5", score)
	}
	if score := termOverlap(nil, "anything"); score != 0.0 {
		t.Errorf("empty terms score = %f, want 0.0", score)
	}
	// Whole tokens only: a term is not credited for a substring match.
	if score := termOverlap(queryTerms("kube"), "kubernetes cluster"); score != 0.0 {
		t.Errorf("substring matched as a token: score = %f", score)
	}
	// Repeated content words only count once per term.
	if score := termOverlap(terms, "deployment deployment deployment"); score != 0.5 {
		t.Errorf("repeated token over-counted: score = %f", score)
	}
}

func TestDeleteAndClear(t *testing.T) {
	store, err := NewVectorStoreInMemory(mockEmbedFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	store.Add(ctx, Exchange{ID: "ex-1", Prompt: "first", Reply: "response1"})
	store.Add(ctx, Exchange{ID: "ex-2", Prompt: "second", Reply: "response2"})

	if store.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", store.Count())
	}
	if err := store.Delete(ctx, "ex-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("Count() after delete = %d, want 1", store.Count())
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("Count() after clear = %d, want 0", store.Count())
	}
}

func TestListOrdering(t *testing.T) {
	store, err := NewVectorStoreInMemory(mockEmbedFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now()
	store.Add(ctx, Exchange{Prompt: "oldest", Reply: "old reply", At: now.Add(-2 * time.Hour)})
	store.Add(ctx, Exchange{Prompt: "newest", Reply: "new reply", At: now})
	store.Add(ctx, Exchange{Prompt: "middle", Reply: "mid reply", At: now.Add(-time.Hour)})

	listed, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("List returned %d exchanges, want 3", len(listed))
	}
	if listed[0].Prompt != "newest" || listed[2].Prompt != "oldest" {
		t.Errorf("ordering wrong: %v", listed)
	}

	limited, _ := store.List(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("List(1) returned %d", len(limited))
	}
}

func TestPersistentIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewVectorStore(dir, mockEmbedFunc)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Add(context.Background(), Exchange{Prompt: "a", Reply: "b"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	store.Close()

	reopened, err := NewVectorStore(dir, mockEmbedFunc)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if reopened.Count() != 1 {
		t.Errorf("Count() after reopen = %d, want 1", reopened.Count())
	}
}

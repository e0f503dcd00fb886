package food

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

const (
	docApple   = "Food: Apple, Calories: 52 kcal, Protein: 0.3 g, Fat: 0.2 g, Carbohydrates: 14 g, Nutrition Density: 2.1"
	docChicken = "Food: Chicken Breast, Calories: 165 kcal, Protein: 31 g, Fat: 3.6 g, Carbohydrates: 0 g, Nutrition Density: 5.4"
	docRice    = "Food: Brown Rice, Calories: 112 kcal, Protein: 2.6 g, Fat: 0.9 g, Carbohydrates: 23.5 g, Nutrition Density: 3.2"
)

// stubEmbedder maps exact texts to fixed vectors and records every batch it
// receives.
type stubEmbedder struct {
	vecs    map[string][]float32
	batches [][]string
	err     error
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.batches = append(s.batches, texts)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := s.vecs[text]
		if !ok {
			return nil, errors.New("stub has no vector for: " + text)
		}
		out[i] = vec
	}
	return out, nil
}

func newTestRetriever(t *testing.T) (*Retriever, *stubEmbedder) {
	t.Helper()
	s := newTestStore(t)
	if _, err := s.ImportCSV(writeCSV(t, sampleCSV)); err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}

	embedder := &stubEmbedder{vecs: map[string][]float32{
		docApple:   {1, 0, 0},
		docChicken: {0, 1, 0},
		docRice:    {0, 0, 1},
	}}
	return NewRetriever(s, embedder), embedder
}

func TestSearchRanksByCosine(t *testing.T) {
	r, embedder := newTestRetriever(t)
	embedder.vecs["crunchy red fruit"] = []float32{0.9, 0.1, 0}

	got, err := r.Search(context.Background(), "crunchy red fruit", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	want := docApple + "\n" + docChicken
	if got != want {
		t.Errorf("Search = %q, want %q", got, want)
	}
}

func TestSearchBlankQueryReturnsEmptyContext(t *testing.T) {
	r, embedder := newTestRetriever(t)

	for _, query := range []string{"", "   ", "\n\t"} {
		got, err := r.Search(context.Background(), query, 3)
		if err != nil {
			t.Fatalf("Search(%q) failed: %v", query, err)
		}
		if got != "" {
			t.Errorf("Search(%q) = %q, want empty", query, got)
		}
	}
	if len(embedder.batches) != 0 {
		t.Errorf("embedder was called for blank queries: %v", embedder.batches)
	}
}

func TestSearchEmbedsDocumentsOnce(t *testing.T) {
	r, embedder := newTestRetriever(t)
	embedder.vecs["protein"] = []float32{0, 1, 0}

	if _, err := r.Search(context.Background(), "protein", 1); err != nil {
		t.Fatalf("first Search failed: %v", err)
	}
	// One batch for the three documents plus one for the query.
	if len(embedder.batches) != 2 {
		t.Fatalf("batches after first search = %d, want 2", len(embedder.batches))
	}
	if len(embedder.batches[0]) != 3 {
		t.Errorf("document batch size = %d, want 3", len(embedder.batches[0]))
	}

	if _, err := r.Search(context.Background(), "protein", 1); err != nil {
		t.Fatalf("second Search failed: %v", err)
	}
	// Only the query is embedded the second time.
	if len(embedder.batches) != 3 {
		t.Errorf("batches after second search = %d, want 3", len(embedder.batches))
	}
	if len(embedder.batches[2]) != 1 || embedder.batches[2][0] != "protein" {
		t.Errorf("second search batch = %v, want just the query", embedder.batches[2])
	}
}

func TestSearchClampsK(t *testing.T) {
	r, embedder := newTestRetriever(t)
	embedder.vecs["anything"] = []float32{1, 1, 1}

	got, err := r.Search(context.Background(), "anything", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if n := len(strings.Split(got, "\n")); n != 3 {
		t.Errorf("documents returned = %d, want 3", n)
	}

	got, err = r.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Search with k=0 failed: %v", err)
	}
	if got != "" {
		t.Errorf("Search with k=0 = %q, want empty", got)
	}
}

func TestSearchEmbedderErrorPropagates(t *testing.T) {
	r, embedder := newTestRetriever(t)
	embedder.err = errors.New("quota exhausted")

	got, err := r.Search(context.Background(), "apple", 3)
	if err == nil {
		t.Fatal("expected error from failing embedder")
	}
	if got != "" {
		t.Errorf("context on error = %q, want empty", got)
	}
}

func TestSearchEmptyKnowledgeBase(t *testing.T) {
	s := newTestStore(t)
	embedder := &stubEmbedder{vecs: map[string][]float32{}}
	r := NewRetriever(s, embedder)

	got, err := r.Search(context.Background(), "apple", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if got != "" {
		t.Errorf("Search on empty store = %q, want empty", got)
	}
	if len(embedder.batches) != 0 {
		t.Errorf("embedder was called on an empty store: %v", embedder.batches)
	}
}

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.4e38, -1e-30}

	got, err := decodeVector(encodeVector(vec))
	if err != nil {
		t.Fatalf("decodeVector failed: %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("vec[%d] = %v, want %v", i, got[i], vec[i])
		}
	}

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

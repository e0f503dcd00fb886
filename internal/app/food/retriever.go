package food

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"dietitian/internal/pkg/logx"
)

// embedBatchSize bounds how many documents go into a single embedding
// request; the Gemini batch endpoint caps requests at 100 inputs.
const embedBatchSize = 100

// Embedder turns texts into embedding vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever ranks knowledge-base documents against a query by cosine
// similarity. Document embeddings are computed lazily on first use and kept
// in the store, so restarts and re-imports do not re-embed known foods.
type Retriever struct {
	store    *Store
	embedder Embedder
	log      zerolog.Logger
}

func NewRetriever(store *Store, embedder Embedder) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		log:      logx.Logger().With().Str("component", "FoodRetriever").Logger(),
	}
}

// Search returns the documents of the k foods most similar to query, joined
// with newlines. A blank query matches nothing and returns an empty context
// without calling the embedder.
func (r *Retriever) Search(ctx context.Context, query string, k int) (string, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return "", nil
	}

	if err := r.ensureEmbeddings(ctx); err != nil {
		return "", err
	}

	entries, err := r.store.EmbeddedItems()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	vecs, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return "", fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}
	queryVec := vecs[0]

	type scored struct {
		item  Item
		score float64
	}
	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		vec, err := decodeVector(e.Embedding)
		if err != nil {
			return "", fmt.Errorf("food %d has a corrupt embedding: %w", e.Item.ID, err)
		}
		ranked = append(ranked, scored{item: e.Item, score: cosine(queryVec, vec)})
	}

	// Stable sort keeps id order for equal scores, so results are
	// deterministic.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if k > len(ranked) {
		k = len(ranked)
	}

	docs := make([]string, 0, k)
	for _, s := range ranked[:k] {
		docs = append(docs, s.item.Document())
	}
	return strings.Join(docs, "\n"), nil
}

// ensureEmbeddings embeds and stores vectors for any foods that do not have
// one yet.
func (r *Retriever) ensureEmbeddings(ctx context.Context) error {
	pending, err := r.store.PendingEmbedding()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	r.log.Info().Int("count", len(pending)).Msg("Embedding food documents")

	for start := 0; start < len(pending); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.Document()
		}

		vecs, err := r.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed food documents: %w", err)
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(batch))
		}

		for i, item := range batch {
			if err := r.store.SetEmbedding(item.ID, encodeVector(vecs[i])); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeVector packs a vector as little-endian float32 bits for BLOB
// storage.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// cosine computes the cosine similarity of two vectors; mismatched lengths
// and zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

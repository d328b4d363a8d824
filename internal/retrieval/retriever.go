// Package retrieval merges per-collection vector searches into a single
// ranked, deduplicated context for prompt assembly.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/embedding"
	"github.com/carlsnewton/aristotle/internal/knowledge"
	"github.com/carlsnewton/aristotle/internal/models"
	"github.com/carlsnewton/aristotle/pkg/utils"
)

// DefaultTopK is the number of excerpts retained after merging and dedupe.
const DefaultTopK = 5

// perCollectionK is how many candidates each collection contributes before the
// merged cut. Larger than DefaultTopK so one strong collection cannot be
// starved by filtering in another.
const perCollectionK = 8

// Retriever embeds a question once and searches every knowledge base
// collection with it.
type Retriever struct {
	embedder embedding.Embedder
	store    *knowledge.Store
	topK     int
	logger   *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopK overrides the merged result cap.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithLogger sets a logger for retrieval diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever builds a Retriever over the given embedder and store.
func NewRetriever(embedder embedding.Embedder, store *knowledge.Store, opts ...Option) *Retriever {
	r := &Retriever{embedder: embedder, store: store, topK: DefaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the best excerpts for the question across all collections,
// age-filtered, score-descending, deduplicated by normalized text. An empty
// knowledge base yields an empty slice, not an error: the caller answers
// without grounding.
func (r *Retriever) Retrieve(ctx context.Context, question string, studentAge int) ([]*models.RetrievalResult, error) {
	query, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	filter := &knowledge.SearchFilter{Age: studentAge}
	var merged []*models.RetrievalResult
	for _, coll := range models.Collections() {
		results, err := r.store.Search(ctx, coll, query, perCollectionK, filter)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", coll, err)
		}
		merged = append(merged, results...)
	}

	// Stable sort keeps the collection order from Collections() for equal
	// scores, so ties resolve deterministically across restarts.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	deduped := dedupe(merged)
	if len(deduped) > r.topK {
		deduped = deduped[:r.topK]
	}

	if r.logger != nil {
		r.logger.Debug("retrieval complete",
			zap.Int("candidates", len(merged)),
			zap.Int("returned", len(deduped)),
			zap.Int("student_age", studentAge))
	}
	return deduped, nil
}

// SearchExperiments searches only the experiments collection, without age
// filtering. Backs the experiment browse endpoint.
func (r *Retriever) SearchExperiments(ctx context.Context, query string, limit int) ([]*models.RetrievalResult, error) {
	if limit <= 0 {
		limit = DefaultTopK
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.store.Search(ctx, models.CollectionExperiments, vec, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("search experiments: %w", err)
	}
	return results, nil
}

// dedupe drops later results whose normalized text matches an earlier one.
// The input is score-ordered, so the best-scoring duplicate survives.
func dedupe(results []*models.RetrievalResult) []*models.RetrievalResult {
	seen := make(map[string]struct{}, len(results))
	out := results[:0:0]
	for _, res := range results {
		key := utils.NormalizeText(res.Document.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, res)
	}
	return out
}

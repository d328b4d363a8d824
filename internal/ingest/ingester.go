package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/embedding"
	"github.com/carlsnewton/aristotle/internal/knowledge"
	"github.com/carlsnewton/aristotle/internal/models"
)

// Counts reports how many records each collection received.
type Counts struct {
	Experiments int `json:"experiments"`
	QAPairs     int `json:"qa_pairs"`
	Concepts    int `json:"concepts"`
	Passages    int `json:"passages"`
}

// Total sums the per-collection counts.
func (c Counts) Total() int {
	return c.Experiments + c.QAPairs + c.Concepts + c.Passages
}

// Ingester embeds knowledge records and upserts them into the store.
type Ingester struct {
	embedder embedding.Embedder
	store    *knowledge.Store
	logger   *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for ingestion progress.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// NewIngester builds an Ingester.
func NewIngester(embedder embedding.Embedder, store *knowledge.Store, opts ...Option) *Ingester {
	ing := &Ingester{embedder: embedder, store: store}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestFile loads, embeds, and stores one knowledge file, then persists the
// indexes. Re-ingesting a file with stable record IDs replaces the existing
// documents in place.
func (i *Ingester) IngestFile(ctx context.Context, path string) (Counts, error) {
	file, err := LoadFile(path)
	if err != nil {
		return Counts{}, err
	}
	counts, err := i.Ingest(ctx, file)
	if err != nil {
		return counts, fmt.Errorf("ingest %s: %w", path, err)
	}
	if err := i.store.Save(); err != nil {
		return counts, fmt.Errorf("persist indexes: %w", err)
	}
	if i.logger != nil {
		i.logger.Info("knowledge file ingested",
			zap.String("path", path),
			zap.Int("records", counts.Total()))
	}
	return counts, nil
}

// Ingest embeds and stores every record in the file. A bad record aborts the
// batch; records stored before the failure remain (they are upserts, harmless
// to repeat).
func (i *Ingester) Ingest(ctx context.Context, file *KnowledgeFile) (Counts, error) {
	var counts Counts
	for _, r := range file.Experiments {
		if err := i.add(ctx, r); err != nil {
			return counts, err
		}
		counts.Experiments++
	}
	for _, r := range file.QAPairs {
		if err := i.add(ctx, r); err != nil {
			return counts, err
		}
		counts.QAPairs++
	}
	for _, r := range file.Concepts {
		if err := i.add(ctx, r); err != nil {
			return counts, err
		}
		counts.Concepts++
	}
	for _, r := range file.Passages {
		if err := i.add(ctx, r); err != nil {
			return counts, err
		}
		counts.Passages++
	}
	return counts, nil
}

// documenter is any record convertible to its stored document form.
type documenter interface {
	Document() (*models.Document, error)
}

func (i *Ingester) add(ctx context.Context, rec documenter) error {
	doc, err := rec.Document()
	if err != nil {
		return err
	}
	vec, err := i.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embed %s/%s: %w", doc.Collection, doc.ID, err)
	}
	if err := i.store.Upsert(ctx, doc.Collection, doc, vec); err != nil {
		return fmt.Errorf("store %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

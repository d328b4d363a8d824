// Package knowledge persists the curated knowledge base: documents with
// metadata in SQLite, one vector index per collection, and a manifest tying
// the indexes to the embedding model that produced them.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/models"
	"github.com/carlsnewton/aristotle/internal/vector"
)

// ErrModelMismatch is returned at startup when the on-disk indexes were built
// with a different embedding model than the one configured. Mixing models
// would produce silently corrupt similarity scores, so this is fatal: the
// operator must re-ingest with the configured model or restore the old one.
var ErrModelMismatch = errors.New("embedding model does not match persisted index manifest")

// VectorDBName identifies the index technology in stats responses.
const VectorDBName = "flat (local)"

// SearchFilter restricts a search to documents matching the predicate.
// Zero values disable the corresponding check.
type SearchFilter struct {
	// Age keeps documents whose [age_min, age_max] range contains it.
	Age int
	// Categories keeps documents whose category/topic is in the set.
	Categories []string
}

// Matches reports whether doc passes the filter.
func (f *SearchFilter) Matches(doc *models.Document) bool {
	if f == nil {
		return true
	}
	if f.Age > 0 {
		min, max := doc.Metadata.AgeRange()
		if f.Age < min || f.Age > max {
			return false
		}
	}
	if len(f.Categories) > 0 {
		found := false
		cat := doc.Metadata.Category()
		for _, c := range f.Categories {
			if c == cat {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Store is the knowledge base: named collections of documents, each paired
// with an embedding in that collection's vector index.
//
// Reads (Search, Get, Stats) are shared; Upsert takes the writer lock, so
// ingestion is serialized against in-flight searches. The index is read-mostly:
// mutation only happens during explicit ingestion, never on the request path.
type Store struct {
	db      *docDB
	indexes map[models.Collection]vector.Index
	docs    map[models.Collection]map[string]*models.Document
	modelID string
	dims    int
	dir     string
	logger  *zap.Logger
	mu      sync.RWMutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for startup and ingestion events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore opens or creates the knowledge base at dbPath, with vector indexes
// and the model manifest under indexDir. The persisted manifest must name the
// same embedding model and dimension as the arguments; a mismatch fails fast
// (ErrModelMismatch) rather than serving corrupt similarity scores. A corrupt
// index file also fails construction: index problems are startup-fatal, never
// discovered per-request.
func NewStore(dbPath, indexDir, modelID string, dims int, opts ...StoreOption) (*Store, error) {
	db, err := openDocDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	s := &Store{
		db:      db,
		indexes: make(map[models.Collection]vector.Index),
		docs:    make(map[models.Collection]map[string]*models.Document),
		modelID: modelID,
		dims:    dims,
		dir:     indexDir,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.checkManifest(); err != nil {
		_ = db.Close()
		return nil, err
	}

	for _, coll := range models.Collections() {
		idx, err := vector.NewFlatIndex(dims)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if path := s.indexPath(coll); path != "" {
			if err := idx.Load(path); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("load %s index: %w", coll, err)
			}
		}
		s.indexes[coll] = idx

		docs, err := db.listDocuments(context.Background(), coll)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("load %s documents: %w", coll, err)
		}
		byID := make(map[string]*models.Document, len(docs))
		for _, d := range docs {
			byID[d.ID] = d
		}
		s.docs[coll] = byID

		if s.logger != nil {
			s.logger.Debug("collection loaded",
				zap.String("collection", string(coll)),
				zap.Int("documents", len(byID)),
				zap.Int("vectors", idx.Size()))
		}
	}
	return s, nil
}

// Upsert stores doc and its embedding in the named collection, replacing any
// previous version with the same ID. Ingestion-only: callers must not run it
// concurrently with themselves (the writer lock serializes it against reads).
func (s *Store) Upsert(ctx context.Context, coll models.Collection, doc *models.Document, vec []float32) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	if len(vec) != s.dims {
		return fmt.Errorf("embedding dimension mismatch: got %d, store expects %d", len(vec), s.dims)
	}
	idx, ok := s.indexes[coll]
	if !ok {
		return fmt.Errorf("unknown collection %q", coll)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *doc
	stored.Collection = coll
	stored.UpdatedAt = now
	if existing, ok := s.docs[coll][doc.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}

	if err := s.db.upsertDocument(ctx, &stored); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	if err := idx.Upsert(ctx, doc.ID, vec); err != nil {
		return fmt.Errorf("index embedding: %w", err)
	}
	s.docs[coll][doc.ID] = &stored
	return nil
}

// Remove deletes a document and its embedding from coll. Removing an absent
// ID is a no-op.
func (s *Store) Remove(ctx context.Context, coll models.Collection, id string) error {
	idx, ok := s.indexes[coll]
	if !ok {
		return fmt.Errorf("unknown collection %q", coll)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.deleteDocument(ctx, coll, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := idx.Remove(ctx, []string{id}); err != nil {
		return fmt.Errorf("remove embedding: %w", err)
	}
	delete(s.docs[coll], id)
	return nil
}

// Search returns the k nearest documents in coll by cosine similarity,
// filtered before truncation and ordered score-descending with ties broken by
// insertion order.
func (s *Store) Search(ctx context.Context, coll models.Collection, query []float32, k int, filter *SearchFilter) ([]*models.RetrievalResult, error) {
	idx, ok := s.indexes[coll]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", coll)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.docs[coll]
	hits, err := idx.Search(ctx, query, k, func(id string) bool {
		doc, ok := byID[id]
		return ok && filter.Matches(doc)
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", coll, err)
	}

	results := make([]*models.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		doc := byID[h.ID]
		results = append(results, &models.RetrievalResult{
			Document:   doc,
			Score:      h.Score,
			Collection: coll,
		})
	}
	return results, nil
}

// Get returns a document by collection and ID, or nil when absent.
func (s *Store) Get(coll models.Collection, id string) *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[coll][id]
}

// Count returns the number of documents in coll.
func (s *Store) Count(coll models.Collection) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs[coll]))
}

// Stats describes the knowledge base for health and stats endpoints.
// TotalCost is filled in by the caller from the cost tracker.
func (s *Store) Stats() models.KnowledgeBaseStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.indexes))
	for _, coll := range models.Collections() {
		names = append(names, string(coll))
	}
	return models.KnowledgeBaseStats{
		TotalExperiments:   int64(len(s.docs[models.CollectionExperiments])),
		TotalQAPairs:       int64(len(s.docs[models.CollectionQAPairs])),
		TotalConcepts:      int64(len(s.docs[models.CollectionConcepts])),
		TotalPassages:      int64(len(s.docs[models.CollectionPassages])),
		Collections:        names,
		EmbeddingModel:     s.modelID,
		EmbeddingDimension: s.dims,
		VectorDB:           VectorDBName,
	}
}

// ModelID returns the embedding model the store's indexes were built with.
func (s *Store) ModelID() string {
	return s.modelID
}

// Save persists every collection's vector index and the model manifest.
// Called after ingestion and on shutdown.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dir == "" {
		return nil
	}
	for coll, idx := range s.indexes {
		if err := idx.Save(s.indexPath(coll)); err != nil {
			return fmt.Errorf("save %s index: %w", coll, err)
		}
	}
	return s.writeManifest()
}

// DiskUsageBytes returns the bytes on disk used by the database and indexes.
func (s *Store) DiskUsageBytes() (int64, error) {
	return diskUsageBytes(s.db.path, s.dir)
}

// Close saves nothing; callers decide when to Save. Closes the database and indexes.
func (s *Store) Close() error {
	for _, idx := range s.indexes {
		_ = idx.Close()
	}
	return s.db.Close()
}

func (s *Store) indexPath(coll models.Collection) string {
	if s.dir == "" {
		return ""
	}
	return filepath.Join(s.dir, string(coll)+".vec")
}

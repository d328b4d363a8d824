package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/carlsnewton/aristotle/internal/models"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "kb.db"), filepath.Join(dir, "index"), "test-model", 3)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func experimentDoc(id, name, category string, ageMin, ageMax int) *models.Document {
	return &models.Document{
		ID:   id,
		Text: name + " instructions",
		Metadata: models.Metadata{Experiment: &models.ExperimentFields{
			Name: name, Category: category, AgeMin: ageMin, AgeMax: ageMax, WowFactor: 8,
		}},
	}
}

func TestStoreUpsertAndSearch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	docs := []struct {
		doc *models.Document
		vec []float32
	}{
		{experimentDoc("exp-1", "Slime", "chemistry", 6, 12), []float32{1, 0, 0}},
		{experimentDoc("exp-2", "Volcano", "chemistry", 5, 10), []float32{0, 1, 0}},
		{experimentDoc("exp-3", "Static Balloon", "physics", 8, 14), []float32{0.7071, 0.7071, 0}},
	}
	for _, d := range docs {
		if err := s.Upsert(ctx, models.CollectionExperiments, d.doc, d.vec); err != nil {
			t.Fatalf("Upsert %s: %v", d.doc.ID, err)
		}
	}

	results, err := s.Search(ctx, models.CollectionExperiments, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Document.ID != "exp-1" {
		t.Errorf("top result = %s, want exp-1", results[0].Document.ID)
	}
	if results[1].Document.ID != "exp-3" {
		t.Errorf("second result = %s, want exp-3", results[1].Document.ID)
	}
	if results[0].Collection != models.CollectionExperiments {
		t.Errorf("result collection = %s", results[0].Collection)
	}
}

func TestStoreSearchAgeFilter(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, models.CollectionExperiments,
		experimentDoc("young", "Bubbles", "chemistry", 5, 7), []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, models.CollectionExperiments,
		experimentDoc("older", "Electrolysis", "chemistry", 11, 14), []float32{0.99, 0.141, 0}); err != nil {
		t.Fatal(err)
	}

	// The age filter applies before truncation, so the lower-scoring eligible
	// document is still returned.
	results, err := s.Search(ctx, models.CollectionExperiments, []float32{1, 0, 0}, 1,
		&SearchFilter{Age: 12})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "older" {
		t.Fatalf("got %v, want [older]", results)
	}
}

func TestStoreSearchCategoryFilter(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, models.CollectionExperiments,
		experimentDoc("chem", "Slime", "chemistry", 5, 14), []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, models.CollectionExperiments,
		experimentDoc("phys", "Magnets", "physics", 5, 14), []float32{0.9, 0.436, 0}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, models.CollectionExperiments, []float32{1, 0, 0}, 5,
		&SearchFilter{Categories: []string{"physics"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Document.ID != "phys" {
		t.Fatalf("got %v, want [phys]", results)
	}
}

func TestStoreUpsertReplacesAndKeepsCreatedAt(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	doc := experimentDoc("exp-1", "Slime", "chemistry", 6, 12)
	if err := s.Upsert(ctx, models.CollectionExperiments, doc, []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	created := s.Get(models.CollectionExperiments, "exp-1").CreatedAt

	doc2 := experimentDoc("exp-1", "Glow Slime", "chemistry", 6, 12)
	if err := s.Upsert(ctx, models.CollectionExperiments, doc2, []float32{0, 1, 0}); err != nil {
		t.Fatal(err)
	}

	got := s.Get(models.CollectionExperiments, "exp-1")
	if got.Metadata.Experiment.Name != "Glow Slime" {
		t.Errorf("name = %q, want replacement", got.Metadata.Experiment.Name)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on upsert: %v != %v", got.CreatedAt, created)
	}
	if s.Count(models.CollectionExperiments) != 1 {
		t.Errorf("count = %d, want 1", s.Count(models.CollectionExperiments))
	}
}

func TestStorePersistence(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "kb.db")
	idxDir := filepath.Join(dir, "index")
	ctx := context.Background()

	s, err := NewStore(dbPath, idxDir, "test-model", 3)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Upsert(ctx, models.CollectionExperiments,
		experimentDoc("exp-1", "Slime", "chemistry", 6, 12), []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore(dbPath, idxDir, "test-model", 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Count(models.CollectionExperiments) != 1 {
		t.Fatalf("count after reopen = %d, want 1", reopened.Count(models.CollectionExperiments))
	}
	results, err := reopened.Search(ctx, models.CollectionExperiments, []float32{1, 0, 0}, 1, nil)
	if err != nil {
		t.Fatalf("Search after reopen: %v", err)
	}
	if len(results) != 1 || results[0].Document.Metadata.Experiment.Name != "Slime" {
		t.Fatalf("unexpected results after reopen: %v", results)
	}
}

func TestStoreModelMismatch(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "kb.db")
	idxDir := filepath.Join(dir, "index")

	s, err := NewStore(dbPath, idxDir, "model-a", 3)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	if _, err := NewStore(dbPath, idxDir, "model-b", 3); err == nil {
		t.Fatal("expected model mismatch error")
	} else if !errors.Is(err, ErrModelMismatch) {
		t.Fatalf("got %v, want ErrModelMismatch", err)
	}
}

func TestStoreRemove(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, models.CollectionExperiments,
		experimentDoc("exp-1", "Slime", "chemistry", 6, 12), []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, models.CollectionExperiments, "exp-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Count(models.CollectionExperiments) != 0 {
		t.Errorf("count = %d after remove", s.Count(models.CollectionExperiments))
	}
	if err := s.Remove(ctx, models.CollectionExperiments, "exp-1"); err != nil {
		t.Errorf("removing absent id: %v", err)
	}
}

func TestStoreStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, models.CollectionQAPairs, &models.Document{
		ID:   "qa-1",
		Text: "Q: Why is the sky blue? A: Sunlight scatters.",
		Metadata: models.Metadata{QAPair: &models.QAPairFields{
			Question: "Why is the sky blue?", Answer: "Sunlight scatters.",
			Topic: "physics", AgeMin: 6, AgeMax: 12,
		}},
	}, []float32{0, 0, 1}); err != nil {
		t.Fatal(err)
	}

	stats := s.Stats()
	if stats.TotalQAPairs != 1 || stats.TotalExperiments != 0 {
		t.Errorf("stats counts wrong: %+v", stats)
	}
	if stats.EmbeddingModel != "test-model" || stats.EmbeddingDimension != 3 {
		t.Errorf("stats model wrong: %+v", stats)
	}
	if len(stats.Collections) != 4 {
		t.Errorf("collections = %v", stats.Collections)
	}
}

func TestStoreDimensionMismatch(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Upsert(context.Background(), models.CollectionExperiments,
		experimentDoc("exp-1", "Slime", "chemistry", 6, 12), []float32{1, 0})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

// Package ingest loads curated knowledge records from JSON and XLSX files,
// embeds them, and upserts them into the knowledge store.
package ingest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carlsnewton/aristotle/internal/models"
)

// ExperimentRecord is one curated experiment as authored in knowledge files.
type ExperimentRecord struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AgeMin      int    `json:"age_min,omitempty"`
	AgeMax      int    `json:"age_max,omitempty"`
	WowFactor   int    `json:"wow_factor,omitempty"`
	SafetyNotes string `json:"safety_notes,omitempty"`
}

// QAPairRecord is one curated question/answer pair.
type QAPairRecord struct {
	ID           string `json:"id,omitempty"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	Topic        string `json:"topic,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	AgeMin       int    `json:"age_min,omitempty"`
	AgeMax       int    `json:"age_max,omitempty"`
	Experiment   string `json:"experiment,omitempty"`
	ExperimentID string `json:"experiment_id,omitempty"`
}

// ConceptRecord is one curated science concept.
type ConceptRecord struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Topic       string `json:"topic,omitempty"`
	AgeMin      int    `json:"age_min,omitempty"`
	AgeMax      int    `json:"age_max,omitempty"`
}

// PassageRecord is one free-form explanatory passage.
type PassageRecord struct {
	ID         string `json:"id,omitempty"`
	Text       string `json:"text"`
	Topic      string `json:"topic,omitempty"`
	Experiment string `json:"experiment,omitempty"`
	AgeMin     int    `json:"age_min,omitempty"`
	AgeMax     int    `json:"age_max,omitempty"`
}

// KnowledgeFile is the curated knowledge file layout: one optional list per
// collection.
type KnowledgeFile struct {
	Experiments []ExperimentRecord `json:"experiments,omitempty"`
	QAPairs     []QAPairRecord     `json:"qa_pairs,omitempty"`
	Concepts    []ConceptRecord    `json:"concepts,omitempty"`
	Passages    []PassageRecord    `json:"passages,omitempty"`
}

// Total counts the records across all collections.
func (f *KnowledgeFile) Total() int {
	return len(f.Experiments) + len(f.QAPairs) + len(f.Concepts) + len(f.Passages)
}

func defaultAges(min, max int) (int, int) {
	if min == 0 {
		min = models.DefaultAgeMin
	}
	if max == 0 {
		max = models.DefaultAgeMax
	}
	return min, max
}

func orUUID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// Document converts the record to its stored form. The searchable text is
// "Name: description" so the name participates in similarity.
func (r ExperimentRecord) Document() (*models.Document, error) {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Description) == "" {
		return nil, fmt.Errorf("experiment %q: name and description are required", r.Name)
	}
	min, max := defaultAges(r.AgeMin, r.AgeMax)
	return &models.Document{
		Collection: models.CollectionExperiments,
		ID:         orUUID(r.ID),
		Text:       r.Name + ": " + r.Description,
		Metadata: models.Metadata{Experiment: &models.ExperimentFields{
			Name:        r.Name,
			Category:    r.Category,
			AgeMin:      min,
			AgeMax:      max,
			WowFactor:   r.WowFactor,
			SafetyNotes: r.SafetyNotes,
		}},
	}, nil
}

// Document converts the record to its stored form. Question and answer are
// embedded together so either side of the pair can match a student question.
func (r QAPairRecord) Document() (*models.Document, error) {
	if strings.TrimSpace(r.Question) == "" || strings.TrimSpace(r.Answer) == "" {
		return nil, fmt.Errorf("qa pair %q: question and answer are required", r.Question)
	}
	min, max := defaultAges(r.AgeMin, r.AgeMax)
	return &models.Document{
		Collection: models.CollectionQAPairs,
		ID:         orUUID(r.ID),
		Text:       "Q: " + r.Question + "\nA: " + r.Answer,
		Metadata: models.Metadata{QAPair: &models.QAPairFields{
			Question:     r.Question,
			Answer:       r.Answer,
			Topic:        r.Topic,
			Difficulty:   r.Difficulty,
			AgeMin:       min,
			AgeMax:       max,
			Experiment:   r.Experiment,
			ExperimentID: r.ExperimentID,
		}},
	}, nil
}

// Document converts the record to its stored form.
func (r ConceptRecord) Document() (*models.Document, error) {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Description) == "" {
		return nil, fmt.Errorf("concept %q: name and description are required", r.Name)
	}
	min, max := defaultAges(r.AgeMin, r.AgeMax)
	return &models.Document{
		Collection: models.CollectionConcepts,
		ID:         orUUID(r.ID),
		Text:       r.Name + ": " + r.Description,
		Metadata: models.Metadata{Concept: &models.ConceptFields{
			Name:   r.Name,
			Topic:  r.Topic,
			AgeMin: min,
			AgeMax: max,
		}},
	}, nil
}

// Document converts the record to its stored form.
func (r PassageRecord) Document() (*models.Document, error) {
	if strings.TrimSpace(r.Text) == "" {
		return nil, fmt.Errorf("passage: text is required")
	}
	min, max := defaultAges(r.AgeMin, r.AgeMax)
	return &models.Document{
		Collection: models.CollectionPassages,
		ID:         orUUID(r.ID),
		Text:       r.Text,
		Metadata: models.Metadata{Passage: &models.PassageFields{
			Topic:      r.Topic,
			Experiment: r.Experiment,
			AgeMin:     min,
			AgeMax:     max,
		}},
	}, nil
}

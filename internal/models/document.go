// Package models defines core data structures for documents, retrieval, and the API contract.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Collection is a named partition of the knowledge base. All collections share
// one embedding model; each has an independent vector index.
type Collection string

const (
	CollectionExperiments Collection = "experiments"
	CollectionQAPairs     Collection = "qa_pairs"
	CollectionConcepts    Collection = "concepts"
	CollectionPassages    Collection = "passages"
)

// Collections lists all knowledge base collections in a fixed order.
func Collections() []Collection {
	return []Collection{CollectionExperiments, CollectionQAPairs, CollectionConcepts, CollectionPassages}
}

// DefaultAgeMin and DefaultAgeMax are applied when an ingested record omits an age range.
const (
	DefaultAgeMin = 5
	DefaultAgeMax = 14
)

// Document is a stored knowledge base entry. Immutable once stored except for
// explicit re-ingestion (upsert by ID).
type Document struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Metadata   Metadata   `json:"metadata"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ExperimentFields is the metadata variant for the experiments collection.
type ExperimentFields struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	AgeMin      int    `json:"age_min"`
	AgeMax      int    `json:"age_max"`
	WowFactor   int    `json:"wow_factor"`
	SafetyNotes string `json:"safety_notes,omitempty"`
}

// QAPairFields is the metadata variant for the qa_pairs collection.
type QAPairFields struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	Topic        string `json:"topic,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	AgeMin       int    `json:"age_min"`
	AgeMax       int    `json:"age_max"`
	Experiment   string `json:"experiment,omitempty"`
	ExperimentID string `json:"experiment_id,omitempty"`
}

// ConceptFields is the metadata variant for the concepts collection.
type ConceptFields struct {
	Name   string `json:"name"`
	Topic  string `json:"topic,omitempty"`
	AgeMin int    `json:"age_min"`
	AgeMax int    `json:"age_max"`
}

// PassageFields is the metadata variant for the passages collection.
type PassageFields struct {
	Topic      string `json:"topic,omitempty"`
	Experiment string `json:"experiment,omitempty"`
	AgeMin     int    `json:"age_min"`
	AgeMax     int    `json:"age_max"`
}

// Metadata is a tagged union keyed by collection: exactly one variant is set.
// Serialized as a JSON object with a "kind" discriminator.
type Metadata struct {
	Experiment *ExperimentFields
	QAPair     *QAPairFields
	Concept    *ConceptFields
	Passage    *PassageFields
}

// Kind returns the collection the metadata variant belongs to, or "" when unset.
func (m Metadata) Kind() Collection {
	switch {
	case m.Experiment != nil:
		return CollectionExperiments
	case m.QAPair != nil:
		return CollectionQAPairs
	case m.Concept != nil:
		return CollectionConcepts
	case m.Passage != nil:
		return CollectionPassages
	}
	return ""
}

// AgeRange returns the inclusive age bounds for the document. Unset variants
// default to the full curated range.
func (m Metadata) AgeRange() (min, max int) {
	switch {
	case m.Experiment != nil:
		return m.Experiment.AgeMin, m.Experiment.AgeMax
	case m.QAPair != nil:
		return m.QAPair.AgeMin, m.QAPair.AgeMax
	case m.Concept != nil:
		return m.Concept.AgeMin, m.Concept.AgeMax
	case m.Passage != nil:
		return m.Passage.AgeMin, m.Passage.AgeMax
	}
	return DefaultAgeMin, DefaultAgeMax
}

// Category returns the topic or category label for the document, if any.
func (m Metadata) Category() string {
	switch {
	case m.Experiment != nil:
		return m.Experiment.Category
	case m.QAPair != nil:
		return m.QAPair.Topic
	case m.Concept != nil:
		return m.Concept.Topic
	case m.Passage != nil:
		return m.Passage.Topic
	}
	return ""
}

type metadataEnvelope struct {
	Kind       Collection        `json:"kind"`
	Experiment *ExperimentFields `json:"experiment,omitempty"`
	QAPair     *QAPairFields     `json:"qa_pair,omitempty"`
	Concept    *ConceptFields    `json:"concept,omitempty"`
	Passage    *PassageFields    `json:"passage,omitempty"`
}

// MarshalJSON encodes the set variant with a kind discriminator.
func (m Metadata) MarshalJSON() ([]byte, error) {
	env := metadataEnvelope{
		Kind:       m.Kind(),
		Experiment: m.Experiment,
		QAPair:     m.QAPair,
		Concept:    m.Concept,
		Passage:    m.Passage,
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the variant named by the kind discriminator.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var env metadataEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*m = Metadata{
		Experiment: env.Experiment,
		QAPair:     env.QAPair,
		Concept:    env.Concept,
		Passage:    env.Passage,
	}
	if env.Kind != "" && m.Kind() != env.Kind {
		return fmt.Errorf("metadata kind %q does not match populated variant %q", env.Kind, m.Kind())
	}
	return nil
}

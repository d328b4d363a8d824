package models

import "errors"

// ErrEmptyQuestion is returned when a request carries no question text.
// It surfaces to API callers as a client error; nothing about it is retryable.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// DefaultStudentAge is used when a request does not state the student's age.
const DefaultStudentAge = 10

// QuestionRequest is the /ask request body. Field names are the API contract.
type QuestionRequest struct {
	Question         string         `json:"question"`
	StudentAge       int            `json:"student_age,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
	UseKnowledgeBase *bool          `json:"use_knowledge_base,omitempty"`
}

// Validate checks the request and fills defaults: age defaults to
// DefaultStudentAge, knowledge base use defaults to true.
// Returns ErrEmptyQuestion when the question is empty or whitespace-only.
func (r *QuestionRequest) Validate() error {
	if !hasContent(r.Question) {
		return ErrEmptyQuestion
	}
	if r.StudentAge <= 0 {
		r.StudentAge = DefaultStudentAge
	}
	if r.UseKnowledgeBase == nil {
		t := true
		r.UseKnowledgeBase = &t
	}
	return nil
}

func hasContent(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// QuestionResponse is the /ask response body.
type QuestionResponse struct {
	Answer     string   `json:"answer"`
	Success    bool     `json:"success"`
	Cost       float64  `json:"cost,omitempty"`
	TokensUsed int64    `json:"tokens_used,omitempty"`
	Sources    []Source `json:"sources,omitempty"`
}

// KnowledgeBaseStats describes the knowledge base for /health and /stats.
type KnowledgeBaseStats struct {
	TotalExperiments   int64    `json:"total_experiments"`
	TotalQAPairs       int64    `json:"total_qa_pairs"`
	TotalConcepts      int64    `json:"total_concepts"`
	TotalPassages      int64    `json:"total_passages"`
	Collections        []string `json:"collections"`
	EmbeddingModel     string   `json:"embedding_model"`
	EmbeddingDimension int      `json:"embedding_dimension"`
	VectorDB           string   `json:"vector_db"`
	TotalCost          string   `json:"total_cost"`
}

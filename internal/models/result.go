package models

// RetrievalResult is a single search hit: document reference, similarity score,
// and the collection it came from. Ordering is derived at query time, not stored.
type RetrievalResult struct {
	Document   *Document  `json:"document"`
	Score      float64    `json:"score"`
	Collection Collection `json:"collection"`
}

// Source is the user-visible citation for a retrieved document. Only the
// fields relevant to the originating collection are populated.
type Source struct {
	Name         string `json:"name,omitempty"`
	Category     string `json:"category,omitempty"`
	AgeRange     string `json:"age_range,omitempty"`
	WowFactor    int    `json:"wow_factor,omitempty"`
	Question     string `json:"question,omitempty"`
	Experiment   string `json:"experiment,omitempty"`
	ExperimentID string `json:"experiment_id,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Collection   string `json:"collection,omitempty"`
}

// GenerationResult is the outcome of one answer generation, including token
// usage and computed monetary cost for the provider that produced it.
type GenerationResult struct {
	Answer           string  `json:"answer"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TokensUsed       int64   `json:"tokens_used"`
	Cost             float64 `json:"cost"`
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	Success          bool    `json:"success"`
}

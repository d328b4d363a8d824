// Package tutor orchestrates the answer pipeline: validate, retrieve,
// assemble, generate, account.
package tutor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/cost"
	"github.com/carlsnewton/aristotle/internal/generation"
	"github.com/carlsnewton/aristotle/internal/models"
	"github.com/carlsnewton/aristotle/internal/prompt"
	"github.com/carlsnewton/aristotle/internal/retrieval"
)

// Tutor answers student questions grounded in the knowledge base.
type Tutor struct {
	retriever *retrieval.Retriever
	assembler *prompt.Assembler
	generator *generation.Generator
	tracker   *cost.Tracker
	logger    *zap.Logger
}

// Option configures a Tutor.
type Option func(*Tutor)

// WithLogger sets a logger for the answer pipeline.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tutor) { t.logger = l }
}

// New builds a Tutor from its pipeline stages.
func New(retriever *retrieval.Retriever, assembler *prompt.Assembler, generator *generation.Generator, tracker *cost.Tracker, opts ...Option) *Tutor {
	t := &Tutor{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		tracker:   tracker,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Provider returns the primary generation provider, for capability reporting.
func (t *Tutor) Provider() generation.Provider {
	return t.generator.Primary()
}

// Answer runs the full pipeline for one question. Validation failures return
// models.ErrEmptyQuestion; retrieval and embedding failures return wrapped
// errors; generation failures do not error, they yield a Success=false
// response with an apology answer. Sources cite only the excerpts that
// actually made it into the prompt.
func (t *Tutor) Answer(ctx context.Context, req *models.QuestionRequest) (*models.QuestionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var results []*models.RetrievalResult
	if *req.UseKnowledgeBase {
		var err error
		results, err = t.retriever.Retrieve(ctx, req.Question, req.StudentAge)
		if err != nil {
			return nil, fmt.Errorf("retrieve knowledge: %w", err)
		}
	}

	userPrompt, included := t.assembler.Assemble(req.Question, req.StudentAge, req.Context, results)

	gen, err := t.generator.Generate(ctx, prompt.Personality, userPrompt, req.StudentAge)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	resp := &models.QuestionResponse{
		Answer:  gen.Answer,
		Success: gen.Success,
	}
	if gen.Success {
		resp.Cost = gen.Cost
		resp.TokensUsed = gen.TokensUsed
		resp.Sources = sourcesFor(results, included)
		t.tracker.Record(gen.Provider, gen.TokensUsed, gen.Cost)
	}

	if t.logger != nil {
		t.logger.Info("question answered",
			zap.Int("student_age", req.StudentAge),
			zap.Int("sources", len(resp.Sources)),
			zap.Bool("success", resp.Success),
			zap.String("provider", gen.Provider),
			zap.Float64("cost", gen.Cost))
	}
	return resp, nil
}

// Usage exposes accumulated generation cost for the stats surface.
func (t *Tutor) Usage() cost.UsageStats {
	return t.tracker.Snapshot()
}

// sourcesFor maps prompt-included retrieval results to user-visible citations.
// This is the only place documents become Sources.
func sourcesFor(results []*models.RetrievalResult, included []int) []models.Source {
	if len(included) == 0 {
		return nil
	}
	sources := make([]models.Source, 0, len(included))
	for _, i := range included {
		sources = append(sources, sourceFor(results[i]))
	}
	return sources
}

func sourceFor(res *models.RetrievalResult) models.Source {
	src := models.Source{Collection: string(res.Collection)}
	m := res.Document.Metadata
	switch {
	case m.Experiment != nil:
		src.Name = m.Experiment.Name
		src.Category = m.Experiment.Category
		src.AgeRange = formatAgeRange(m.Experiment.AgeMin, m.Experiment.AgeMax)
		src.WowFactor = m.Experiment.WowFactor
	case m.QAPair != nil:
		src.Question = m.QAPair.Question
		src.Topic = m.QAPair.Topic
		src.Experiment = m.QAPair.Experiment
		src.ExperimentID = m.QAPair.ExperimentID
	case m.Concept != nil:
		src.Name = m.Concept.Name
		src.Topic = m.Concept.Topic
	case m.Passage != nil:
		src.Topic = m.Passage.Topic
		src.Experiment = m.Passage.Experiment
	}
	return src
}

func formatAgeRange(min, max int) string {
	if min == 0 && max == 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d", min, max)
}

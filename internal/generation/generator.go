package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/models"
	"github.com/carlsnewton/aristotle/internal/prompt"
)

const (
	// DefaultAttemptTimeout bounds a single provider call.
	DefaultAttemptTimeout = 30 * time.Second
	// DefaultRetryBackoff is the pause before retrying a failed provider once.
	DefaultRetryBackoff = 500 * time.Millisecond

	attemptsPerProvider = 2
)

// Generator tries providers in order. Each provider gets two attempts with a
// short backoff between them; when every provider is exhausted the student
// receives a fixed age-appropriate apology instead of an error.
type Generator struct {
	providers      []Provider
	attemptTimeout time.Duration
	retryBackoff   time.Duration
	logger         *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithAttemptTimeout overrides the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.attemptTimeout = d
		}
	}
}

// WithRetryBackoff overrides the pause between attempts on one provider.
func WithRetryBackoff(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d >= 0 {
			g.retryBackoff = d
		}
	}
}

// WithGeneratorLogger sets a logger for attempt failures and fallovers.
func WithGeneratorLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator builds a Generator over providers in fallback order. At least
// one provider is required.
func NewGenerator(providers []Provider, opts ...GeneratorOption) (*Generator, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	g := &Generator{
		providers:      providers,
		attemptTimeout: DefaultAttemptTimeout,
		retryBackoff:   DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Primary returns the first provider in the fallback order.
func (g *Generator) Primary() Provider {
	return g.providers[0]
}

// Generate produces an answer for the assembled prompt. It returns an error
// only when the caller's context ends; provider failures degrade to a
// Success=false result carrying the apology for the student's age bucket, so
// raw provider errors never reach users.
func (g *Generator) Generate(ctx context.Context, system, user string, studentAge int) (*models.GenerationResult, error) {
	var lastErr error
	for _, p := range g.providers {
		for attempt := 0; attempt < attemptsPerProvider; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(g.retryBackoff):
				}
			}

			comp, err := g.attempt(ctx, p, system, user)
			if err == nil {
				return &models.GenerationResult{
					Answer:           comp.Text,
					PromptTokens:     comp.PromptTokens,
					CompletionTokens: comp.CompletionTokens,
					TokensUsed:       comp.PromptTokens + comp.CompletionTokens,
					Cost:             Cost(p.Name(), comp.PromptTokens, comp.CompletionTokens),
					Provider:         p.Name(),
					Model:            p.Model(),
					Success:          true,
				}, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if g.logger != nil {
				g.logger.Warn("generation attempt failed",
					zap.String("provider", p.Name()),
					zap.Int("attempt", attempt+1),
					zap.Error(err))
			}
		}
	}

	if g.logger != nil {
		g.logger.Error("generation failed",
			zap.Error(fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)))
	}
	return &models.GenerationResult{
		Answer:  prompt.Apology(studentAge),
		Success: false,
	}, nil
}

func (g *Generator) attempt(ctx context.Context, p Provider, system, user string) (*Completion, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
	defer cancel()
	return p.Generate(attemptCtx, system, user)
}

// Package cli formats command line output for ask, search, and status.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/carlsnewton/aristotle/internal/cost"
	"github.com/carlsnewton/aristotle/internal/models"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	answerColor = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
	warnColor   = color.New(color.FgYellow)
)

// PrintAnswer renders an /ask response for the terminal.
func PrintAnswer(w io.Writer, resp *models.QuestionResponse) {
	headerColor.Fprintln(w, "AI-stotle:")
	if resp.Success {
		answerColor.Fprintln(w, resp.Answer)
	} else {
		warnColor.Fprintln(w, resp.Answer)
	}
	if resp.Success {
		dimColor.Fprintf(w, "\ntokens: %d  cost: $%.6f\n", resp.TokensUsed, resp.Cost)
	}
	if len(resp.Sources) > 0 {
		dimColor.Fprintln(w, "sources:")
		for _, src := range resp.Sources {
			dimColor.Fprintf(w, "  - %s\n", describeSource(src))
		}
	}
}

func describeSource(src models.Source) string {
	var parts []string
	switch {
	case src.Name != "":
		parts = append(parts, src.Name)
	case src.Question != "":
		parts = append(parts, src.Question)
	case src.Topic != "":
		parts = append(parts, src.Topic)
	}
	if src.Category != "" {
		parts = append(parts, src.Category)
	}
	if src.AgeRange != "" {
		parts = append(parts, "ages "+src.AgeRange)
	}
	if src.Collection != "" {
		parts = append(parts, "["+src.Collection+"]")
	}
	return strings.Join(parts, " ")
}

// PrintExperiments renders experiment search hits.
func PrintExperiments(w io.Writer, results []*models.RetrievalResult) {
	if len(results) == 0 {
		dimColor.Fprintln(w, "no matching experiments")
		return
	}
	headerColor.Fprintln(w, "Experiments:")
	for i, res := range results {
		exp := res.Document.Metadata.Experiment
		if exp == nil {
			continue
		}
		fmt.Fprintf(w, "%2d. %s", i+1, exp.Name)
		dimColor.Fprintf(w, "  (%s, ages %d-%d, wow %d/10, score %.3f)\n",
			exp.Category, exp.AgeMin, exp.AgeMax, exp.WowFactor, res.Score)
		if exp.SafetyNotes != "" {
			warnColor.Fprintf(w, "    safety: %s\n", exp.SafetyNotes)
		}
	}
}

// PrintStats renders knowledge base and usage stats.
func PrintStats(w io.Writer, stats models.KnowledgeBaseStats, usage cost.UsageStats, diskBytes int64) {
	headerColor.Fprintln(w, "Knowledge base:")
	fmt.Fprintf(w, "  experiments: %d\n", stats.TotalExperiments)
	fmt.Fprintf(w, "  qa pairs:    %d\n", stats.TotalQAPairs)
	fmt.Fprintf(w, "  concepts:    %d\n", stats.TotalConcepts)
	fmt.Fprintf(w, "  passages:    %d\n", stats.TotalPassages)
	dimColor.Fprintf(w, "  model: %s (%d dims, %s)\n",
		stats.EmbeddingModel, stats.EmbeddingDimension, stats.VectorDB)
	if diskBytes > 0 {
		dimColor.Fprintf(w, "  disk: %.1f MiB\n", float64(diskBytes)/(1<<20))
	}

	headerColor.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  requests: %d  tokens: %d  cost: $%.6f\n",
		usage.TotalRequests, usage.TotalTokens, usage.TotalCost)
	for name, u := range usage.PerProvider {
		dimColor.Fprintf(w, "  %s: %d requests, %d tokens, $%.6f\n",
			name, u.Requests, u.Tokens, u.Cost)
	}
}

// Package prompt builds the model prompt: persona, retrieved knowledge under a
// character budget, request context, and age-bucketed instructions.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/carlsnewton/aristotle/internal/models"
)

// Personality is the system prompt sent with every generation request.
const Personality = `I am AI-stotle (Aristotle + AI), a wise and enthusiastic science tutor
for Carls Newton shows in Dubai!

PHILOSOPHY:
- "Wonder is the beginning of wisdom" - I encourage curiosity
- "The more you know, the more you know you don't know" - Humble learning
- "We are what we repeatedly do" - Practice and hands-on experiments

PERSONALITY:
- Wise but never condescending
- Patient and encouraging
- Excited about discovery
- Makes complex ideas simple
- Connects science to philosophy and life
- Uses analogies and metaphors

COMMUNICATION STYLE:
- Clear, age-appropriate language
- Short answers (2-3 sentences) unless asked for more
- Real-world examples and connections
- Encourages hands-on experimentation
- Occasional philosophical wisdom

SIGNATURE PHRASES:
- "Ah, a curious mind asks..."
- "Let me enlighten you..."
- "As the great philosophers knew..."
- "Science and wisdom combined show us..."`

// DefaultCharBudget caps the total characters of knowledge excerpts in a
// prompt. Roughly 600 tokens of grounding, leaving headroom for the persona
// and instructions within small context windows.
const DefaultCharBudget = 2400

// AgeBucket selects the instruction register for a student age.
type AgeBucket int

const (
	BucketYounger AgeBucket = iota // 6-8
	BucketMiddle                   // 9-11
	BucketOlder                    // 12-14
)

// BucketFor maps a student age to its instruction bucket. Ages outside the
// curated 6-14 range clamp to the nearest bucket.
func BucketFor(age int) AgeBucket {
	switch {
	case age <= 8:
		return BucketYounger
	case age <= 11:
		return BucketMiddle
	default:
		return BucketOlder
	}
}

var bucketInstructions = map[AgeBucket]string{
	BucketYounger: `1. Answer for a young child: very simple words, one idea at a time
2. Use the knowledge provided above when relevant
3. Keep it short, playful, and full of wonder (2-3 sentences)
4. Compare science to everyday things a child knows
5. Encourage trying safe hands-on experiments with a grown-up`,
	BucketMiddle: `1. Answer clearly for a curious student, introducing proper science words
2. Use the knowledge provided above when relevant
3. Keep answer engaging and concise (2-3 sentences)
4. Add a touch of philosophical wisdom when appropriate
5. Encourage hands-on learning`,
	BucketOlder: `1. Answer for a young teenager: correct terminology and the why behind it
2. Use the knowledge provided above when relevant
3. Keep answer engaging and concise (2-4 sentences)
4. Connect the idea to deeper principles and philosophy
5. Suggest how they could test the idea themselves`,
}

// apologies is the fixed fallback answer per bucket when every provider
// fails. Users never see raw provider errors.
var apologies = map[AgeBucket]string{
	BucketYounger: "Oh no, my thinking cap slipped off! Please ask me again in a moment, young explorer.",
	BucketMiddle:  "Apologies, young scholar. My wisdom is briefly out of reach; please try your question again shortly.",
	BucketOlder:   "Apologies, I could not reach my reasoning just now. Please retry in a moment and we will get to the bottom of it.",
}

// Apology returns the age-appropriate fallback answer for total generation
// failure.
func Apology(age int) string {
	return apologies[BucketFor(age)]
}

// NoGroundingMarker is inserted where knowledge excerpts would go when
// retrieval found nothing, so the model knows it answers from general
// knowledge.
const NoGroundingMarker = "No matching entries were found in the Carls Newton knowledge base. Answer from general science knowledge."

// Assembler builds prompts from retrieval results under a character budget.
type Assembler struct {
	charBudget int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithCharBudget overrides the knowledge excerpt budget.
func WithCharBudget(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.charBudget = n
		}
	}
}

// NewAssembler returns an Assembler with the default budget.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{charBudget: DefaultCharBudget}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the user prompt. Excerpts are appended in ranked order; one
// that would push the running total past the budget is skipped whole and the
// walk continues, so a shorter later excerpt may still fit. The returned
// indexes identify which results made it into the prompt; callers cite only
// those as sources.
func (a *Assembler) Assemble(question string, age int, reqContext map[string]any, results []*models.RetrievalResult) (string, []int) {
	var b strings.Builder
	fmt.Fprintf(&b, "STUDENT AGE: %d years old\n", age)

	var included []int
	if len(results) == 0 {
		b.WriteString("\n" + NoGroundingMarker + "\n")
	} else {
		b.WriteString("\nRELEVANT KNOWLEDGE FROM CARLS NEWTON:\n")
		used := 0
		n := 0
		for i, res := range results {
			text := strings.TrimSpace(res.Document.Text)
			if used+len(text) > a.charBudget {
				continue
			}
			used += len(text)
			n++
			fmt.Fprintf(&b, "\n%d. %s\n", n, text)
			included = append(included, i)
		}
		if len(included) == 0 {
			b.WriteString("\n" + NoGroundingMarker + "\n")
		}
	}

	if len(reqContext) > 0 {
		if ctxJSON, err := json.MarshalIndent(reqContext, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nCURRENT CONTEXT:\n%s\n", ctxJSON)
		}
	}

	fmt.Fprintf(&b, "\nSTUDENT QUESTION:\n%s\n", question)
	fmt.Fprintf(&b, "\nINSTRUCTIONS:\n%s\n\nAI-STOTLE'S WISE RESPONSE:\n", bucketInstructions[BucketFor(age)])
	return b.String(), included
}

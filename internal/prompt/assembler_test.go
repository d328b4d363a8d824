package prompt

import (
	"strings"
	"testing"

	"github.com/carlsnewton/aristotle/internal/models"
)

func result(text string) *models.RetrievalResult {
	return &models.RetrievalResult{
		Document:   &models.Document{ID: "doc", Text: text},
		Score:      0.9,
		Collection: models.CollectionPassages,
	}
}

func TestBucketFor(t *testing.T) {
	cases := []struct {
		age  int
		want AgeBucket
	}{
		{3, BucketYounger},
		{6, BucketYounger},
		{8, BucketYounger},
		{9, BucketMiddle},
		{11, BucketMiddle},
		{12, BucketOlder},
		{14, BucketOlder},
		{17, BucketOlder},
	}
	for _, c := range cases {
		if got := BucketFor(c.age); got != c.want {
			t.Errorf("BucketFor(%d) = %v, want %v", c.age, got, c.want)
		}
	}
}

func TestAssembleIncludesSections(t *testing.T) {
	a := NewAssembler()
	prompt, included := a.Assemble("Why is slime stretchy?", 8,
		map[string]any{"show": "polymer lab"},
		[]*models.RetrievalResult{result("Slime is a polymer.")})

	for _, want := range []string{
		"STUDENT AGE: 8 years old",
		"RELEVANT KNOWLEDGE FROM CARLS NEWTON:",
		"1. Slime is a polymer.",
		"CURRENT CONTEXT:",
		"polymer lab",
		"STUDENT QUESTION:\nWhy is slime stretchy?",
		"INSTRUCTIONS:",
		"AI-STOTLE'S WISE RESPONSE:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if len(included) != 1 || included[0] != 0 {
		t.Errorf("included = %v, want [0]", included)
	}
}

func TestAssembleAgeBucketsDiffer(t *testing.T) {
	a := NewAssembler()
	young, _ := a.Assemble("q", 7, nil, nil)
	middle, _ := a.Assemble("q", 10, nil, nil)
	older, _ := a.Assemble("q", 13, nil, nil)
	if young == middle || middle == older || young == older {
		t.Error("expected distinct instructions per age bucket")
	}
}

func TestAssembleNoGroundingMarker(t *testing.T) {
	a := NewAssembler()
	prompt, included := a.Assemble("q", 10, nil, nil)
	if !strings.Contains(prompt, NoGroundingMarker) {
		t.Error("prompt missing no-grounding marker")
	}
	if len(included) != 0 {
		t.Errorf("included = %v, want empty", included)
	}
}

func TestAssembleBudgetSkipsOversizedWhole(t *testing.T) {
	a := NewAssembler(WithCharBudget(30))
	big := strings.Repeat("x", 100)
	prompt, included := a.Assemble("q", 10, nil, []*models.RetrievalResult{
		result("short fact one"), // 14 chars
		result(big),              // skipped whole
		result("fact two"),       // 8 chars, still fits
	})
	if strings.Contains(prompt, big[:40]) {
		t.Error("oversized excerpt should be skipped entirely, not truncated")
	}
	if len(included) != 2 || included[0] != 0 || included[1] != 2 {
		t.Errorf("included = %v, want [0 2]", included)
	}
	if !strings.Contains(prompt, "2. fact two") {
		t.Error("later excerpt should keep sequential numbering")
	}
}

func TestAssembleAllOversizedFallsBackToMarker(t *testing.T) {
	a := NewAssembler(WithCharBudget(5))
	prompt, included := a.Assemble("q", 10, nil, []*models.RetrievalResult{
		result("this excerpt is far too long for the budget"),
	})
	if len(included) != 0 {
		t.Errorf("included = %v, want empty", included)
	}
	if !strings.Contains(prompt, NoGroundingMarker) {
		t.Error("expected no-grounding marker when nothing fits")
	}
}

func TestApologyPerBucket(t *testing.T) {
	if Apology(7) == Apology(10) || Apology(10) == Apology(13) {
		t.Error("expected distinct apologies per age bucket")
	}
	if Apology(7) == "" {
		t.Error("empty apology")
	}
}

package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carlsnewton/aristotle/internal/prompt"
)

// fakeProvider scripts per-call outcomes for fallback tests.
type fakeProvider struct {
	name  string
	calls int
	// fail controls how many leading calls error before success.
	fail int
	// block makes every call wait for context cancellation.
	block bool
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return f.name + "-model" }

func (f *fakeProvider) Temperature() float64 { return 0.7 }

func (f *fakeProvider) Generate(ctx context.Context, system, user string) (*Completion, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.calls <= f.fail {
		return nil, errors.New("upstream unavailable")
	}
	return &Completion{Text: "answer from " + f.name, PromptTokens: 100, CompletionTokens: 50}, nil
}

func newTestGenerator(t *testing.T, providers ...Provider) *Generator {
	t.Helper()
	g, err := NewGenerator(providers, WithRetryBackoff(0), WithAttemptTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestGenerateFirstProviderSucceeds(t *testing.T) {
	primary := &fakeProvider{name: "deepseek"}
	secondary := &fakeProvider{name: "claude"}
	g := newTestGenerator(t, primary, secondary)

	res, err := g.Generate(context.Background(), "sys", "user", 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Success || res.Provider != "deepseek" {
		t.Errorf("result = %+v, want deepseek success", res)
	}
	if res.TokensUsed != 150 {
		t.Errorf("TokensUsed = %d, want 150", res.TokensUsed)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls)
	}
}

func TestGenerateRetriesOnceThenFallsOver(t *testing.T) {
	primary := &fakeProvider{name: "deepseek", fail: 10}
	secondary := &fakeProvider{name: "claude"}
	g := newTestGenerator(t, primary, secondary)

	res, err := g.Generate(context.Background(), "sys", "user", 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if primary.calls != 2 {
		t.Errorf("primary attempts = %d, want 2 (one retry)", primary.calls)
	}
	if !res.Success || res.Provider != "claude" {
		t.Errorf("result = %+v, want claude fallback success", res)
	}
}

func TestGenerateRetrySameProviderSucceeds(t *testing.T) {
	primary := &fakeProvider{name: "deepseek", fail: 1}
	g := newTestGenerator(t, primary)

	res, err := g.Generate(context.Background(), "sys", "user", 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if primary.calls != 2 || !res.Success {
		t.Errorf("calls = %d, success = %v, want retry success", primary.calls, res.Success)
	}
}

func TestGenerateAllFailReturnsApology(t *testing.T) {
	primary := &fakeProvider{name: "deepseek", fail: 10}
	secondary := &fakeProvider{name: "claude", fail: 10}
	g := newTestGenerator(t, primary, secondary)

	res, err := g.Generate(context.Background(), "sys", "user", 7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Success {
		t.Error("expected Success=false when all providers fail")
	}
	if res.Answer != prompt.Apology(7) {
		t.Errorf("answer = %q, want age-bucket apology", res.Answer)
	}
	if res.Cost != 0 || res.TokensUsed != 0 {
		t.Errorf("failed generation should carry no usage: %+v", res)
	}
}

func TestGenerateContextCancellation(t *testing.T) {
	blocked := &fakeProvider{name: "deepseek", block: true}
	g, err := NewGenerator([]Provider{blocked}, WithRetryBackoff(0), WithAttemptTimeout(time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, "sys", "user", 10); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context deadline", err)
	}
}

func TestGenerateAttemptTimeoutFallsOver(t *testing.T) {
	blocked := &fakeProvider{name: "deepseek", block: true}
	secondary := &fakeProvider{name: "claude"}
	g, err := NewGenerator([]Provider{blocked, secondary},
		WithRetryBackoff(0), WithAttemptTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	res, err := g.Generate(context.Background(), "sys", "user", 10)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Success || res.Provider != "claude" {
		t.Errorf("result = %+v, want claude after primary timeout", res)
	}
}

func TestNewGeneratorRequiresProviders(t *testing.T) {
	if _, err := NewGenerator(nil); err == nil {
		t.Fatal("expected error for empty provider list")
	}
}

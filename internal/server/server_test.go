package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/config"
	"github.com/carlsnewton/aristotle/internal/cost"
	"github.com/carlsnewton/aristotle/internal/embedding"
	"github.com/carlsnewton/aristotle/internal/generation"
	"github.com/carlsnewton/aristotle/internal/knowledge"
	"github.com/carlsnewton/aristotle/internal/models"
	"github.com/carlsnewton/aristotle/internal/prompt"
	"github.com/carlsnewton/aristotle/internal/retrieval"
	"github.com/carlsnewton/aristotle/internal/tutor"
)

type staticProvider struct {
	answer string
	fail   bool
}

func (p *staticProvider) Name() string  { return "deepseek" }
func (p *staticProvider) Model() string { return "deepseek-chat" }

func (p *staticProvider) Temperature() float64 { return 0.7 }

func (p *staticProvider) Generate(ctx context.Context, system, user string) (*generation.Completion, error) {
	if p.fail {
		return nil, errors.New("unavailable")
	}
	return &generation.Completion{Text: p.answer, PromptTokens: 100, CompletionTokens: 40}, nil
}

func newTestServer(t *testing.T, provider generation.Provider) (*Server, *knowledge.Store, *embedding.MockEmbedder) {
	t.Helper()
	dir := t.TempDir()
	emb := embedding.NewMockEmbedder(64)
	store, err := knowledge.NewStore(filepath.Join(dir, "kb.db"), filepath.Join(dir, "index"),
		emb.ModelID(), emb.Dimensions())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	retriever := retrieval.NewRetriever(emb, store)
	gen, err := generation.NewGenerator([]generation.Provider{provider},
		generation.WithRetryBackoff(0))
	if err != nil {
		t.Fatal(err)
	}
	tracker := cost.NewTracker()
	tut := tutor.New(retriever, prompt.NewAssembler(), gen, tracker)

	cfg := config.Default()
	srv := NewServer(tut, retriever, store, tracker, &cfg.Server, zap.NewNop())
	return srv, store, emb
}

func addExperiment(t *testing.T, store *knowledge.Store, emb *embedding.MockEmbedder, id, name, text string) {
	t.Helper()
	vec, err := emb.Embed(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	doc := &models.Document{
		ID:   id,
		Text: text,
		Metadata: models.Metadata{Experiment: &models.ExperimentFields{
			Name: name, Category: "chemistry", AgeMin: 6, AgeMax: 12, WowFactor: 9,
		}},
	}
	if err := store.Upsert(context.Background(), models.CollectionExperiments, doc, vec); err != nil {
		t.Fatal(err)
	}
}

func TestHandleRoot(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticProvider{answer: "x"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["service"] != "AI-stotle" || body["status"] != "online" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleAsk(t *testing.T) {
	srv, store, emb := newTestServer(t, &staticProvider{answer: "Slime is a polymer, young scholar!"})
	addExperiment(t, store, emb, "exp-slime", "Super Slime", "Why is slime stretchy? It is a polymer.")

	req := httptest.NewRequest(http.MethodPost, "/ask",
		strings.NewReader(`{"question":"Why is slime stretchy? It is a polymer.","student_age":8}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp models.QuestionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Answer == "" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.TokensUsed != 140 {
		t.Errorf("tokens_used = %d, want 140", resp.TokensUsed)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Name != "Super Slime" {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestHandleAskEmptyQuestion(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticProvider{answer: "x"})
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"  "}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAskBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticProvider{answer: "x"})
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{broken`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAskProviderFailureStaysOK(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticProvider{fail: true})
	req := httptest.NewRequest(http.MethodPost, "/ask",
		strings.NewReader(`{"question":"Why is the sky blue?","student_age":7}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with apology body", rec.Code)
	}
	var resp models.QuestionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Answer == "" || strings.Contains(resp.Answer, "unavailable") {
		t.Errorf("answer leaked provider error: %q", resp.Answer)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, store, emb := newTestServer(t, &staticProvider{answer: "x"})
	addExperiment(t, store, emb, "exp-1", "Slime", "Slime experiment.")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status        string                    `json:"status"`
		Aristotle     string                    `json:"aristotle"`
		KnowledgeBase models.KnowledgeBaseStats `json:"knowledge_base"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "healthy" || body.Aristotle != "ready" {
		t.Errorf("body = %+v", body)
	}
	if body.KnowledgeBase.TotalExperiments != 1 {
		t.Errorf("total_experiments = %d", body.KnowledgeBase.TotalExperiments)
	}
	if !strings.HasPrefix(body.KnowledgeBase.TotalCost, "$") {
		t.Errorf("total_cost = %q", body.KnowledgeBase.TotalCost)
	}
}

func TestHandleSearchExperiments(t *testing.T) {
	srv, store, emb := newTestServer(t, &staticProvider{answer: "x"})
	addExperiment(t, store, emb, "exp-slime", "Super Slime", "Stretchy polymer slime experiment.")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/experiments/search?query=slime", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Results []struct {
			Name      string `json:"name"`
			Category  string `json:"category"`
			AgeRange  string `json:"age_range"`
			WowFactor int    `json:"wow_factor"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Results) != 1 {
		t.Fatalf("results = %+v", body.Results)
	}
	if body.Results[0].Name != "Super Slime" || body.Results[0].AgeRange != "6-12" {
		t.Errorf("result = %+v", body.Results[0])
	}
}

func TestHandleSearchExperimentsRequiresQuery(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticProvider{answer: "x"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/experiments/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStatsAccumulatesUsage(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticProvider{answer: "answer"})
	ask := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"What is gravity?"}`))
	srv.Router().ServeHTTP(httptest.NewRecorder(), ask)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Usage cost.UsageStats `json:"usage"`
		Model string          `json:"model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Usage.TotalRequests != 1 || body.Usage.TotalTokens != 140 {
		t.Errorf("usage = %+v", body.Usage)
	}
	if body.Model != "deepseek-chat" {
		t.Errorf("model = %q", body.Model)
	}
}

func TestHandleMeta(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticProvider{answer: "x"})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meta.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		API       map[string]string `json:"api"`
		Endpoints []struct {
			Path string `json:"path"`
		} `json:"endpoints"`
		Capabilities struct {
			AIProvider  string `json:"ai_provider"`
			Model       string `json:"model"`
			RAGEnabled  bool   `json:"rag_enabled"`
			CORSEnabled bool   `json:"cors_enabled"`
		} `json:"capabilities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.API["title"] != "AI-stotle API" {
		t.Errorf("api = %v", body.API)
	}
	if len(body.Endpoints) != 6 {
		t.Errorf("endpoints = %d, want 6", len(body.Endpoints))
	}
	if body.Capabilities.AIProvider != "deepseek" || body.Capabilities.Model != "deepseek-chat" {
		t.Errorf("capabilities = %+v", body.Capabilities)
	}
	if !body.Capabilities.RAGEnabled || !body.Capabilities.CORSEnabled {
		t.Errorf("capabilities flags = %+v", body.Capabilities)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t, &staticProvider{answer: "x"})
	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "https://carlsnewton.example")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

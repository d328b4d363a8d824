package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/carlsnewton/aristotle/internal/models"
	"github.com/carlsnewton/aristotle/pkg/utils"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":     "online",
		"service":    "AI-stotle",
		"version":    Version,
		"philosophy": "Wonder is the beginning of wisdom",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	stats.TotalCost = fmt.Sprintf("$%.6f", s.tracker.TotalCost())
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"aristotle":      "ready",
		"knowledge_base": stats,
		"model":          s.tutor.Provider().Model(),
		"embeddings":     "local (free)",
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request",
		zap.String("question", utils.Truncate(req.Question, 200)),
		zap.Int("student_age", req.StudentAge))

	resp, err := s.tutor.Answer(r.Context(), &req)
	if err != nil {
		if errors.Is(err, models.ErrEmptyQuestion) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("answer failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchExperiments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := s.retriever.SearchExperiments(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("experiment search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	type experimentHit struct {
		Name      string `json:"name"`
		Category  string `json:"category"`
		AgeRange  string `json:"age_range"`
		WowFactor int    `json:"wow_factor"`
	}
	hits := make([]experimentHit, 0, len(results))
	for _, res := range results {
		exp := res.Document.Metadata.Experiment
		if exp == nil {
			continue
		}
		hits = append(hits, experimentHit{
			Name:      exp.Name,
			Category:  exp.Category,
			AgeRange:  fmt.Sprintf("%d-%d", exp.AgeMin, exp.AgeMax),
			WowFactor: exp.WowFactor,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	usage := s.tracker.Snapshot()
	stats.TotalCost = fmt.Sprintf("$%.6f", usage.TotalCost)
	var diskBytes int64
	if n, err := s.store.DiskUsageBytes(); err == nil {
		diskBytes = n
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"knowledge_base":        stats,
		"usage":                 usage,
		"disk_usage_bytes":      diskBytes,
		"model":                 s.tutor.Provider().Model(),
		"cost_per_1k_questions": "$0.50",
		"vs_gpt4":               "$10 (95% savings!)",
	})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	provider := s.tutor.Provider()
	type endpoint struct {
		Path        string            `json:"path"`
		Method      string            `json:"method"`
		Description string            `json:"description"`
		Parameters  map[string]string `json:"parameters,omitempty"`
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"api": map[string]string{
			"title":       "AI-stotle API",
			"version":     Version,
			"description": "The wise AI science tutor for Carls Newton",
			"philosophy":  "Wonder is the beginning of wisdom",
		},
		"endpoints": []endpoint{
			{Path: "/", Method: "GET", Description: "Health check"},
			{Path: "/health", Method: "GET", Description: "Detailed health and knowledge base status"},
			{Path: "/ask", Method: "POST", Description: "Ask AI-stotle a question", Parameters: map[string]string{
				"question":           "string (required)",
				"student_age":        "int (optional, default: 10)",
				"context":            "object (optional)",
				"use_knowledge_base": "bool (optional, default: true)",
			}},
			{Path: "/experiments/search", Method: "GET", Description: "Search knowledge base experiments", Parameters: map[string]string{
				"query": "string (required)",
				"limit": "int (optional, default: 5)",
			}},
			{Path: "/stats", Method: "GET", Description: "Get usage statistics and cost information"},
			{Path: "/meta.json", Method: "GET", Description: "API metadata and capabilities (this endpoint)"},
		},
		"capabilities": map[string]any{
			"ai_provider":    provider.Name(),
			"model":          provider.Model(),
			"temperature":    provider.Temperature(),
			"knowledge_base": s.store.Stats(),
			"rag_enabled":    true,
			"cors_enabled":   s.config.CORSEnabledOrDefault(),
		},
		"status": "online",
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

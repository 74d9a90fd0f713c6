package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deckhaven/cardsearch/internal/core/domain"
	"github.com/deckhaven/cardsearch/internal/core/ports"
	"github.com/deckhaven/cardsearch/internal/observability/metrics"
)

// JobService creates extraction jobs and exposes their status.
type JobService interface {
	CreateJob(ctx context.Context, model, promptVersion string, confidenceThreshold float64) (*domain.ExtractionJob, error)
}

type Router struct {
	searcher  ports.CardSearcher
	extractor ports.TagExtractor
	tags      ports.CardTagStore
	review    ports.ReviewQueueReader
	jobs      ports.ExtractionJobStore
	jobSvc    JobService
	metrics   *metrics.HTTPServerMetrics
	service   string
	logger    *slog.Logger
}

func NewRouter(
	searcher ports.CardSearcher,
	extractor ports.TagExtractor,
	tags ports.CardTagStore,
	review ports.ReviewQueueReader,
	jobs ports.ExtractionJobStore,
	jobSvc JobService,
	m *metrics.HTTPServerMetrics,
	service string,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		searcher:  searcher,
		extractor: extractor,
		tags:      tags,
		review:    review,
		jobs:      jobs,
		jobSvc:    jobSvc,
		metrics:   m,
		service:   service,
		logger:    logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /v1/search", rt.search)
	mux.HandleFunc("POST /v1/cards/{card_id}/extract", rt.extractCard)
	mux.HandleFunc("GET /v1/cards/{card_id}/tags", rt.listCardTags)
	mux.HandleFunc("GET /v1/review-queue", rt.reviewQueue)
	mux.HandleFunc("POST /v1/jobs", rt.createJob)
	mux.HandleFunc("GET /v1/jobs/{job_id}", rt.getJob)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := domain.SearchRequest{
		Query:  q.Get("q"),
		Mode:   domain.SearchMode(strings.TrimSpace(q.Get("mode"))),
		Limit:  queryInt(q.Get("limit"), 0),
		Offset: queryInt(q.Get("offset"), 0),
	}
	if req.Mode == "" {
		req.Mode = domain.ModeAuto
	}
	if raw := q.Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > 1 {
			rt.writeError(w, r, domain.WrapError(domain.ErrInvalidQuery, "parse threshold",
				errors.New("threshold must be a number in [0,1]")))
			return
		}
		req.Threshold = &t
	}

	start := time.Now()
	result, err := rt.searcher.Search(r.Context(), req)
	if err != nil {
		rt.recordSearch("", "error", 0, 0)
		rt.writeError(w, r, err)
		return
	}

	rt.recordSearch(string(result.Route), "ok", len(result.Cards), time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) extractCard(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("card_id")
	if cardID == "" {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidQuery, "extract card",
			errors.New("card id is required")))
		return
	}

	tags, err := rt.extractor.ExtractCard(r.Context(), cardID)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordInteractiveExtraction(rt.service, "error")
		}
		rt.writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordInteractiveExtraction(rt.service, "ok")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"card_id": cardID,
		"tags":    tags,
	})
}

func (rt *Router) listCardTags(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("card_id")
	tags, err := rt.tags.ListForCard(r.Context(), cardID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"card_id": cardID,
		"tags":    tags,
	})
}

func (rt *Router) reviewQueue(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	entries, err := rt.review.ListPending(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (rt *Router) createJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model               string  `json:"model"`
		PromptVersion       string  `json:"prompt_version"`
		ConfidenceThreshold float64 `json:"confidence_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidQuery, "decode job request", err))
		return
	}
	if req.ConfidenceThreshold < 0 || req.ConfidenceThreshold > 1 {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidQuery, "decode job request",
			errors.New("confidence_threshold must be in [0,1]")))
		return
	}

	job, err := rt.jobSvc.CreateJob(r.Context(), req.Model, req.PromptVersion, req.ConfidenceThreshold)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.jobs.GetByID(r.Context(), r.PathValue("job_id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) recordSearch(route, status string, count int, duration time.Duration) {
	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.service, route, status, count, duration)
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapError(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

type fakeSearcher struct {
	result *domain.SearchResult
	err    error
	gotReq domain.SearchRequest
}

func (f *fakeSearcher) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeExtractor struct {
	tags []domain.CardTag
	err  error
}

func (f *fakeExtractor) ExtractCard(_ context.Context, _ string) ([]domain.CardTag, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tags, nil
}

type fakeTagLister struct {
	tags []domain.CardTag
}

func (f *fakeTagLister) ReplaceForCard(_ context.Context, _ string, _ []domain.CardTag) error {
	return nil
}

func (f *fakeTagLister) ListForCard(_ context.Context, _ string) ([]domain.CardTag, error) {
	return f.tags, nil
}

type fakeReview struct {
	entries []domain.ReviewQueueEntry
}

func (f *fakeReview) ListPending(_ context.Context, _ int) ([]domain.ReviewQueueEntry, error) {
	return f.entries, nil
}

type fakeJobs struct {
	job *domain.ExtractionJob
}

func (f *fakeJobs) Create(_ context.Context, _ *domain.ExtractionJob) error { return nil }

func (f *fakeJobs) GetByID(_ context.Context, id string) (*domain.ExtractionJob, error) {
	if f.job == nil {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", errors.New(id))
	}
	return f.job, nil
}

func (f *fakeJobs) UpdateStatus(_ context.Context, _ string, _ domain.JobStatus) error { return nil }

func (f *fakeJobs) UpdateTotal(_ context.Context, _ string, _ int) error { return nil }

func (f *fakeJobs) UpdateProgress(_ context.Context, _ string, _, _ int) error { return nil }

type fakeJobService struct {
	job *domain.ExtractionJob
	err error
}

func (f *fakeJobService) CreateJob(_ context.Context, model, promptVersion string, threshold float64) (*domain.ExtractionJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	job := *f.job
	job.Model = model
	job.PromptVersion = promptVersion
	job.ConfidenceThreshold = threshold
	return &job, nil
}

func newTestRouter(searcher *fakeSearcher, extractor *fakeExtractor, jobs *fakeJobs, jobSvc *fakeJobService) http.Handler {
	if searcher == nil {
		searcher = &fakeSearcher{result: &domain.SearchResult{Cards: []domain.RankedCard{}}}
	}
	if extractor == nil {
		extractor = &fakeExtractor{}
	}
	if jobs == nil {
		jobs = &fakeJobs{}
	}
	if jobSvc == nil {
		jobSvc = &fakeJobService{job: &domain.ExtractionJob{ID: "j1", Status: domain.JobStatusPending}}
	}
	rt := NewRouter(searcher, extractor, &fakeTagLister{}, &fakeReview{}, jobs, jobSvc, nil, "test", nil)
	return rt.Handler()
}

func TestSearchEndpointPassesParameters(t *testing.T) {
	searcher := &fakeSearcher{result: &domain.SearchResult{
		Cards:   []domain.RankedCard{{Card: domain.Card{ID: "c1", Name: "Lightning Bolt"}, Score: 1.0}},
		Route:   domain.RouteExact,
		HasMore: false,
	}}
	handler := newTestRouter(searcher, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=Lightning+Bolt&mode=auto&limit=5&offset=10&threshold=0.5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if searcher.gotReq.Query != "Lightning Bolt" || searcher.gotReq.Limit != 5 || searcher.gotReq.Offset != 10 {
		t.Fatalf("request not forwarded: %+v", searcher.gotReq)
	}
	if searcher.gotReq.Threshold == nil || *searcher.gotReq.Threshold != 0.5 {
		t.Fatalf("threshold not forwarded: %+v", searcher.gotReq.Threshold)
	}

	var body domain.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Route != domain.RouteExact || len(body.Cards) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestSearchEndpointRejectsBadThreshold(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=bolt&threshold=1.5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range threshold, got %d", rec.Code)
	}
}

func TestSearchEndpointMapsDomainErrors(t *testing.T) {
	searcher := &fakeSearcher{err: domain.WrapError(domain.ErrSearchUnavailable, "text search", errors.New("refused"))}
	handler := newTestRouter(searcher, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=bolt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSearchEndpointHidesBackendDetail(t *testing.T) {
	searcher := &fakeSearcher{err: domain.WrapError(domain.ErrSearchUnavailable, "text search",
		errors.New("dial tcp 10.0.0.7:5432: connect: connection refused (dsn postgres://svc:hunter2@db/cards)"))}
	handler := newTestRouter(searcher, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=bolt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, leaked := range []string{"dial tcp", "hunter2", "postgres://", "10.0.0.7"} {
		if strings.Contains(body, leaked) {
			t.Fatalf("response body must not carry backend detail %q, got %s", leaked, body)
		}
	}
	if !strings.Contains(body, "search backend unavailable") {
		t.Fatalf("expected the fixed unavailable message, got %s", body)
	}
}

func TestExtractEndpoint(t *testing.T) {
	extractor := &fakeExtractor{tags: []domain.CardTag{
		{CardID: "c1", TagName: "removal", Confidence: 0.9, Source: domain.TagSourceModel},
	}}
	handler := newTestRouter(nil, extractor, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/cards/c1/extract", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "removal") {
		t.Fatalf("expected tags in response, got %s", rec.Body.String())
	}
}

func TestExtractEndpointRateLimited(t *testing.T) {
	extractor := &fakeExtractor{err: domain.WrapError(domain.ErrRateLimitExceeded, "generate tags", errors.New("quota"))}
	handler := newTestRouter(nil, extractor, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/cards/c1/extract", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestCreateJobEndpoint(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs",
		strings.NewReader(`{"model":"llama3.1:8b","prompt_version":"v2","confidence_threshold":0.7}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var job domain.ExtractionJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Model != "llama3.1:8b" || job.PromptVersion != "v2" || job.ConfidenceThreshold != 0.7 {
		t.Fatalf("job fields not forwarded: %+v", job)
	}
}

func TestCreateJobEndpointRejectsBadThreshold(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs",
		strings.NewReader(`{"model":"m","confidence_threshold":1.7}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetJobEndpointNotFound(t *testing.T) {
	handler := newTestRouter(nil, nil, &fakeJobs{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetJobEndpoint(t *testing.T) {
	jobs := &fakeJobs{job: &domain.ExtractionJob{
		ID:        "j1",
		Status:    domain.JobStatusRunning,
		CreatedAt: time.Now().UTC(),
	}}
	handler := newTestRouter(nil, nil, jobs, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/j1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var job domain.ExtractionJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.ID != "j1" || job.Status != domain.JobStatusRunning {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "trace-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "trace-123" {
		t.Fatalf("request id must round-trip, got %q", got)
	}
}

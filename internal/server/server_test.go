package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/store"
	"github.com/spigell/lead-responder/internal/workflow"
)

type stubQualifier struct {
	result *ai.QualificationResult
	err    error
}

func (s *stubQualifier) Qualify(context.Context, leads.Lead) (*ai.QualificationResult, error) {
	return s.result, s.err
}

func (s *stubQualifier) GenerateOutreach(context.Context, leads.Lead, string) (*ai.OutreachResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.OutreachResult{Subject: "Hello", Body: "Hi there"}, nil
}

func (s *stubQualifier) Model() string { return "grok-test" }

func newTestServer(t *testing.T, opts ...workflow.Option) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	srv := New(workflow.New(st, logger, opts...), logger, Config{CORSOrigins: []string{"http://localhost:3000"}, Version: "test"})
	srv.now = func() time.Time { return time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC) }
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body)
	}

	root := decode[map[string]string](t, do(t, srv, http.MethodGet, "/", nil))
	if root["version"] != "test" {
		t.Fatalf("unexpected root response %v", root)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		origin string
		allow  bool
	}{
		{"http://localhost:3000", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/leads", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: expected 204, got %d", tt.origin, rec.Code)
		}
		got := rec.Header().Get("Access-Control-Allow-Origin")
		if (got == tt.origin) != tt.allow {
			t.Fatalf("%s: unexpected allow-origin %q", tt.origin, got)
		}
	}
}

func TestLeadEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/leads", map[string]string{
		"name":    "Sarah Johnson",
		"email":   "Sarah@Microsoft.com",
		"company": "Microsoft",
		"title":   "CEO",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	created := decode[leads.Lead](t, rec)
	if created.Email != "sarah@microsoft.com" || created.Stage != leads.StageNew {
		t.Fatalf("unexpected lead %+v", created)
	}

	rec = do(t, srv, http.MethodPost, "/api/leads", map[string]string{"name": "Dup", "email": "sarah@microsoft.com"})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "detail") {
		t.Fatalf("expected 400 for duplicate email, got %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodPost, "/api/leads", map[string]string{"name": "No Email"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", rec.Code)
	}

	list := decode[[]leads.Lead](t, do(t, srv, http.MethodGet, "/api/leads?stage=New", nil))
	if len(list) != 1 {
		t.Fatalf("expected one lead, got %d", len(list))
	}
	if rec := do(t, srv, http.MethodGet, "/api/leads?stage=Bogus", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stage, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/leads/"+itoa(created.ID)+"/score", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("score: %d %s", rec.Code, rec.Body)
	}
	scored := decode[map[string]any](t, rec)
	if _, ok := scored["total_score"].(float64); !ok {
		t.Fatalf("missing total_score in %v", scored)
	}

	page := decode[workflow.ActivityPage](t, do(t, srv, http.MethodGet, "/api/leads/"+itoa(created.ID)+"/activities?type=ai_score,created", nil))
	if page.Total != 2 || page.Activities[0].Type != leads.ActivityScore {
		t.Fatalf("unexpected activity page %+v", page)
	}

	if rec := do(t, srv, http.MethodPost, "/api/leads/999/score", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/leads/abc/score", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/leads/"+itoa(created.ID), nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/leads/"+itoa(created.ID), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestImportLeads(t *testing.T) {
	srv := newTestServer(t)

	upload := func(filename, contentType, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write([]byte(content))
		w.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/leads/import", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := upload("leads.txt", "text/plain", "name,email\n")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "File must be a CSV file") {
		t.Fatalf("expected csv rejection, got %d %s", rec.Code, rec.Body)
	}

	rec = upload("leads.csv", "text/csv", "name,email,company\nAnn,ann@example.com,Acme\n,missing@example.com,\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body)
	}
	res := decode[workflow.ImportResult](t, rec)
	if res.Imported != 1 || res.Failed != 1 || res.BatchID == "" {
		t.Fatalf("unexpected import result %+v", res)
	}
}

func TestQualifyErrors(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		srv := newTestServer(t)
		created := decode[leads.Lead](t, do(t, srv, http.MethodPost, "/api/leads", map[string]string{"name": "A", "email": "a@example.com"}))

		if rec := do(t, srv, http.MethodPost, "/api/leads/"+itoa(created.ID)+"/qualify", nil); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("bad model output", func(t *testing.T) {
		q := &stubQualifier{err: &ai.SchemaError{Field: "verdict", Reason: "unknown value"}}
		srv := newTestServer(t, workflow.WithQualifier(q))
		created := decode[leads.Lead](t, do(t, srv, http.MethodPost, "/api/leads", map[string]string{"name": "A", "email": "a@example.com"}))

		rec := do(t, srv, http.MethodPost, "/api/leads/"+itoa(created.ID)+"/qualify", nil)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("qualified", func(t *testing.T) {
		q := &stubQualifier{result: &ai.QualificationResult{Verdict: ai.VerdictQualified, Confidence: 85, Reasoning: "fit"}}
		srv := newTestServer(t, workflow.WithQualifier(q))
		created := decode[leads.Lead](t, do(t, srv, http.MethodPost, "/api/leads", map[string]string{"name": "A", "email": "a@example.com"}))

		body := decode[map[string]any](t, do(t, srv, http.MethodPost, "/api/leads/"+itoa(created.ID)+"/qualify", nil))
		if body["stage"] != string(leads.StageQualified) || body["stage_changed"] != true {
			t.Fatalf("unexpected qualify response %v", body)
		}

		rec := do(t, srv, http.MethodPost, "/api/leads/"+itoa(created.ID)+"/message", map[string]string{"context": "met at a conference"})
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"subject":"Hello"`) {
			t.Fatalf("unexpected outreach response %d %s", rec.Code, rec.Body)
		}
	})
}

func TestSeedLinksCompanies(t *testing.T) {
	srv := newTestServer(t)

	if rec := do(t, srv, http.MethodPost, "/api/leads/seed", nil); rec.Code != http.StatusOK {
		t.Fatalf("seed: %d %s", rec.Code, rec.Body)
	}
	companies := decode[[]leads.CompanyProfile](t, do(t, srv, http.MethodGet, "/api/companies", nil))
	if len(companies) != 5 {
		t.Fatalf("expected 5 seeded companies, got %d", len(companies))
	}

	rec := do(t, srv, http.MethodPost, "/api/leads", map[string]string{"name": "New Hire", "email": "new.hire@" + companies[0].Domain})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	lead := decode[leads.Lead](t, rec)
	if lead.CompanyProfileID == nil || *lead.CompanyProfileID != companies[0].ID {
		t.Fatalf("expected lead linked to %s, got %+v", companies[0].Domain, lead.CompanyProfileID)
	}
}

func TestScoringConfigEndpoints(t *testing.T) {
	srv := newTestServer(t)

	cfg := decode[leads.ScoringConfig](t, do(t, srv, http.MethodGet, "/api/scoring/config", nil))
	if cfg.Name != workflow.DefaultConfigName || len(cfg.Weights) != 4 {
		t.Fatalf("unexpected default config %+v", cfg)
	}

	rec := do(t, srv, http.MethodPut, "/api/scoring/config", map[string]any{
		"weights": map[string]any{"data_completeness": 1, "title_seniority": 1, "company_size": 1},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing weight, got %d %s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodPut, "/api/scoring/config", map[string]any{
		"name":    "equal",
		"weights": map[string]any{"data_completeness": 1, "title_seniority": 1, "company_size": 1, "contact_quality": 1},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body)
	}
	cfg = decode[leads.ScoringConfig](t, rec)
	if cfg.Weights["title_seniority"] != 25 || !cfg.IsActive {
		t.Fatalf("expected normalized weights, got %+v", cfg)
	}
	var sum float64
	for _, w := range cfg.Weights {
		sum += w
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("expected weights to sum to 100, got %v", sum)
	}
}

func TestEvaluationEndpoints(t *testing.T) {
	srv := newTestServer(t)

	if rec := do(t, srv, http.MethodPost, "/api/evals/run", map[string]any{}); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without provider, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/evals/42", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	runs := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/api/evals", nil))
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %v", runs)
	}
}

func TestMeetingEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/meetings/slots", map[string]any{"timezone": "UTC", "duration_minutes": 45})
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: %d %s", rec.Code, rec.Body)
	}
	slots := decode[map[string]any](t, rec)
	if slots["total_slots"] != float64(3) || slots["timezone"] != "UTC" {
		t.Fatalf("unexpected slots %v", slots)
	}

	rec = do(t, srv, http.MethodPost, "/api/meetings/ics", map[string]any{
		"start_datetime": "2025-03-10T10:00:00Z",
		"end_datetime":   "2025-03-10T10:30:00Z",
		"subject":        "Intro call",
		"attendees":      []string{"sarah@techcorp.com"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ics: %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=meeting_") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "DTSTART:20250310T100000Z") {
		t.Fatalf("unexpected calendar body %s", rec.Body)
	}

	rec = do(t, srv, http.MethodPost, "/api/meetings/ics", map[string]any{
		"start_datetime": "2025-03-10T10:00:00Z",
		"end_datetime":   "2025-03-10T09:00:00Z",
		"subject":        "Backwards",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for end before start, got %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

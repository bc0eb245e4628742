package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/domain"
	"course-ledger-service/internal/infra/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type testEnv struct {
	server   *httptest.Server
	progress *memory.ProgressStore
	hub      *app.EventHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	structures := memory.NewStaticStructureLoader(map[string]domain.CourseStructure{
		"course-1": {
			CourseID:   "course-1",
			CourseName: "Go Basics",
			Sections: []domain.Section{
				{ID: "s1", SubItems: []domain.SubItem{{ID: "v1", QuizID: "q1"}, {ID: "v2"}}},
			},
		},
	})
	progress := memory.NewProgressStore()
	learners := memory.NewLearnerDirectory(
		domain.LearnerSnapshot{LearnerID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		domain.LearnerSnapshot{LearnerID: "u2", FirstName: "Grace", LastName: "Hopper"},
	)
	hub := app.NewEventHub()
	ledger := app.NewLedger(structures, progress, learners, memory.NewCertificateStore(), app.WithEvents(hub))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httptest.NewServer(NewAPI(ledger, hub, logger))
	t.Cleanup(server.Close)
	return &testEnv{server: server, progress: progress, hub: hub}
}

func (e *testEnv) completeAll(learnerID string) {
	e.progress.CompleteVideo("course-1", learnerID, "v1")
	e.progress.CompleteQuiz("course-1", learnerID, "q1")
	e.progress.CompleteVideo("course-1", learnerID, "v2")
}

func (e *testEnv) do(t *testing.T, method, path string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, env
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodGet, "/healthz")
	if status != http.StatusOK || !body.Success {
		t.Fatalf("expected healthy, got %d %+v", status, body)
	}
}

func TestEvaluateIssuesCertificate(t *testing.T) {
	env := newTestEnv(t)
	env.completeAll("u1")

	status, body := env.do(t, http.MethodPost, "/api/v1/courses/course-1/learners/u1/certificate")
	if status != http.StatusCreated || !body.Success {
		t.Fatalf("expected 201, got %d %+v", status, body)
	}
	var decision domain.CertificateDecision
	if err := json.Unmarshal(body.Data, &decision); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if decision.Action != domain.ActionIssued || decision.Status != domain.StatusValid || decision.Certificate == nil {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if decision.Certificate.LearnerName != "Ada Lovelace" {
		t.Fatalf("expected learner snapshot on certificate, got %q", decision.Certificate.LearnerName)
	}

	status, body = env.do(t, http.MethodGet, "/api/v1/certificates/"+decision.Certificate.CertificateID)
	if status != http.StatusOK {
		t.Fatalf("expected certificate lookup, got %d %+v", status, body)
	}
	var view domain.CertificateView
	if err := json.Unmarshal(body.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Status != domain.StatusValid || view.Percent != 100 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestEvaluateBelowThresholdIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.progress.CompleteVideo("course-1", "u1", "v1")

	status, body := env.do(t, http.MethodPost, "/api/v1/courses/course-1/learners/u1/certificate")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var decision domain.CertificateDecision
	if err := json.Unmarshal(body.Data, &decision); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if decision.Action != domain.ActionNone || decision.Status != domain.StatusUnissued || decision.Progress.Percent != 33.33 {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		method, path string
		status       int
		code         string
	}{
		{http.MethodPost, "/api/v1/courses/" + strings.Repeat("x", 200) + "/learners/u1/certificate", http.StatusBadRequest, "validation_error"},
		{http.MethodPost, "/api/v1/courses/nope/learners/u1/certificate", http.StatusNotFound, "not_found"},
		{http.MethodPost, "/api/v1/courses/course-1/sweep?trigger=hourly", http.StatusBadRequest, "validation_error"},
		{http.MethodGet, "/api/v1/certificates/missing", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/api/v1/courses/nope/certificates/status", http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		status, body := env.do(t, tc.method, tc.path)
		if status != tc.status || body.Success || body.Error == nil || body.Error.Code != tc.code {
			t.Fatalf("%s %s: expected %d/%s, got %d %+v", tc.method, tc.path, tc.status, tc.code, status, body)
		}
	}
}

func TestSweepAndStatusEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.completeAll("u1")
	env.completeAll("u2")
	for _, learner := range []string{"u1", "u2"} {
		if status, _ := env.do(t, http.MethodPost, "/api/v1/courses/course-1/learners/"+learner+"/certificate"); status != http.StatusCreated {
			t.Fatalf("issue for %s: status %d", learner, status)
		}
	}
	env.progress.Revoke("course-1", "u2", "q1")

	status, body := env.do(t, http.MethodGet, "/api/v1/courses/course-1/certificates/status")
	if status != http.StatusOK {
		t.Fatalf("status check: %d", status)
	}
	var check domain.StatusReport
	if err := json.Unmarshal(body.Data, &check); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if check.ValidCertificates != 1 || check.NeedsRegeneration != 1 {
		t.Fatalf("unexpected status report %+v", check)
	}

	status, body = env.do(t, http.MethodPost, "/api/v1/courses/course-1/sweep")
	if status != http.StatusOK {
		t.Fatalf("sweep: %d %+v", status, body)
	}
	var report domain.SweepReport
	if err := json.Unmarshal(body.Data, &report); err != nil {
		t.Fatalf("decode sweep: %v", err)
	}
	if !report.Success || report.TriggerType != domain.TriggerManual || report.RegeneratedCount != 1 || report.InvalidatedCount != 1 {
		t.Fatalf("unexpected sweep report %+v", report)
	}

	status, body = env.do(t, http.MethodGet, "/api/v1/courses/course-1/certificates")
	if status != http.StatusOK {
		t.Fatalf("list: %d", status)
	}
	var views []domain.CertificateView
	if err := json.Unmarshal(body.Data, &views); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected both certificates retained, got %d", len(views))
	}

	status, body = env.do(t, http.MethodPost, "/api/v1/courses/course-1/structure-changed")
	if status != http.StatusOK {
		t.Fatalf("structure-changed: %d %+v", status, body)
	}
	if err := json.Unmarshal(body.Data, &report); err != nil {
		t.Fatalf("decode structure-changed: %v", err)
	}
	if report.TriggerType != domain.TriggerAutomatic {
		t.Fatalf("expected automatic trigger, got %s", report.TriggerType)
	}
}

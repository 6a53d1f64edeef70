package evaluation

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/leads"
)

type stubQualifier struct {
	answers map[string]stubAnswer
	calls   []string
}

type stubAnswer struct {
	result *ai.QualificationResult
	err    error
}

func (s *stubQualifier) Qualify(_ context.Context, lead leads.Lead) (*ai.QualificationResult, error) {
	s.calls = append(s.calls, lead.Name)
	a, ok := s.answers[lead.Name]
	if !ok {
		return nil, errors.New("no scripted answer")
	}
	return a.result, a.err
}

func answer(v ai.Verdict, confidence int) stubAnswer {
	return stubAnswer{result: &ai.QualificationResult{Verdict: v, Confidence: confidence, Reasoning: "because"}}
}

func fixture(name string, v ai.Verdict, lo, hi int) Fixture {
	return Fixture{
		Lead:                    leads.Lead{Name: name, Email: name + "@example.com"},
		ExpectedVerdict:         v,
		ExpectedConfidenceRange: [2]int{lo, hi},
	}
}

type waits struct{ got []time.Duration }

func (w *waits) wait(_ context.Context, d time.Duration) error {
	w.got = append(w.got, d)
	return nil
}

func TestRunToleratesTransportError(t *testing.T) {
	q := &stubQualifier{answers: map[string]stubAnswer{
		"a": answer(ai.VerdictQualified, 80),
		"b": {err: &ai.TransportError{Attempts: 3, Err: errors.New("connection refused")}},
		"c": answer(ai.VerdictNotQualified, 65),
	}}
	w := &waits{}
	core, observed := observer.New(zapcore.WarnLevel)

	fixtures := []Fixture{
		fixture("a", ai.VerdictQualified, 70, 90),
		fixture("b", ai.VerdictQualified, 70, 90),
		fixture("c", ai.VerdictNotQualified, 60, 80),
	}

	report, err := New(q, zap.New(core), WithWait(w.wait)).Run(context.Background(), fixtures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalTests != 3 || report.ErrorTests != 1 || report.PassedTests != 2 || report.FailedTests != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	for i, name := range []string{"a", "b", "c"} {
		if report.Results[i].LeadID != name {
			t.Fatalf("result %d: expected %s, got %s", i, name, report.Results[i].LeadID)
		}
	}

	errored := report.Results[1]
	if errored.Status != StatusError || errored.ActualVerdict != "error" || errored.ActualConfidence != 0 {
		t.Fatalf("unexpected error outcome: %+v", errored)
	}
	if errored.ErrorKind != ErrorTransport || errored.SchemaValid || len(errored.SchemaErrors) != 1 {
		t.Fatalf("unexpected error classification: %+v", errored)
	}

	if len(w.got) != 2 || w.got[0] != DefaultDelay || w.got[1] != DefaultDelay {
		t.Fatalf("expected a delay between each pair of calls, got %v", w.got)
	}
	if observed.FilterMessage("fixture errored").Len() != 1 {
		t.Fatal("expected the errored fixture to be logged")
	}
}

func TestRunClassifiesExclusively(t *testing.T) {
	q := &stubQualifier{answers: map[string]stubAnswer{
		"pass":          answer(ai.VerdictQualified, 75),
		"wrong-verdict": answer(ai.VerdictNotQualified, 75),
		"out-of-range":  answer(ai.VerdictQualified, 95),
		"both-wrong":    answer(ai.VerdictNeedsMoreInfo, 10),
		"schema":        {err: &ai.SchemaError{Field: "confidence", Reason: "missing"}},
		"panic-ish":     {err: errors.New("nil pointer")},
		"lower-bound":   answer(ai.VerdictQualified, 70),
		"upper-bound":   answer(ai.VerdictQualified, 90),
	}}

	var fixtures []Fixture
	for _, name := range []string{"pass", "wrong-verdict", "out-of-range", "both-wrong", "schema", "panic-ish", "lower-bound", "upper-bound"} {
		fixtures = append(fixtures, fixture(name, ai.VerdictQualified, 70, 90))
	}

	report, err := New(q, nil, WithDelay(0), WithWait((&waits{}).wait)).Run(context.Background(), fixtures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]Status{
		"pass":          StatusPassed,
		"wrong-verdict": StatusFailed,
		"out-of-range":  StatusFailed,
		"both-wrong":    StatusFailed,
		"schema":        StatusError,
		"panic-ish":     StatusError,
		"lower-bound":   StatusPassed,
		"upper-bound":   StatusPassed,
	}
	for _, o := range report.Results {
		if o.Status != want[o.LeadID] {
			t.Fatalf("%s: expected %s, got %s", o.LeadID, want[o.LeadID], o.Status)
		}
		if o.OverallPass != (o.Status == StatusPassed) {
			t.Fatalf("%s: overall_pass disagrees with status", o.LeadID)
		}
	}

	if report.PassedTests+report.FailedTests+report.ErrorTests != report.TotalTests {
		t.Fatalf("partition does not cover all fixtures: %+v", report)
	}
	if report.PassedTests != 3 || report.FailedTests != 3 || report.ErrorTests != 2 {
		t.Fatalf("unexpected counts: passed=%d failed=%d errors=%d", report.PassedTests, report.FailedTests, report.ErrorTests)
	}

	// verdict matches: pass, out-of-range, lower, upper
	if report.VerdictAccuracy != 4.0/8.0 {
		t.Fatalf("unexpected verdict accuracy %v", report.VerdictAccuracy)
	}
	// in range: pass, wrong-verdict, lower, upper
	if report.ConfidenceAccuracy != 4.0/8.0 {
		t.Fatalf("unexpected confidence accuracy %v", report.ConfidenceAccuracy)
	}
	if report.SchemaComplianceRate != 6.0/8.0 || report.TotalSchemaErrors != 2 {
		t.Fatalf("unexpected schema metrics: %v / %d", report.SchemaComplianceRate, report.TotalSchemaErrors)
	}
	if report.Results[4].ErrorKind != ErrorSchema || report.Results[5].ErrorKind != ErrorUnexpected {
		t.Fatalf("unexpected error kinds: %s, %s", report.Results[4].ErrorKind, report.Results[5].ErrorKind)
	}
}

func TestRunEmptyFixtures(t *testing.T) {
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	report, err := New(&stubQualifier{}, nil, WithClock(func() time.Time { return started })).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalTests != 0 || report.PassRate != 0 || report.AvgPromptCompleteness != 0 {
		t.Fatalf("unexpected empty report: %+v", report)
	}
	if !report.Timestamp.Equal(started) {
		t.Fatalf("expected timestamp %v, got %v", started, report.Timestamp)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	q := &stubQualifier{answers: map[string]stubAnswer{
		"a": answer(ai.VerdictQualified, 80),
		"b": answer(ai.VerdictQualified, 80),
	}}
	ctx, cancel := context.WithCancel(context.Background())
	wait := func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	report, err := New(q, nil, WithWait(wait)).Run(ctx, []Fixture{
		fixture("a", ai.VerdictQualified, 70, 90),
		fixture("b", ai.VerdictQualified, 70, 90),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if report == nil || report.TotalTests != 1 || len(q.calls) != 1 {
		t.Fatalf("expected a partial report with one attempt, got %+v", report)
	}
}

func TestRunComputesPromptCompleteness(t *testing.T) {
	q := &stubQualifier{answers: map[string]stubAnswer{}}
	fixtures := DefaultFixtures()
	for _, f := range fixtures {
		q.answers[f.Lead.Name] = answer(f.ExpectedVerdict, f.ExpectedConfidenceRange[0])
	}
	sparse := fixture("sparse", ai.VerdictNeedsMoreInfo, 0, 100)
	q.answers["sparse"] = answer(ai.VerdictNeedsMoreInfo, 50)
	fixtures = append(fixtures, sparse)

	report, err := New(q, nil, WithDelay(0)).Run(context.Background(), fixtures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// five complete fixtures plus one with name and email only
	want := (5*1.0 + 2.0/7.0) / 6
	if math.Abs(report.AvgPromptCompleteness-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, report.AvgPromptCompleteness)
	}
	if report.PassRate != 1 {
		t.Fatalf("expected all fixtures to pass, got %v", report.PassRate)
	}
}

func TestDefaultFixtures(t *testing.T) {
	fixtures := DefaultFixtures()
	if len(fixtures) != 5 {
		t.Fatalf("expected 5 fixtures, got %d", len(fixtures))
	}
	first := fixtures[0]
	if first.Lead.Name != "Sarah Johnson" || first.ExpectedVerdict != ai.VerdictQualified || first.ExpectedConfidenceRange != [2]int{70, 90} {
		t.Fatalf("unexpected first fixture: %+v", first)
	}
	if first.Lead.Phone != "+1-555-0123" {
		t.Fatalf("phone should be kept as a string, got %q", first.Lead.Phone)
	}
}

func TestLoadFixturesValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad verdict", "- name: A\n  expected_verdict: maybe\n  expected_confidence_range: [1, 2]\n"},
		{"inverted range", "- name: A\n  expected_verdict: qualified\n  expected_confidence_range: [90, 10]\n"},
		{"short range", "- name: A\n  expected_verdict: qualified\n  expected_confidence_range: [90]\n"},
		{"unknown field", "- name: A\n  budget: 10\n  expected_verdict: qualified\n  expected_confidence_range: [1, 2]\n"},
		{"missing name", "- expected_verdict: qualified\n  expected_confidence_range: [1, 2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fixtures.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("write fixtures: %v", err)
			}
			if _, err := LoadFixtures(path); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestFilter(t *testing.T) {
	got := Filter(DefaultFixtures(), []string{"lisa wang", " Mike Chen "})
	if len(got) != 2 || got[0].Lead.Name != "Mike Chen" || got[1].Lead.Name != "Lisa Wang" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if len(Filter(DefaultFixtures(), nil)) != 5 {
		t.Fatal("empty filter should keep all fixtures")
	}
}

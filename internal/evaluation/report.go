package evaluation

import (
	"time"

	"github.com/spigell/lead-responder/internal/ai"
)

// Status is the exclusive classification of a single fixture.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
)

type ErrorKind string

const (
	ErrorTransport  ErrorKind = "transport"
	ErrorSchema     ErrorKind = "schema"
	ErrorUnexpected ErrorKind = "unexpected"
)

// Outcome is the evaluation of one fixture.
type Outcome struct {
	LeadID                  string     `json:"lead_id"`
	Status                  Status     `json:"status"`
	ActualVerdict           string     `json:"actual_verdict"`
	ExpectedVerdict         ai.Verdict `json:"expected_verdict"`
	ActualConfidence        int        `json:"actual_confidence"`
	ExpectedConfidenceRange [2]int     `json:"expected_confidence_range"`
	VerdictMatch            bool       `json:"verdict_match"`
	ConfidenceInRange       bool       `json:"confidence_in_range"`
	OverallPass             bool       `json:"overall_pass"`
	Reasoning               string     `json:"reasoning"`
	SchemaValid             bool       `json:"schema_valid"`
	SchemaErrors            []string   `json:"schema_errors"`
	ErrorKind               ErrorKind  `json:"error_kind,omitempty"`
	Error                   string     `json:"error,omitempty"`
}

type Report struct {
	Timestamp             time.Time `json:"timestamp"`
	TotalTests            int       `json:"total_tests"`
	PassedTests           int       `json:"passed_tests"`
	FailedTests           int       `json:"failed_tests"`
	ErrorTests            int       `json:"error_tests"`
	PassRate              float64   `json:"pass_rate"`
	VerdictAccuracy       float64   `json:"verdict_accuracy"`
	ConfidenceAccuracy    float64   `json:"confidence_accuracy"`
	SchemaComplianceRate  float64   `json:"schema_compliance_rate"`
	TotalSchemaErrors     int       `json:"total_schema_errors"`
	AvgPromptCompleteness float64   `json:"avg_prompt_completeness"`
	Results               []Outcome `json:"results"`
}

func buildReport(ts time.Time, outcomes []Outcome, completeness []float64) *Report {
	r := &Report{
		Timestamp:  ts,
		TotalTests: len(outcomes),
		Results:    outcomes,
	}

	var verdicts, inRange, valid int
	for i := range outcomes {
		o := &outcomes[i]
		switch o.Status {
		case StatusPassed:
			r.PassedTests++
			o.OverallPass = true
		case StatusFailed:
			r.FailedTests++
		case StatusError:
			r.ErrorTests++
		}
		if o.VerdictMatch {
			verdicts++
		}
		if o.ConfidenceInRange {
			inRange++
		}
		if o.SchemaValid {
			valid++
		}
		r.TotalSchemaErrors += len(o.SchemaErrors)
	}

	r.PassRate = ratio(r.PassedTests, r.TotalTests)
	r.VerdictAccuracy = ratio(verdicts, r.TotalTests)
	r.ConfidenceAccuracy = ratio(inRange, r.TotalTests)
	r.SchemaComplianceRate = ratio(valid, r.TotalTests)
	r.AvgPromptCompleteness = mean(completeness)

	return r
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

package ai

import (
	"context"
)

// Verdict is the qualification outcome returned by the model.
type Verdict string

const (
	VerdictQualified     Verdict = "qualified"
	VerdictNotQualified  Verdict = "not_qualified"
	VerdictNeedsMoreInfo Verdict = "needs_more_info"
)

// Valid reports whether v is one of the allowed verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictQualified, VerdictNotQualified, VerdictNeedsMoreInfo:
		return true
	default:
		return false
	}
}

type QualificationResult struct {
	Verdict    Verdict  `json:"verdict"`
	Confidence int      `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Factors    []string `json:"factors"`
	Raw        string   `json:"-"`
}

type Variant struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type OutreachResult struct {
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Variants []Variant `json:"variants"`
	Raw      string    `json:"-"`
}

// Sender performs a single text completion against a remote model.
type Sender interface {
	Send(ctx context.Context, prompt string) (string, error)
	Model() string
}

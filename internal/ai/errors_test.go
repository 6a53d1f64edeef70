package ai

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsMatchQualification(t *testing.T) {
	cause := errors.New("connection reset")
	transport := fmt.Errorf("qualify lead 7: %w", &TransportError{Attempts: 3, Err: cause})
	schema := &SchemaError{Field: "confidence", Reason: "missing"}

	if !errors.Is(transport, ErrQualification) {
		t.Fatal("transport error should match ErrQualification")
	}
	if !errors.Is(transport, cause) {
		t.Fatal("transport error should unwrap to the last cause")
	}
	if !errors.Is(schema, ErrQualification) {
		t.Fatal("schema error should match ErrQualification")
	}

	var te *TransportError
	if !errors.As(transport, &te) || te.Attempts != 3 {
		t.Fatalf("expected TransportError with 3 attempts, got %+v", te)
	}

	if errors.Is(&ValidationError{Reason: "x"}, ErrQualification) {
		t.Fatal("validation error must not match ErrQualification")
	}
}

func TestVerdictValid(t *testing.T) {
	for _, v := range []Verdict{VerdictQualified, VerdictNotQualified, VerdictNeedsMoreInfo} {
		if !v.Valid() {
			t.Fatalf("expected %q to be valid", v)
		}
	}
	if Verdict("maybe").Valid() {
		t.Fatal("unexpected valid verdict")
	}
}

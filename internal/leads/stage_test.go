package leads

import "testing"

func TestStageIndex(t *testing.T) {
	tests := []struct {
		stage Stage
		want  int
	}{
		{StageNew, 0},
		{StageQualified, 1},
		{StageContacted, 2},
		{StageMeetingScheduled, 3},
		{StageWon, 4},
		{StageLost, 5},
		{Stage("Archived"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			if got := tt.stage.Index(); got != tt.want {
				t.Fatalf("expected index %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAdvanceOnQualification(t *testing.T) {
	tests := []struct {
		current Stage
		want    Stage
		changed bool
	}{
		{StageNew, StageQualified, true},
		{StageQualified, StageQualified, false},
		{StageContacted, StageContacted, false},
		{StageWon, StageWon, false},
		{StageLost, StageLost, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.current), func(t *testing.T) {
			got, changed := AdvanceOnQualification(tt.current)
			if got != tt.want || changed != tt.changed {
				t.Fatalf("expected (%s, %v), got (%s, %v)", tt.want, tt.changed, got, changed)
			}
			if got.Index() < tt.current.Index() {
				t.Fatalf("stage moved backward from %s to %s", tt.current, got)
			}
		})
	}
}

func TestEmailDomain(t *testing.T) {
	tests := map[string]string{
		"jane@Microsoft.COM": "microsoft.com",
		"no-at-sign":         "",
		"a@b.edu":            "b.edu",
		"":                   "",
	}
	for email, want := range tests {
		if got := (Lead{Email: email}).EmailDomain(); got != want {
			t.Fatalf("%q: expected %q, got %q", email, want, got)
		}
	}
}

func TestFilledFields(t *testing.T) {
	lead := Lead{Name: "A", Email: "a@b.com", Company: "  ", Notes: "n"}
	if got := lead.FilledFields(); got != 3 {
		t.Fatalf("expected 3 filled fields, got %d", got)
	}
}

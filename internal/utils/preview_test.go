package utils

import "testing"

func TestPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "short values pass through",
			input:  "qualified",
			limit:  10,
			expect: "qualified",
		},
		{
			name:   "cut values report their length",
			input:  "hello world",
			limit:  5,
			expect: "hello... (11 chars)",
		},
		{
			name:   "counts runes",
			input:  "Müller GmbH - Einkauf",
			limit:  6,
			expect: "Müller... (21 chars)",
		},
		{
			name:   "prompt lines are joined",
			input:  "Lead: Sarah Johnson\nTitle: CEO",
			limit:  19,
			expect: "Lead: Sarah Johnson... (30 chars)",
		},
		{
			name:   "whitespace runs collapse",
			input:  "  {\n\t\"verdict\":   \"qualified\"\n}  ",
			limit:  40,
			expect: "{ \"verdict\": \"qualified\" }",
		},
		{
			name:   "exact fit is not cut",
			input:  "spaced",
			limit:  6,
			expect: "spaced",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Preview(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

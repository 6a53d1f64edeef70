package evaluation

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/leads"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixture is a hand-labelled lead with the expected qualification.
type Fixture struct {
	Lead                    leads.Lead
	ExpectedVerdict         ai.Verdict
	ExpectedConfidenceRange [2]int
}

// InRange reports whether confidence falls inside the expected range, bounds included.
func (f Fixture) InRange(confidence int) bool {
	return confidence >= f.ExpectedConfidenceRange[0] && confidence <= f.ExpectedConfidenceRange[1]
}

type fixtureRecord struct {
	Name                    string `yaml:"name"`
	Email                   string `yaml:"email"`
	Company                 string `yaml:"company"`
	Title                   string `yaml:"title"`
	Phone                   string `yaml:"phone"`
	LinkedInURL             string `yaml:"linkedin_url"`
	Notes                   string `yaml:"notes"`
	ExpectedVerdict         string `yaml:"expected_verdict"`
	ExpectedConfidenceRange []int  `yaml:"expected_confidence_range"`
}

// DefaultFixtures returns the built-in labelled set.
func DefaultFixtures() []Fixture {
	fixtures, err := ParseFixtures(defaultFixtures)
	if err != nil {
		panic(fmt.Sprintf("embedded fixtures are invalid: %v", err))
	}
	return fixtures
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %q: %w", path, err)
	}
	return ParseFixtures(data)
}

func ParseFixtures(data []byte) ([]Fixture, error) {
	var records []fixtureRecord
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	fixtures := make([]Fixture, 0, len(records))
	for i, r := range records {
		f, err := r.fixture()
		if err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i+1, err)
		}
		fixtures = append(fixtures, f)
	}

	return fixtures, nil
}

func (r fixtureRecord) fixture() (Fixture, error) {
	if strings.TrimSpace(r.Name) == "" {
		return Fixture{}, &ai.ValidationError{Field: "name", Reason: "is required"}
	}

	verdict := ai.Verdict(r.ExpectedVerdict)
	if !verdict.Valid() {
		return Fixture{}, &ai.ValidationError{Field: "expected_verdict", Reason: fmt.Sprintf("unknown verdict %q", r.ExpectedVerdict)}
	}

	if len(r.ExpectedConfidenceRange) != 2 {
		return Fixture{}, &ai.ValidationError{Field: "expected_confidence_range", Reason: "must be [min, max]"}
	}
	lo, hi := r.ExpectedConfidenceRange[0], r.ExpectedConfidenceRange[1]
	if lo < 0 || hi > 100 || lo > hi {
		return Fixture{}, &ai.ValidationError{Field: "expected_confidence_range", Reason: fmt.Sprintf("invalid range [%d, %d]", lo, hi)}
	}

	return Fixture{
		Lead: leads.Lead{
			Name:        r.Name,
			Email:       r.Email,
			Company:     r.Company,
			Title:       r.Title,
			Phone:       r.Phone,
			LinkedInURL: r.LinkedInURL,
			Notes:       r.Notes,
			Stage:       leads.StageNew,
		},
		ExpectedVerdict:         verdict,
		ExpectedConfidenceRange: [2]int{lo, hi},
	}, nil
}

// Filter keeps fixtures whose lead name is listed. An empty list keeps everything.
func Filter(fixtures []Fixture, names []string) []Fixture {
	if len(names) == 0 {
		return fixtures
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}

	out := make([]Fixture, 0, len(fixtures))
	for _, f := range fixtures {
		if _, ok := wanted[strings.ToLower(f.Lead.Name)]; ok {
			out = append(out, f)
		}
	}
	return out
}

package qualifier

import (
	_ "embed"
	"strings"

	"github.com/spigell/lead-responder/internal/leads"
)

//go:embed qualify.md
var qualifyTemplate string

//go:embed outreach.md
var outreachTemplate string

const (
	notProvided = "Not provided"
	none        = "None"
	unknown     = "Unknown"
)

// PromptField is a lead attribute as rendered into a prompt.
type PromptField struct {
	Placeholder string
	Value       string
	Provided    bool
}

// QualificationFields returns the seven tracked lead fields in prompt order,
// substituting a placeholder for every empty one.
func QualificationFields(lead leads.Lead) []PromptField {
	return []PromptField{
		field("NAME", lead.Name, unknown),
		field("TITLE", lead.Title, unknown),
		field("COMPANY", lead.Company, unknown),
		field("EMAIL", lead.Email, unknown),
		field("PHONE", lead.Phone, notProvided),
		field("LINKEDIN", lead.LinkedInURL, notProvided),
		field("NOTES", lead.Notes, none),
	}
}

// PromptCompleteness is the share of tracked fields that reached the prompt
// with a real value.
func PromptCompleteness(lead leads.Lead) float64 {
	fields := QualificationFields(lead)
	provided := 0
	for _, f := range fields {
		if f.Provided {
			provided++
		}
	}
	return float64(provided) / float64(len(fields))
}

func field(placeholder, value, fallback string) PromptField {
	value = strings.TrimSpace(value)
	if value == "" {
		return PromptField{Placeholder: placeholder, Value: fallback}
	}
	return PromptField{Placeholder: placeholder, Value: value, Provided: true}
}

// render fills every placeholder in one pass, so lead values are never
// rescanned for placeholders.
func render(template string, fields []PromptField) string {
	pairs := make([]string, 0, 2*len(fields))
	for _, f := range fields {
		pairs = append(pairs, "{{"+f.Placeholder+"}}", f.Value)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}

func buildQualificationPrompt(lead leads.Lead) string {
	return render(qualifyTemplate, QualificationFields(lead))
}

func buildOutreachPrompt(lead leads.Lead, extra string) string {
	name := strings.TrimSpace(lead.Name)
	if name == "" {
		name = "there"
	}

	contextSection := ""
	if extra = strings.TrimSpace(extra); extra != "" {
		contextSection = "\nAdditional Context: " + extra
	}

	return render(outreachTemplate, []PromptField{
		{Placeholder: "NAME", Value: name},
		field("TITLE", lead.Title, notProvided),
		field("COMPANY", lead.Company, notProvided),
		{Placeholder: "CONTEXT", Value: contextSection},
	})
}

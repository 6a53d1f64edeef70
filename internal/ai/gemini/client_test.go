package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/genai"
)

type fakeModels struct {
	calls []fakeCall
	resp  *genai.GenerateContentResponse
	err   error
}

type fakeCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	prompt := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		prompt = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, fakeCall{model: model, prompt: prompt, config: config})
	return f.resp, f.err
}

func TestGeneratorSendUsesFirstCandidate(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking about it", Thought: true},
				{Text: " {\"verdict\": "},
				nil,
				{Text: "  "},
				{Text: "\"qualified\"}"},
			}}},
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "ignored"}}}},
		},
	}}

	g := &Generator{models: models, modelName: "gemini-pro"}
	WithTemperature(0.2)(g)

	output, err := g.Send(context.Background(), "  qualify  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "{\"verdict\":\n\"qualified\"}" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "gemini-pro" || call.prompt != "qualify" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.config == nil || call.config.ResponseMIMEType != jsonMIMEType {
		t.Fatalf("expected json response mime type, got %+v", call.config)
	}
	if call.config.SystemInstruction == nil || call.config.Temperature == nil || *call.config.Temperature != 0.2 {
		t.Fatalf("expected system instruction and temperature, got %+v", call.config)
	}
}

func TestGeneratorSendErrors(t *testing.T) {
	apiErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}

	tests := []struct {
		name   string
		models *fakeModels
		prompt string
	}{
		{"api error", &fakeModels{err: apiErr}, "prompt"},
		{"empty response", &fakeModels{resp: &genai.GenerateContentResponse{}}, "prompt"},
		{"empty prompt", &fakeModels{}, "   "},
		{"blocked prompt", &fakeModels{resp: &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
		}}, "prompt"},
		{"stopped by safety", &fakeModels{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{}, FinishReason: genai.FinishReasonSafety}},
		}}, "prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Generator{models: tt.models, modelName: "gemini-pro"}
			if _, err := g.Send(context.Background(), tt.prompt); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	var uninitialized *Generator
	if _, err := uninitialized.Send(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error from nil generator")
	}
	if _, err := (&Generator{models: &fakeModels{err: apiErr}, modelName: "m"}).Send(context.Background(), "p"); !errors.As(err, new(genai.APIError)) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

// Package gemini sends qualification prompts to Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-pro"

	jsonMIMEType = "application/json"

	systemInstruction = "You are a B2B sales development assistant. Answer with a single JSON object and nothing else."
)

var errEmptyResponse = errors.New("gemini api returned empty response")

// modelsAPI is the subset of genai.Models used by the generator.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator implements ai.Sender on top of the GenAI SDK.
type Generator struct {
	models      modelsAPI
	modelName   string
	temperature *float32
}

type Option func(*Generator)

// WithTemperature pins the sampling temperature. The model default is used otherwise.
func WithTemperature(t float32) Option {
	return func(g *Generator) {
		g.temperature = genai.Ptr(t)
	}
}

// NewGenerator creates a Generator for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, opts ...Option) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	g := &Generator{models: client.Models, modelName: model}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Send asks for a JSON answer and returns the text of the first candidate.
func (g *Generator) Send(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType:  jsonMIMEType,
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       g.temperature,
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return firstCandidateText(resp)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// firstCandidateText joins the non-thought text parts of the first usable
// candidate. A blocked prompt or an empty answer is an error.
func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errEmptyResponse
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked the prompt: %s", fb.BlockReason)
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		var parts []string
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if text := strings.TrimSpace(part.Text); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), nil
		}
		if candidate.FinishReason != "" && candidate.FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("gemini stopped without an answer: %s", candidate.FinishReason)
		}
	}

	return "", errEmptyResponse
}

package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestNewSender(t *testing.T) {
	t.Setenv("XAI_API_KEY", "")
	t.Setenv("GROK_API_KEY", "")

	tests := []struct {
		name      string
		cfg       AIConfig
		wantModel string
		wantErr   string
	}{
		{name: "xai with inline key", cfg: AIConfig{Provider: "XAI", APIKey: "k", Model: "grok-3-mini"}, wantModel: "grok-3-mini"},
		{name: "disabled", cfg: AIConfig{Provider: "none"}, wantErr: errNoProvider.Error()},
		{name: "unknown provider", cfg: AIConfig{Provider: "openai"}, wantErr: "unknown ai provider"},
		{name: "missing key", cfg: AIConfig{Provider: "xai"}, wantErr: "XAI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := newSender(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sender.Model() != tt.wantModel {
				t.Fatalf("expected model %q, got %q", tt.wantModel, sender.Model())
			}
		})
	}

	t.Setenv("XAI_API_KEY", "from-env")
	if _, err := newSender(context.Background(), AIConfig{Provider: "xai"}); err != nil {
		t.Fatalf("expected env fallback, got %v", err)
	}
}

func TestGetConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Database.Path != "lead-responder.db" || cfg.Server.Address != ":8000" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AI.MaxRetries != 3 || cfg.Evaluation.Delay.Milliseconds() != 500 {
		t.Fatalf("unexpected ai/evaluation defaults %+v %+v", cfg.AI, cfg.Evaluation)
	}
}

package llm

import (
	"errors"
	"testing"

	contractx "github.com/autoosone/auto-state/agent/contract"
)

func TestConfigDisabledWithoutKey(t *testing.T) {
	t.Parallel()

	cfg := Config{Model: ""}
	if cfg.Enabled() {
		t.Fatalf("Enabled() = true without api key")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil for disabled config", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "k", Model: "m", MaxToolRounds: 0, HistoryLimit: 10}
	if err := cfg.Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}

	cfg.MaxToolRounds = 3
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestOpenRouterCopiesSettings(t *testing.T) {
	t.Parallel()

	cfg := Config{
		BaseURL:            " https://example.test/v1 ",
		APIKey:             " key ",
		Model:              "openai/gpt-4o-mini",
		MaxCompletionToken: 512,
		Temperature:        0.2,
	}
	got := cfg.OpenRouter()
	if got.APIKey != "key" || got.BaseURL != "https://example.test/v1" {
		t.Fatalf("OpenRouter() = %+v, want trimmed values", got)
	}
	if got.MaxCompletionToken == nil || *got.MaxCompletionToken != 512 {
		t.Fatalf("MaxCompletionToken = %v, want 512", got.MaxCompletionToken)
	}
	if !got.Enabled() {
		t.Fatalf("Enabled() = false")
	}
}

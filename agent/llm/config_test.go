package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "key", Model: "llama-3.3-70b-versatile"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing api key, got %v", err)
	}
	if err := (Config{APIKey: "key"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing model, got %v", err)
	}
}

func TestGroqForRoleOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		BaseURL:               "https://api.groq.com/openai/v1",
		APIKey:                "key",
		Model:                 "llama-3.3-70b-versatile",
		Temperature:           0.1,
		MaxCompletionToken:    2000,
		ClassifierModel:       "llama-3.1-8b-instant",
		ClassifierTemperature: 0,
		ReasonerTemperature:   -1,
		VisionModel:           "llama-3.2-90b-vision-preview",
	}

	classifier := cfg.GroqFor(RoleClassifier)
	if classifier.Model != "llama-3.1-8b-instant" {
		t.Fatalf("classifier model = %q", classifier.Model)
	}
	if classifier.Temperature != 0 {
		t.Fatalf("classifier temperature = %v, want override 0", classifier.Temperature)
	}

	reasoner := cfg.GroqFor(RoleReasoner)
	if reasoner.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("reasoner model = %q, want default", reasoner.Model)
	}
	if reasoner.Temperature != 0.1 {
		t.Fatalf("reasoner temperature = %v, want default", reasoner.Temperature)
	}

	vision := cfg.GroqFor(RoleVision)
	if vision.Model != "llama-3.2-90b-vision-preview" {
		t.Fatalf("vision model = %q", vision.Model)
	}
	if vision.MaxCompletionToken == nil || *vision.MaxCompletionToken != 2000 {
		t.Fatalf("vision max tokens = %v", vision.MaxCompletionToken)
	}
}

package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
	groqx "github.com/tanpawarit/aura-supervisor/pkg/groq"
)

// Role names one model consumer inside the supervisor.
type Role string

const (
	RoleClassifier Role = "classifier"
	RoleReasoner   Role = "reasoner"
	RoleSummarizer Role = "summarizer"
	RoleVision     Role = "vision"
)

// Config carries the shared model settings plus per-role overrides. A
// role falls back to the default model/temperature when its override is
// unset (temperature override of -1 means "use the default").
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.groq.com/openai/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.1"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`

	ClassifierModel       string  `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
	ReasonerModel         string  `envconfig:"REASONER_MODEL" split_words:"true"`
	SummarizerModel       string  `envconfig:"SUMMARIZER_MODEL" split_words:"true"`
	VisionModel           string  `envconfig:"VISION_MODEL" split_words:"true"`
	ClassifierTemperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" split_words:"true" default:"-1"`
	ReasonerTemperature   float32 `envconfig:"REASONER_TEMPERATURE" split_words:"true" default:"-1"`
	SummarizerTemperature float32 `envconfig:"SUMMARIZER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: groq api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// GroqFor resolves the effective model settings for one role.
func (c Config) GroqFor(role Role) groqx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := func(model string, temperature float32) {
		if v := strings.TrimSpace(model); v != "" {
			modelName = v
		}
		if temperature >= 0 {
			temp = temperature
		}
	}

	switch role {
	case RoleClassifier:
		override(c.ClassifierModel, c.ClassifierTemperature)
	case RoleReasoner:
		override(c.ReasonerModel, c.ReasonerTemperature)
	case RoleSummarizer:
		override(c.SummarizerModel, c.SummarizerTemperature)
	case RoleVision:
		override(c.VisionModel, -1)
	}

	maxCompletionToken := c.MaxCompletionToken
	return groqx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
	}
}

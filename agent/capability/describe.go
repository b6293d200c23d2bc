package capability

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

const describeSystemPrompt = `You are a specialist visual inspection assistant for industrial repair work.
Analyze the supplied image and reply with a concise, factual description.
- Start with a single-sentence overview of the scene.
- Use a bulleted list for key components, machinery, and visible labels or text.
- Describe the apparent state of each component (operational, idle, damaged, leaking).
- Be objective. Do not offer opinions or suggestions.`

// Describer produces a free-text description of an image through a
// vision-language model. Unlike Identifier it returns context rather than
// a structured inventory.
type Describer struct {
	client *openaisdk.Client
	model  string
}

func NewDescriber(client *openaisdk.Client, model string) (*Describer, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: vision client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: vision model is required", contractx.ErrValidation)
	}
	return &Describer{client: client, model: model}, nil
}

var _ contractx.DescribeClient = (*Describer)(nil)

func (c *Describer) Describe(ctx context.Context, image contractx.ImagePayload) (string, error) {
	if image.Empty() {
		return "", fmt.Errorf("%w: image is empty", contractx.ErrValidation)
	}

	userContent := openaisdk.ChatCompletionUserMessageParamContentUnion{
		OfArrayOfContentParts: []openaisdk.ChatCompletionContentPartUnionParam{
			openaisdk.TextContentPart("Describe this image for the technician."),
			openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL(image),
			}),
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(describeSystemPrompt),
			{OfUser: &openaisdk.ChatCompletionUserMessageParam{Content: userContent}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: describe: %v", contractx.ErrCapabilityUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: describe returned no choices", contractx.ErrSchemaViolation)
	}

	description := strings.TrimSpace(resp.Choices[0].Message.Content)
	if description == "" {
		return "", fmt.Errorf("%w: describe returned empty content", contractx.ErrSchemaViolation)
	}
	return description, nil
}

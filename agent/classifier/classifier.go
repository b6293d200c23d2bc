// Package classifier resolves a raw technician message into one of the
// supported actions by prompting the command model with the conversation
// history and the new input.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

type impl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

// New compiles the classifier graph against the given chat model.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.Classifier, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: classifier system prompt is required", contractx.ErrValidation)
	}
	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &impl{runner: runner}, nil
}

func (c *impl) Classify(ctx context.Context, history []contractx.Exchange, newText string, hasImage bool) (contractx.Action, error) {
	payload := map[string]any{
		"conversation_history": historyPayload(history),
		"new_text_input":       newText,
		"has_image":            hasImage,
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return contractx.Action{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	msg, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return contractx.Action{}, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.Action{}, fmt.Errorf("%w: classifier returned no message", contractx.ErrModelInvoke)
	}

	return ParseAction(msg.Content), nil
}

func historyPayload(history []contractx.Exchange) []map[string]string {
	out := make([]map[string]string, 0, len(history))
	for _, ex := range history {
		entry := map[string]string{}
		if ex.UserText != "" {
			entry["user_text_input"] = ex.UserText
		}
		if ex.AssistantText != "" {
			entry["aura_text_response"] = ex.AssistantText
		}
		if len(entry) == 0 {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func compileClassifierGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := promptTemplate(systemPrompt)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add classifier prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add classifier model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add classifier edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add classifier edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add classifier edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("classifier.action_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile classifier graph: %w", err)
	}
	return runner, nil
}

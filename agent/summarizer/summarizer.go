// Package summarizer condenses a finished session's interaction log into a
// final report for the maintenance record.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

type impl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

// New compiles the summarizer graph against the given chat model.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.Summarizer, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: summarizer system prompt is required", contractx.ErrValidation)
	}
	runner, err := compileSummarizerGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile summarizer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &impl{runner: runner}, nil
}

func (s *impl) Summarize(ctx context.Context, logText string) (string, error) {
	if strings.TrimSpace(logText) == "" {
		return "", fmt.Errorf("%w: log text is required", contractx.ErrValidation)
	}

	msg, err := s.runner.Invoke(ctx, map[string]any{
		"input": logText,
	})
	if err != nil {
		return "", fmt.Errorf("%w: summarizer invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: summarizer returned an empty report", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(msg.Content), nil
}

func compileSummarizerGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add summarizer prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add summarizer model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add summarizer edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add summarizer edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add summarizer edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("summarizer.report_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile summarizer graph: %w", err)
	}
	return runner, nil
}

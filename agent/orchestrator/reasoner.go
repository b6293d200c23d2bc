package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
	statex "github.com/tanpawarit/aura-supervisor/agent/state"
	toolx "github.com/tanpawarit/aura-supervisor/agent/tool"
)

// maxToolIterations bounds the reasoning loop. Exhausting the budget
// degrades to a final reply, never a crash.
const maxToolIterations = 10

// ReasoningModel couples a tool-calling chat model with its system prompt.
type ReasoningModel struct {
	Model        einomodel.ToolCallingChatModel
	SystemPrompt string
}

// reasonTurn runs the bounded tool-calling loop over the closed toolset.
// Annotated images produced mid-loop are captured and attached to the
// final reply even when the reply text comes from a later iteration.
func (o *Orchestrator) reasonTurn(ctx context.Context, sessionID string, history []contractx.Exchange, userText string, image contractx.ImagePayload) contractx.AssistantReply {
	model, err := o.reasoner.Model.WithTools(toolx.Infos())
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to bind toolset")
		return contractx.AssistantReply{Text: fmt.Sprintf("An agent failed to respond. Please try again. Error: %v", err)}
	}

	messages := o.reasonerMessages(history, userText, image)
	var annotated contractx.ImagePayload

	for i := 0; i < maxToolIterations; i++ {
		msg, err := model.Generate(ctx, messages)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("reasoning model invocation failed")
			return contractx.AssistantReply{Text: fmt.Sprintf("An agent failed to respond. Please try again. Error: %v", err), AnnotatedImage: annotated}
		}
		if msg == nil {
			return contractx.AssistantReply{Text: "An agent failed to respond. Please try again.", AnnotatedImage: annotated}
		}

		if len(msg.ToolCalls) == 0 {
			text := strings.TrimSpace(msg.Content)
			if text == "" {
				text = "An agent failed to respond. Please try again."
			}
			return contractx.AssistantReply{Text: text, AnnotatedImage: annotated}
		}

		// One tool call per iteration; extras are ignored.
		call := msg.ToolCalls[0]
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				messages = append(messages, msg, schema.ToolMessage(fmt.Sprintf("invalid tool arguments: %v", err), call.ID))
				continue
			}
		}

		log.Debug().
			Str("session_id", sessionID).
			Str("tool", call.Function.Name).
			Int("iteration", i).
			Msg("reasoning loop tool call")

		if call.Function.Name == toolx.ToolEndSession {
			reply, ok := o.endFromLoop(ctx, sessionID, args, annotated)
			if ok {
				return reply
			}
			messages = append(messages, msg, schema.ToolMessage("end_session rejected: outcome must be success or failure", call.ID))
			continue
		}

		result, err := o.executor(ctx, call.Function.Name, args, image)
		if err != nil {
			messages = append(messages, msg, schema.ToolMessage(fmt.Sprintf("tool call rejected: %v", err), call.ID))
			continue
		}
		if !result.Image.Empty() {
			annotated = result.Image
		}

		feedback := result.Content
		if result.Error != "" {
			feedback = fmt.Sprintf("tool error: %s", result.Error)
		}
		messages = append(messages, msg, schema.ToolMessage(feedback, call.ID))
	}

	log.Warn().Str("session_id", sessionID).Int("budget", maxToolIterations).Msg("reasoning loop budget exhausted")
	return contractx.AssistantReply{
		Text:           "I could not finish reasoning about this request within my step budget. Please rephrase or break the task into smaller parts.",
		AnnotatedImage: annotated,
	}
}

// endFromLoop closes the session on behalf of the end_session tool. The
// closing message becomes the loop's final reply, which the caller appends
// to the ledger.
func (o *Orchestrator) endFromLoop(ctx context.Context, sessionID string, args map[string]any, annotated contractx.ImagePayload) (contractx.AssistantReply, bool) {
	outcome, err := toolx.OutcomeArg(args)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("end_session call with invalid outcome")
		return contractx.AssistantReply{}, false
	}
	target, err := statex.StatusForOutcome(outcome)
	if err != nil {
		return contractx.AssistantReply{}, false
	}

	_, closing, err := o.closeSession(ctx, sessionID, target)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to close session from reasoning loop")
		return contractx.AssistantReply{Text: fmt.Sprintf("An agent failed to respond. Please try again. Error: %v", err), AnnotatedImage: annotated}, true
	}
	return contractx.AssistantReply{Text: closing, AnnotatedImage: annotated}, true
}

func (o *Orchestrator) reasonerMessages(history []contractx.Exchange, userText string, image contractx.ImagePayload) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(o.reasoner.SystemPrompt))
	for _, ex := range history {
		if ex.UserText != "" {
			messages = append(messages, schema.UserMessage(ex.UserText))
		}
		if ex.AssistantText != "" {
			messages = append(messages, schema.AssistantMessage(ex.AssistantText, nil))
		}
	}

	current := userText
	if !image.Empty() {
		if current == "" {
			current = "[the technician attached an image to this turn]"
		} else {
			current += "\n[the technician attached an image to this turn]"
		}
	}
	return append(messages, schema.UserMessage(current))
}

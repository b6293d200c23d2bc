package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// dispatchAction runs the fixed case table for the deterministic strategy.
// It always returns a reply; any capability failure folds into the text.
func (o *Orchestrator) dispatchAction(ctx context.Context, sessionID string, action contractx.Action, image contractx.ImagePayload) contractx.AssistantReply {
	switch action.Type {
	case contractx.ActionIdentifyAndClarify:
		return o.identifyAndClarify(ctx, sessionID, action, image)
	case contractx.ActionFetchProcedure:
		return o.fetchProcedure(ctx, sessionID, action)
	case contractx.ActionAnswerQuestion:
		return contractx.AssistantReply{
			Text: fmt.Sprintf("Regarding your question about '%s': I am an operational assistant. For detailed technical questions, please consult the official documentation.", action.Question),
		}
	default:
		log.Warn().Str("session_id", sessionID).Str("raw", action.Raw).Msg("unhandled action")
		return contractx.AssistantReply{
			Text: fmt.Sprintf("I understood the action '%s', but I don't know how to handle it yet.", action.Type),
		}
	}
}

func (o *Orchestrator) identifyAndClarify(ctx context.Context, sessionID string, action contractx.Action, image contractx.ImagePayload) contractx.AssistantReply {
	if image.Empty() {
		return contractx.AssistantReply{
			Text: "Action requires an image, but none was provided. Please upload an image.",
		}
	}

	detections, err := o.identify.Identify(ctx, image)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("identify capability failed")
		return contractx.AssistantReply{
			Text: fmt.Sprintf("An agent failed to respond. Please try again. Error: %v", err),
		}
	}

	labels := make([]string, 0, len(detections))
	for _, d := range detections {
		if d.Label != "" {
			labels = append(labels, d.Label)
		}
	}
	if len(labels) == 0 {
		return contractx.AssistantReply{
			Text: "I couldn't identify any known components in that image. Please try another picture.",
		}
	}
	return contractx.AssistantReply{
		Text: fmt.Sprintf("I see: %s. Your request mentioned '%s'. Please confirm which component you mean.", strings.Join(labels, ", "), action.UserQuery),
	}
}

func (o *Orchestrator) fetchProcedure(ctx context.Context, sessionID string, action contractx.Action) contractx.AssistantReply {
	component := strings.TrimSpace(action.ComponentName)
	if component == "" {
		return contractx.AssistantReply{
			Text: "I was asked to fetch a procedure, but the component name was missing. Please clarify.",
		}
	}

	resolution := o.resolver.Resolve(ctx, component)
	if resolution.Status != contractx.ResolutionFound || len(resolution.Steps) == 0 {
		log.Info().Str("session_id", sessionID).Str("component", component).Msg("no procedure available")
		return contractx.AssistantReply{Text: resolution.Message}
	}
	return contractx.AssistantReply{
		Text: fmt.Sprintf("Retrieved procedure for %s (source: %s). Step 1 is: %s", component, resolution.Source, resolution.Steps[0]),
	}
}

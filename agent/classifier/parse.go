package classifier

import (
	"encoding/json"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

func promptTemplate(systemPrompt string) einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)
}

type actionEnvelope struct {
	Action     string          `json:"action"`
	Parameters json.RawMessage `json:"parameters"`
}

type actionParameters struct {
	UserQuery     string `json:"user_query"`
	ComponentName string `json:"component_name"`
	Question      string `json:"question"`
}

// ParseAction interprets raw model output as an action envelope. Output that
// is not valid JSON, or names an action outside the closed set, yields an
// unknown action carrying the raw text so the caller can degrade gracefully
// instead of failing the turn.
func ParseAction(raw string) contractx.Action {
	content := stripFences(raw)

	var env actionEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		log.Warn().Err(err).Str("raw", truncateRaw(raw)).Msg("classifier output is not an action envelope")
		return contractx.Action{Type: contractx.ActionUnknown, Raw: raw}
	}

	var params actionParameters
	if len(env.Parameters) > 0 {
		if err := json.Unmarshal(env.Parameters, &params); err != nil {
			log.Warn().Err(err).Str("raw", truncateRaw(raw)).Msg("classifier parameters are malformed")
			return contractx.Action{Type: contractx.ActionUnknown, Raw: raw}
		}
	}

	switch contractx.ActionType(strings.TrimSpace(env.Action)) {
	case contractx.ActionIdentifyAndClarify:
		return contractx.Action{
			Type:      contractx.ActionIdentifyAndClarify,
			UserQuery: strings.TrimSpace(params.UserQuery),
			Raw:       raw,
		}
	case contractx.ActionFetchProcedure:
		return contractx.Action{
			Type:          contractx.ActionFetchProcedure,
			ComponentName: strings.TrimSpace(params.ComponentName),
			Raw:           raw,
		}
	case contractx.ActionAnswerQuestion:
		return contractx.Action{
			Type:     contractx.ActionAnswerQuestion,
			Question: strings.TrimSpace(params.Question),
			Raw:      raw,
		}
	default:
		log.Warn().Str("action", env.Action).Msg("classifier returned an unsupported action")
		return contractx.Action{Type: contractx.ActionUnknown, Raw: raw}
	}
}

// stripFences removes a surrounding markdown code fence when the model wraps
// its JSON despite instructions.
func stripFences(raw string) string {
	content := strings.TrimSpace(raw)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func truncateRaw(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

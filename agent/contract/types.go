package contract

import "time"

// ActionType is the classified intent of one user turn.
type ActionType string

const (
	ActionIdentifyAndClarify ActionType = "IDENTIFY_AND_CLARIFY"
	ActionFetchProcedure     ActionType = "FETCH_PROCEDURE"
	ActionAnswerQuestion     ActionType = "ANSWER_QUESTION"
	ActionUnknown            ActionType = "UNKNOWN"
)

// Action is the classifier output driving orchestration branching.
// Exactly one parameter field is meaningful for a given Type; Raw carries
// the unparsed model output when Type is ActionUnknown.
type Action struct {
	Type          ActionType `json:"type"`
	UserQuery     string     `json:"user_query,omitempty"`
	ComponentName string     `json:"component_name,omitempty"`
	Question      string     `json:"question,omitempty"`
	Raw           string     `json:"raw,omitempty"`
}

// Exchange is one prior conversational turn, formatted for the classifier.
// At most one of the two fields is set.
type Exchange struct {
	UserText      string `json:"user_text_input,omitempty"`
	AssistantText string `json:"aura_text_response,omitempty"`
}

// ImagePayload is a raw image plus its content type.
type ImagePayload struct {
	Data        []byte
	ContentType string
}

func (p ImagePayload) Empty() bool {
	return len(p.Data) == 0
}

// Detection is one object found by the identify capability.
// Box is [x1, y1, x2, y2] in pixel coordinates.
type Detection struct {
	Label      string  `json:"label"`
	Box        [4]int  `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Procedure is an operational runbook for a named component.
type Procedure struct {
	ProcedureID    string    `json:"procedure_id"`
	ComponentName  string    `json:"component_name"`
	Steps          []string  `json:"steps"`
	SafetyWarnings []string  `json:"safety_warnings"`
	LastSynced     time.Time `json:"last_synced,omitempty"`
}

// ResolutionStatus is the terminal outcome of a procedure lookup chain.
type ResolutionStatus string

const (
	ResolutionFound    ResolutionStatus = "found"
	ResolutionNotFound ResolutionStatus = "not_found"
)

// ProcedureOrigin tags which branch of the lookup chain produced a result.
type ProcedureOrigin string

const (
	OriginPrimary ProcedureOrigin = "primary/live"
	OriginCache   ProcedureOrigin = "cache/offline"
)

// Resolution is the outcome of a Resolve call. NotFound is a valid
// resolution state, not an error.
type Resolution struct {
	Status   ResolutionStatus `json:"status"`
	Steps    []string         `json:"steps,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Source   ProcedureOrigin  `json:"source,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// SessionOutcome is the explicit end-of-task signal inferred from
// conversational cues. It is never defaulted without evidence.
type SessionOutcome string

const (
	OutcomeSuccess SessionOutcome = "success"
	OutcomeFailure SessionOutcome = "failure"
)

// AssistantReply is the single product of one handled turn.
type AssistantReply struct {
	Text           string
	AnnotatedImage ImagePayload
}

// ToolResult is the outcome of one reasoning-loop tool call. A capability
// failure is reported through Error so the loop can keep going; Image is set
// only by tools that produce an annotated image.
type ToolResult struct {
	Tool    string       `json:"tool"`
	Content string       `json:"content,omitempty"`
	Image   ImagePayload `json:"-"`
	Error   string       `json:"error,omitempty"`
}

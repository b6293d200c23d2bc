// Package tool declares the closed toolset offered to the reasoning loop and
// the executor that dispatches validated calls onto the capability clients.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

const (
	ToolIdentify       = "identify"
	ToolDescribe       = "describe"
	ToolAnnotate       = "annotate"
	ToolFetchProcedure = "fetch_procedure"
	ToolEndSession     = "end_session"
)

// Deps are the capability clients the executor dispatches onto.
type Deps struct {
	Identify contractx.IdentifyClient
	Describe contractx.DescribeClient
	Annotate contractx.AnnotateClient
	Resolver contractx.Resolver
}

// Executor runs one validated tool call against the current turn's image.
// end_session is not executable here; the loop owner intercepts it.
type Executor func(ctx context.Context, name string, args map[string]any, image contractx.ImagePayload) (contractx.ToolResult, error)

// Build returns the declared tool infos and an executor bound to deps.
func Build(deps Deps) ([]*schema.ToolInfo, Executor) {
	return Infos(), NewExecutor(deps)
}

func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolIdentify,
			Desc: "Detect components in the image attached to the current turn. Returns labeled bounding boxes with confidences.",
			ParamsOneOf: schema.NewParamsOneOfByParams(
				map[string]*schema.ParameterInfo{},
			),
		},
		{
			Name: ToolDescribe,
			Desc: "Produce a rich textual description of the image attached to the current turn.",
			ParamsOneOf: schema.NewParamsOneOfByParams(
				map[string]*schema.ParameterInfo{},
			),
		},
		{
			Name: ToolAnnotate,
			Desc: "Draw labeled bounding boxes on the image attached to the current turn.",
			ParamsOneOf: schema.NewParamsOneOfByParams(
				map[string]*schema.ParameterInfo{
					"boxes": {
						Type:     schema.Array,
						Desc:     "Boxes to draw, each with a label and [x1,y1,x2,y2] pixel coordinates",
						Required: true,
						ElemInfo: &schema.ParameterInfo{
							Type: schema.Object,
							SubParams: map[string]*schema.ParameterInfo{
								"label": {Type: schema.String, Desc: "Component label", Required: true},
								"box":   {Type: schema.Array, Desc: "[x1,y1,x2,y2]", Required: true, ElemInfo: &schema.ParameterInfo{Type: schema.Integer}},
							},
						},
					},
				},
			),
		},
		{
			Name: ToolFetchProcedure,
			Desc: "Fetch the official repair procedure for a component, falling back to the offline cache when the warehouse is unreachable.",
			ParamsOneOf: schema.NewParamsOneOfByParams(
				map[string]*schema.ParameterInfo{
					"component_name": {Type: schema.String, Desc: "Exact component name", Required: true},
				},
			),
		},
		{
			Name: ToolEndSession,
			Desc: "End the session and generate the final report. Call only when the user signals the task is complete.",
			ParamsOneOf: schema.NewParamsOneOfByParams(
				map[string]*schema.ParameterInfo{
					"outcome": {Type: schema.String, Desc: "Task outcome", Required: true, Enum: []string{"success", "failure"}},
				},
			),
		},
	}
}

// NewExecutor dispatches a tool call after argument validation. Capability
// failures come back inside the result's Error field rather than as Go
// errors, matching the one-turn-degradation contract.
func NewExecutor(deps Deps) Executor {
	return func(ctx context.Context, name string, args map[string]any, image contractx.ImagePayload) (contractx.ToolResult, error) {
		if err := ValidateArgs(name, args); err != nil {
			return contractx.ToolResult{}, err
		}

		switch name {
		case ToolIdentify:
			return runIdentify(ctx, deps.Identify, image), nil
		case ToolDescribe:
			return runDescribe(ctx, deps.Describe, image), nil
		case ToolAnnotate:
			return runAnnotate(ctx, deps.Annotate, args, image), nil
		case ToolFetchProcedure:
			return runFetchProcedure(ctx, deps.Resolver, args), nil
		case ToolEndSession:
			return contractx.ToolResult{}, fmt.Errorf("%w: end_session must be handled by the loop owner", contractx.ErrValidation)
		default:
			return contractx.ToolResult{}, fmt.Errorf("%w: unknown tool %q", contractx.ErrValidation, name)
		}
	}
}

// ValidateArgs checks a call's arguments against the declared parameter
// schema before any capability is touched.
func ValidateArgs(name string, args map[string]any) error {
	switch name {
	case ToolIdentify, ToolDescribe:
		return nil
	case ToolAnnotate:
		_, err := decodeBoxes(args)
		return err
	case ToolFetchProcedure:
		if strings.TrimSpace(stringArg(args, "component_name")) == "" {
			return fmt.Errorf("%w: fetch_procedure requires component_name", contractx.ErrValidation)
		}
		return nil
	case ToolEndSession:
		_, err := OutcomeArg(args)
		return err
	default:
		return fmt.Errorf("%w: unknown tool %q", contractx.ErrValidation, name)
	}
}

// OutcomeArg extracts and validates the end_session outcome argument.
func OutcomeArg(args map[string]any) (contractx.SessionOutcome, error) {
	raw := strings.ToLower(strings.TrimSpace(stringArg(args, "outcome")))
	switch contractx.SessionOutcome(raw) {
	case contractx.OutcomeSuccess:
		return contractx.OutcomeSuccess, nil
	case contractx.OutcomeFailure:
		return contractx.OutcomeFailure, nil
	default:
		return "", fmt.Errorf("%w: end_session outcome must be success or failure, got %q", contractx.ErrValidation, raw)
	}
}

func runIdentify(ctx context.Context, client contractx.IdentifyClient, image contractx.ImagePayload) contractx.ToolResult {
	if image.Empty() {
		return contractx.ToolResult{Tool: ToolIdentify, Error: "the current turn does not contain an image"}
	}
	detections, err := client.Identify(ctx, image)
	if err != nil {
		return contractx.ToolResult{Tool: ToolIdentify, Error: err.Error()}
	}
	content, err := json.Marshal(map[string]any{"detected_objects": detections})
	if err != nil {
		return contractx.ToolResult{Tool: ToolIdentify, Error: err.Error()}
	}
	return contractx.ToolResult{Tool: ToolIdentify, Content: string(content)}
}

func runDescribe(ctx context.Context, client contractx.DescribeClient, image contractx.ImagePayload) contractx.ToolResult {
	if image.Empty() {
		return contractx.ToolResult{Tool: ToolDescribe, Error: "the current turn does not contain an image"}
	}
	description, err := client.Describe(ctx, image)
	if err != nil {
		return contractx.ToolResult{Tool: ToolDescribe, Error: err.Error()}
	}
	return contractx.ToolResult{Tool: ToolDescribe, Content: description}
}

func runAnnotate(ctx context.Context, client contractx.AnnotateClient, args map[string]any, image contractx.ImagePayload) contractx.ToolResult {
	if image.Empty() {
		return contractx.ToolResult{Tool: ToolAnnotate, Error: "the current turn does not contain an image to annotate"}
	}
	boxes, err := decodeBoxes(args)
	if err != nil {
		return contractx.ToolResult{Tool: ToolAnnotate, Error: err.Error()}
	}
	annotated, err := client.Annotate(ctx, image, boxes)
	if err != nil {
		return contractx.ToolResult{Tool: ToolAnnotate, Error: err.Error()}
	}
	return contractx.ToolResult{
		Tool:    ToolAnnotate,
		Content: "annotated image produced",
		Image:   annotated,
	}
}

func runFetchProcedure(ctx context.Context, resolver contractx.Resolver, args map[string]any) contractx.ToolResult {
	component := strings.TrimSpace(stringArg(args, "component_name"))
	resolution := resolver.Resolve(ctx, component)
	content, err := json.Marshal(resolution)
	if err != nil {
		return contractx.ToolResult{Tool: ToolFetchProcedure, Error: err.Error()}
	}
	return contractx.ToolResult{Tool: ToolFetchProcedure, Content: string(content)}
}

func decodeBoxes(args map[string]any) ([]contractx.Detection, error) {
	raw, ok := args["boxes"]
	if !ok {
		return nil, fmt.Errorf("%w: annotate requires boxes", contractx.ErrValidation)
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: annotate boxes must be a non-empty array", contractx.ErrValidation)
	}

	boxes := make([]contractx.Detection, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: annotate box %d is not an object", contractx.ErrValidation, i)
		}
		label := strings.TrimSpace(stringArg(obj, "label"))
		if label == "" {
			return nil, fmt.Errorf("%w: annotate box %d is missing a label", contractx.ErrValidation, i)
		}
		coords, ok := obj["box"].([]any)
		if !ok || len(coords) != 4 {
			return nil, fmt.Errorf("%w: annotate box %d must have [x1,y1,x2,y2] coordinates", contractx.ErrValidation, i)
		}

		det := contractx.Detection{Label: label}
		for j, coord := range coords {
			num, ok := coord.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: annotate box %d coordinate %d is not a number", contractx.ErrValidation, i, j)
			}
			det.Box[j] = int(num)
		}
		boxes = append(boxes, det)
	}
	return boxes, nil
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	value, _ := args[key].(string)
	return value
}

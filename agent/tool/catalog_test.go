package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

type fakeIdentify struct {
	detections []contractx.Detection
	err        error
	calls      int
}

func (f *fakeIdentify) Identify(ctx context.Context, image contractx.ImagePayload) ([]contractx.Detection, error) {
	f.calls++
	return f.detections, f.err
}

type fakeDescribe struct {
	description string
	err         error
}

func (f *fakeDescribe) Describe(ctx context.Context, image contractx.ImagePayload) (string, error) {
	return f.description, f.err
}

type fakeAnnotate struct {
	annotated contractx.ImagePayload
	err       error
}

func (f *fakeAnnotate) Annotate(ctx context.Context, image contractx.ImagePayload, boxes []contractx.Detection) (contractx.ImagePayload, error) {
	return f.annotated, f.err
}

type fakeResolver struct {
	resolution contractx.Resolution
}

func (f *fakeResolver) Resolve(ctx context.Context, componentName string) contractx.Resolution {
	return f.resolution
}

func testImage() contractx.ImagePayload {
	return contractx.ImagePayload{Data: []byte("jpeg-bytes"), ContentType: "image/jpeg"}
}

func TestBuildDeclaresClosedToolset(t *testing.T) {
	t.Parallel()

	infos, executor := Build(Deps{})
	if len(infos) != 5 {
		t.Fatalf("expected 5 tool infos, got %d", len(infos))
	}
	want := []string{ToolIdentify, ToolDescribe, ToolAnnotate, ToolFetchProcedure, ToolEndSession}
	for i, name := range want {
		if infos[i].Name != name {
			t.Fatalf("tool %d = %s, want %s", i, infos[i].Name, name)
		}
	}
	if executor == nil {
		t.Fatal("executor must not be nil")
	}
}

func TestExecutorIdentifySuccess(t *testing.T) {
	t.Parallel()

	identify := &fakeIdentify{detections: []contractx.Detection{{Label: "GPU", Confidence: 0.9}}}
	executor := NewExecutor(Deps{Identify: identify})

	out, err := executor(context.Background(), ToolIdentify, nil, testImage())
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if out.Error != "" {
		t.Fatalf("unexpected tool error: %s", out.Error)
	}
	if !strings.Contains(out.Content, "GPU") {
		t.Fatalf("expected detection content, got %q", out.Content)
	}
	if identify.calls != 1 {
		t.Fatalf("expected 1 identify call, got %d", identify.calls)
	}
}

func TestExecutorIdentifyWithoutImage(t *testing.T) {
	t.Parallel()

	identify := &fakeIdentify{}
	executor := NewExecutor(Deps{Identify: identify})

	out, err := executor(context.Background(), ToolIdentify, nil, contractx.ImagePayload{})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if out.Error == "" {
		t.Fatal("expected a tool error when no image is attached")
	}
	if identify.calls != 0 {
		t.Fatalf("expected zero identify calls, got %d", identify.calls)
	}
}

func TestExecutorCapabilityFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(Deps{Describe: &fakeDescribe{err: errors.New("capability is unavailable")}})

	out, err := executor(context.Background(), ToolDescribe, nil, testImage())
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if !strings.Contains(out.Error, "unavailable") {
		t.Fatalf("expected capability failure in result, got %q", out.Error)
	}
}

func TestExecutorAnnotateCapturesImage(t *testing.T) {
	t.Parallel()

	annotated := contractx.ImagePayload{Data: []byte("boxed"), ContentType: "image/png"}
	executor := NewExecutor(Deps{Annotate: &fakeAnnotate{annotated: annotated}})

	args := map[string]any{
		"boxes": []any{
			map[string]any{"label": "GPU", "box": []any{1.0, 2.0, 3.0, 4.0}},
		},
	}
	out, err := executor(context.Background(), ToolAnnotate, args, testImage())
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if out.Image.Empty() {
		t.Fatal("expected annotated image in result")
	}
	if string(out.Image.Data) != "boxed" {
		t.Fatalf("unexpected image data: %q", out.Image.Data)
	}
}

func TestExecutorFetchProcedure(t *testing.T) {
	t.Parallel()

	executor := NewExecutor(Deps{Resolver: &fakeResolver{
		resolution: contractx.Resolution{
			Status: contractx.ResolutionFound,
			Steps:  []string{"Power off", "Remove screws"},
			Source: contractx.OriginCache,
		},
	}})

	out, err := executor(context.Background(), ToolFetchProcedure, map[string]any{"component_name": "GPU"}, contractx.ImagePayload{})
	if err != nil {
		t.Fatalf("executor error = %v", err)
	}
	if !strings.Contains(out.Content, "Power off") {
		t.Fatalf("expected resolution steps in content, got %q", out.Content)
	}
}

func TestValidateArgsRejectsBadCalls(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		tool string
		args map[string]any
	}{
		{name: "missing component", tool: ToolFetchProcedure, args: map[string]any{}},
		{name: "blank component", tool: ToolFetchProcedure, args: map[string]any{"component_name": "  "}},
		{name: "missing boxes", tool: ToolAnnotate, args: map[string]any{}},
		{name: "empty boxes", tool: ToolAnnotate, args: map[string]any{"boxes": []any{}}},
		{name: "box without label", tool: ToolAnnotate, args: map[string]any{"boxes": []any{map[string]any{"box": []any{1.0, 2.0, 3.0, 4.0}}}}},
		{name: "box wrong arity", tool: ToolAnnotate, args: map[string]any{"boxes": []any{map[string]any{"label": "GPU", "box": []any{1.0}}}}},
		{name: "bad outcome", tool: ToolEndSession, args: map[string]any{"outcome": "maybe"}},
		{name: "unknown tool", tool: "reboot_everything", args: map[string]any{}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateArgs(tc.tool, tc.args)
			if !errors.Is(err, contractx.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestOutcomeArg(t *testing.T) {
	t.Parallel()

	outcome, err := OutcomeArg(map[string]any{"outcome": " Success "})
	if err != nil {
		t.Fatalf("OutcomeArg() error = %v", err)
	}
	if outcome != contractx.OutcomeSuccess {
		t.Fatalf("unexpected outcome: %s", outcome)
	}
}

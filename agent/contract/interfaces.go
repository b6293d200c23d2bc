package contract

import "context"

// Classifier turns the prior conversation plus the newest input into a
// single Action. Malformed model output degrades to ActionUnknown; only a
// failed model invocation is an error.
type Classifier interface {
	Classify(ctx context.Context, history []Exchange, newText string, hasImage bool) (Action, error)
}

// IdentifyClient is the object-detection capability.
type IdentifyClient interface {
	Identify(ctx context.Context, image ImagePayload) ([]Detection, error)
}

// DescribeClient is the vision-language description capability.
type DescribeClient interface {
	Describe(ctx context.Context, image ImagePayload) (string, error)
}

// AnnotateClient draws labeled boxes onto an image.
type AnnotateClient interface {
	Annotate(ctx context.Context, image ImagePayload, boxes []Detection) (ImagePayload, error)
}

// Summarizer condenses a full session log into a final report.
type Summarizer interface {
	Summarize(ctx context.Context, logText string) (string, error)
}

// ProcedureSource is one branch of the lookup chain. A miss is reported
// as ErrProcedureNotFound; everything else is a source failure.
type ProcedureSource interface {
	Lookup(ctx context.Context, componentName string) (Procedure, error)
}

// Resolver runs the primary/fallback procedure lookup chain.
type Resolver interface {
	Resolve(ctx context.Context, componentName string) Resolution
}

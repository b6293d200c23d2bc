// Package orchestrator owns the turn pipeline: ledger append, intent
// classification, capability dispatch, and session lifecycle transitions.
// It is the only component allowed to mutate session state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
	ledgerx "github.com/tanpawarit/aura-supervisor/agent/ledger"
	statex "github.com/tanpawarit/aura-supervisor/agent/state"
	toolx "github.com/tanpawarit/aura-supervisor/agent/tool"
)

// Strategy selects how a turn is dispatched after classification.
type Strategy string

const (
	// StrategyDeterministic runs the fixed action case table.
	StrategyDeterministic Strategy = "deterministic"
	// StrategyReasoning runs the bounded tool-calling loop.
	StrategyReasoning Strategy = "reasoning"
)

// Config selects the orchestration strategy at construction time. The
// strategy never changes after New.
type Config struct {
	Strategy Strategy `envconfig:"STRATEGY" default:"deterministic"`
}

// Orchestrator coordinates one technician session turn end to end.
type Orchestrator struct {
	sessions statex.Store
	ledger   ledgerx.Ledger

	classifier contractx.Classifier
	summarizer contractx.Summarizer
	reasoner   *ReasoningModel

	identify contractx.IdentifyClient
	describe contractx.DescribeClient
	annotate contractx.AnnotateClient
	resolver contractx.Resolver

	executor toolx.Executor
	strategy Strategy

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// New wires the orchestrator. The reasoning model may be nil when the
// deterministic strategy is configured.
func New(
	sessions statex.Store,
	ledger ledgerx.Ledger,
	classifier contractx.Classifier,
	summarizer contractx.Summarizer,
	identify contractx.IdentifyClient,
	describe contractx.DescribeClient,
	annotate contractx.AnnotateClient,
	resolver contractx.Resolver,
	reasoner *ReasoningModel,
	cfg Config,
) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if ledger == nil {
		return nil, errors.New("interaction ledger is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	if identify == nil || describe == nil || annotate == nil {
		return nil, errors.New("capability clients are required")
	}
	if resolver == nil {
		return nil, errors.New("procedure resolver is required")
	}

	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyDeterministic
	}
	switch strategy {
	case StrategyDeterministic:
	case StrategyReasoning:
		if reasoner == nil || reasoner.Model == nil {
			return nil, errors.New("reasoning strategy requires a tool-calling model")
		}
	default:
		return nil, fmt.Errorf("unknown orchestration strategy %q", strategy)
	}

	return &Orchestrator{
		sessions:   sessions,
		ledger:     ledger,
		classifier: classifier,
		summarizer: summarizer,
		reasoner:   reasoner,
		identify:   identify,
		describe:   describe,
		annotate:   annotate,
		resolver:   resolver,
		executor: toolx.NewExecutor(toolx.Deps{
			Identify: identify,
			Describe: describe,
			Annotate: annotate,
			Resolver: resolver,
		}),
		strategy: strategy,
		locks:    map[string]*sync.Mutex{},
		now:      time.Now,
	}, nil
}

// HandleTurn processes one user turn. Capability failures inside the turn
// degrade to an apologetic reply appended to the ledger; only fatal
// orchestration errors (unknown or closed session, storage failure before
// the user entry lands) are returned to the caller.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, userText string, image contractx.ImagePayload) (contractx.AssistantReply, error) {
	if strings.TrimSpace(userText) == "" && image.Empty() {
		return contractx.AssistantReply{}, fmt.Errorf("%w: a turn needs text or an image", contractx.ErrValidation)
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return contractx.AssistantReply{}, err
	}
	if sess.Terminal() {
		return contractx.AssistantReply{}, fmt.Errorf("%w: id=%s status=%s", contractx.ErrSessionClosed, sessionID, sess.Status)
	}

	entries, err := o.ledger.List(ctx, sessionID)
	if err != nil {
		return contractx.AssistantReply{}, fmt.Errorf("load history: %w", err)
	}
	history := ledgerx.History(entries)

	userEntry := ledgerx.UserEntry(sessionID, userText, image, o.now())
	entryID, err := o.ledger.Append(ctx, userEntry)
	if err != nil {
		return contractx.AssistantReply{}, fmt.Errorf("append user entry: %w", err)
	}

	if sess.Status == statex.StatusPending {
		if _, err := o.sessions.Transition(ctx, sessionID, statex.StatusInProgress, ""); err != nil {
			// The user entry already landed; force the session closed with
			// the error on record rather than leaving it half-activated.
			if _, failErr := o.failLocked(ctx, sessionID, err); failErr != nil {
				log.Error().Err(failErr).Str("session_id", sessionID).Msg("failed to force session failure")
			}
			return contractx.AssistantReply{}, fmt.Errorf("activate session: %w", err)
		}
	}

	reply := o.runTurn(ctx, sessionID, entryID, history, userText, image)

	auraEntry := ledgerx.AuraEntry(sessionID, reply.Text, reply.AnnotatedImage, o.now())
	if _, err := o.ledger.Append(ctx, auraEntry); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to append assistant entry")
	}
	return reply, nil
}

// runTurn classifies the input and dispatches it. Everything that can go
// wrong past this point folds into the reply text.
func (o *Orchestrator) runTurn(ctx context.Context, sessionID, entryID string, history []contractx.Exchange, userText string, image contractx.ImagePayload) contractx.AssistantReply {
	action, err := o.classifier.Classify(ctx, history, userText, !image.Empty())
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("classifier invocation failed")
		return contractx.AssistantReply{Text: fmt.Sprintf("An agent failed to respond. Please try again. Error: %v", err)}
	}

	if err := o.ledger.SetParsedIntent(ctx, entryID, string(action.Type)); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record parsed intent")
	}

	switch o.strategy {
	case StrategyReasoning:
		return o.reasonTurn(ctx, sessionID, history, userText, image)
	default:
		return o.dispatchAction(ctx, sessionID, action, image)
	}
}

// EndSession assembles the full ledger transcript, produces the final
// report, and moves the session to the terminal status for the outcome.
// A summarizer failure is replaced by a placeholder report; it never blocks
// closing the session.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string, outcome contractx.SessionOutcome) (*statex.Session, error) {
	target, err := statex.StatusForOutcome(outcome)
	if err != nil {
		return nil, err
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	return o.endSessionLocked(ctx, sessionID, target)
}

func (o *Orchestrator) endSessionLocked(ctx context.Context, sessionID string, target statex.Status) (*statex.Session, error) {
	sess, closing, err := o.closeSession(ctx, sessionID, target)
	if err != nil {
		return nil, err
	}
	if _, err := o.ledger.Append(ctx, ledgerx.AuraEntry(sessionID, closing, contractx.ImagePayload{}, o.now())); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to append closing entry")
	}
	return sess, nil
}

// closeSession generates the final report and moves the session to its
// terminal status. The caller decides how the closing message reaches the
// ledger. Must be called with the session lock held.
func (o *Orchestrator) closeSession(ctx context.Context, sessionID string, target statex.Status) (*statex.Session, string, error) {
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if sess.Terminal() {
		return nil, "", fmt.Errorf("%w: id=%s status=%s", contractx.ErrSessionClosed, sessionID, sess.Status)
	}

	entries, err := o.ledger.List(ctx, sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("load history: %w", err)
	}

	report := o.buildReport(ctx, sessionID, ledgerx.Transcript(entries))

	sess, err = o.sessions.Transition(ctx, sessionID, target, report)
	if err != nil {
		return nil, "", err
	}

	log.Info().Str("session_id", sessionID).Str("status", string(target)).Msg("session ended")
	closing := fmt.Sprintf("SESSION ENDED with status '%s'. The final report has been generated. The session is now closed.", target.Display())
	return sess, closing, nil
}

func (o *Orchestrator) buildReport(ctx context.Context, sessionID, transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		return "Summary could not be generated."
	}
	report, err := o.summarizer.Summarize(ctx, transcript)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("summarizer failed, using placeholder report")
		return fmt.Sprintf("Summary could not be generated due to an agent error: %v", err)
	}
	return report
}

// FailSession force-closes a session after an unrecoverable internal error,
// recording the error text in the ledger before the terminal transition.
func (o *Orchestrator) FailSession(ctx context.Context, sessionID string, cause error) (*statex.Session, error) {
	unlock := o.lockSession(sessionID)
	defer unlock()

	return o.failLocked(ctx, sessionID, cause)
}

func (o *Orchestrator) failLocked(ctx context.Context, sessionID string, cause error) (*statex.Session, error) {
	msg := fmt.Sprintf("A critical system error occurred. Error: %v", cause)
	if _, err := o.ledger.Append(ctx, ledgerx.AuraEntry(sessionID, msg, contractx.ImagePayload{}, o.now())); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to record failure cause")
	}
	return o.endSessionLocked(ctx, sessionID, statex.StatusCompletedFailure)
}

// lockSession serializes HandleTurn and EndSession per session id. Distinct
// sessions proceed in parallel.
func (o *Orchestrator) lockSession(sessionID string) func() {
	o.mu.Lock()
	lock, ok := o.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

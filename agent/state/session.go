package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// Status is the lifecycle state of a Session. Terminal statuses are
// absorbing: no transition leaves them.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusInProgress       Status = "IN_PROGRESS"
	StatusCompletedSuccess Status = "COMPLETED_SUCCESS"
	StatusCompletedFailure Status = "COMPLETED_FAILURE"
)

const DefaultTitle = "New AURA Session"

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrUnknownStatus     = errors.New("unknown session status")
)

// Session is one supervised technician task. It is mutated only through
// Store.Transition and is immutable once terminal.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID          string    `bun:"id,pk" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Status      Status    `bun:"status,notnull" json:"status"`
	FinalReport string    `bun:"final_report" json:"final_report,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func NewSession(title string, now time.Time) *Session {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	return &Session{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Terminal() bool {
	return s != nil && s.Status.Terminal()
}

func (st Status) Terminal() bool {
	return st == StatusCompletedSuccess || st == StatusCompletedFailure
}

// Display returns the human-readable label used in user-facing messages.
func (st Status) Display() string {
	switch st {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompletedSuccess:
		return "Completed Successfully"
	case StatusCompletedFailure:
		return "Completed with Failure"
	default:
		return string(st)
	}
}

func (st Status) Valid() bool {
	switch st {
	case StatusPending, StatusInProgress, StatusCompletedSuccess, StatusCompletedFailure:
		return true
	}
	return false
}

// StatusForOutcome maps an explicit end-of-task signal to its terminal
// status. There is no default: an unrecognized outcome is an error, the
// machine never guesses silently.
func StatusForOutcome(outcome contractx.SessionOutcome) (Status, error) {
	switch outcome {
	case contractx.OutcomeSuccess:
		return StatusCompletedSuccess, nil
	case contractx.OutcomeFailure:
		return StatusCompletedFailure, nil
	default:
		return "", fmt.Errorf("%w: outcome=%q", contractx.ErrValidation, outcome)
	}
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusCompletedFailure
	case StatusInProgress:
		return to.Terminal()
	}
	return false
}

func validateTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: session already %s", contractx.ErrSessionClosed, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

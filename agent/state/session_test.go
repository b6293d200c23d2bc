package state

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

func TestNewSessionDefaults(t *testing.T) {
	t.Parallel()

	s := NewSession("  ", time.Now())
	if s.Title != DefaultTitle {
		t.Fatalf("title = %q, want %q", s.Title, DefaultTitle)
	}
	if s.Status != StatusPending {
		t.Fatalf("status = %s, want %s", s.Status, StatusPending)
	}
	if s.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompletedFailure, true},
		{StatusPending, StatusCompletedSuccess, false},
		{StatusInProgress, StatusCompletedSuccess, true},
		{StatusInProgress, StatusCompletedFailure, true},
		{StatusInProgress, StatusPending, false},
		{StatusCompletedSuccess, StatusInProgress, false},
		{StatusCompletedSuccess, StatusCompletedFailure, false},
		{StatusCompletedFailure, StatusInProgress, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidateTransitionTerminalIsAbsorbing(t *testing.T) {
	t.Parallel()

	err := validateTransition(StatusCompletedSuccess, StatusInProgress)
	if !errors.Is(err, contractx.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestValidateTransitionUnknownStatus(t *testing.T) {
	t.Parallel()

	err := validateTransition(StatusPending, Status("ARCHIVED"))
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestStatusForOutcome(t *testing.T) {
	t.Parallel()

	if got, err := StatusForOutcome(contractx.OutcomeSuccess); err != nil || got != StatusCompletedSuccess {
		t.Fatalf("StatusForOutcome(success) = %s, %v", got, err)
	}
	if got, err := StatusForOutcome(contractx.OutcomeFailure); err != nil || got != StatusCompletedFailure {
		t.Fatalf("StatusForOutcome(failure) = %s, %v", got, err)
	}
	if _, err := StatusForOutcome(contractx.SessionOutcome("maybe")); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown outcome, got %v", err)
	}
}

func TestStatusDisplay(t *testing.T) {
	t.Parallel()

	if got := StatusCompletedSuccess.Display(); got != "Completed Successfully" {
		t.Fatalf("Display() = %q", got)
	}
	if got := StatusCompletedFailure.Display(); got != "Completed with Failure" {
		t.Fatalf("Display() = %q", got)
	}
}

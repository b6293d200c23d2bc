package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// Store is the persistence contract for session lifecycle management.
// Transition is the only mutation after Create; it enforces the lifecycle
// rules so callers cannot bypass the state machine.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	List(ctx context.Context, limit int) ([]*Session, error)
	Transition(ctx context.Context, sessionID string, to Status, finalReport string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// SQLStore persists Sessions through bun.
type SQLStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewSQLStore(db *bun.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) Create(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("%w: session is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}
	if !sess.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, sess.Status)
	}
	if _, err := s.db.NewInsert().Model(sess).Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}

	sess := new(Session)
	err := s.db.NewSelect().Model(sess).Where("id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%s", contractx.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var sessions []*Session
	err := s.db.NewSelect().Model(&sessions).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Transition applies a lifecycle move after validating it against the
// current persisted status. The final report is written only when the
// target status is terminal.
func (s *SQLStore) Transition(ctx context.Context, sessionID string, to Status, finalReport string) (*Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validateTransition(sess.Status, to); err != nil {
		return nil, err
	}

	sess.Status = to
	sess.UpdatedAt = s.now().UTC()
	if to.Terminal() {
		sess.FinalReport = finalReport
	}

	_, err = s.db.NewUpdate().Model(sess).
		Column("status", "final_report", "updated_at").
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// Delete is the administrative purge. Ledger rows are removed separately
// by the ledger store; sessions are never deleted through any other path.
func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.NewDelete().Model((*Session)(nil)).Where("id = ?", sessionID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

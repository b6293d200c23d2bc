package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// Source tags who authored a ledger entry.
type Source string

const (
	SourceUser Source = "USER"
	SourceAura Source = "AURA"
)

// Interaction is one logged conversational turn. Exactly one of the
// user-authored and assistant-authored field groups is populated. The only
// post-append mutation is attaching a parsed intent to a user entry.
type Interaction struct {
	bun.BaseModel `bun:"table:interactions,alias:i"`

	ID        string `bun:"id,pk" json:"id"`
	SessionID string `bun:"session_id,notnull" json:"session_id"`
	Source    Source `bun:"source,notnull" json:"source"`

	UserText      string `bun:"user_text" json:"user_text,omitempty"`
	UserImage     []byte `bun:"user_image" json:"-"`
	UserImageType string `bun:"user_image_type" json:"user_image_type,omitempty"`
	AuraText      string `bun:"aura_text" json:"aura_text,omitempty"`
	AuraImage     []byte `bun:"aura_image" json:"-"`
	AuraImageType string `bun:"aura_image_type" json:"aura_image_type,omitempty"`

	ParsedIntent string    `bun:"parsed_intent" json:"parsed_intent,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}

// UserEntry builds a user-authored entry for a turn.
func UserEntry(sessionID, text string, image contractx.ImagePayload, now time.Time) *Interaction {
	return &Interaction{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Source:        SourceUser,
		UserText:      text,
		UserImage:     image.Data,
		UserImageType: image.ContentType,
		CreatedAt:     now.UTC(),
	}
}

// AuraEntry builds an assistant-authored entry for a turn.
func AuraEntry(sessionID, text string, annotated contractx.ImagePayload, now time.Time) *Interaction {
	return &Interaction{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Source:        SourceAura,
		AuraText:      text,
		AuraImage:     annotated.Data,
		AuraImageType: annotated.ContentType,
		CreatedAt:     now.UTC(),
	}
}

func (e *Interaction) validate() error {
	if e == nil {
		return fmt.Errorf("%w: entry is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: entry id is empty", contractx.ErrValidation)
	}
	if strings.TrimSpace(e.SessionID) == "" {
		return fmt.Errorf("%w: entry session id is empty", contractx.ErrValidation)
	}

	hasUser := e.UserText != "" || len(e.UserImage) > 0
	hasAura := e.AuraText != "" || len(e.AuraImage) > 0
	switch e.Source {
	case SourceUser:
		if hasAura {
			return fmt.Errorf("%w: user entry carries assistant fields", contractx.ErrValidation)
		}
	case SourceAura:
		if hasUser {
			return fmt.Errorf("%w: assistant entry carries user fields", contractx.ErrValidation)
		}
		if !hasAura {
			return fmt.Errorf("%w: assistant entry is empty", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown source=%q", contractx.ErrValidation, e.Source)
	}
	return nil
}

// Ledger is the append-only, time-ordered record of every turn. It is the
// sole source of truth for conversation history; no component keeps
// conversational state in memory beyond one call.
type Ledger interface {
	Append(ctx context.Context, e *Interaction) (string, error)
	List(ctx context.Context, sessionID string) ([]*Interaction, error)
	SetParsedIntent(ctx context.Context, entryID, intent string) error
	Purge(ctx context.Context, sessionID string) error
}

// SQLLedger persists interactions through bun.
type SQLLedger struct {
	db *bun.DB
}

func NewSQLLedger(db *bun.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

var _ Ledger = (*SQLLedger)(nil)

func (l *SQLLedger) Append(ctx context.Context, e *Interaction) (string, error) {
	if err := e.validate(); err != nil {
		return "", err
	}
	if _, err := l.db.NewInsert().Model(e).Exec(ctx); err != nil {
		return "", fmt.Errorf("append interaction: %w", err)
	}
	return e.ID, nil
}

// List returns the session's entries ordered by creation time. The ledger is
// SQLite-backed, so the implicit rowid carries insertion order and breaks
// equal-timestamp ties.
func (l *SQLLedger) List(ctx context.Context, sessionID string) ([]*Interaction, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}
	var entries []*Interaction
	err := l.db.NewSelect().Model(&entries).
		Where("session_id = ?", sessionID).
		OrderExpr("created_at ASC, rowid ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	return entries, nil
}

func (l *SQLLedger) SetParsedIntent(ctx context.Context, entryID, intent string) error {
	if strings.TrimSpace(entryID) == "" {
		return fmt.Errorf("%w: entry id is empty", contractx.ErrValidation)
	}
	_, err := l.db.NewUpdate().Model((*Interaction)(nil)).
		Set("parsed_intent = ?", intent).
		Where("id = ? AND source = ?", entryID, SourceUser).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set parsed intent: %w", err)
	}
	return nil
}

func (l *SQLLedger) Purge(ctx context.Context, sessionID string) error {
	_, err := l.db.NewDelete().Model((*Interaction)(nil)).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("purge interactions: %w", err)
	}
	return nil
}

// History projects ledger entries into classifier exchanges, oldest first.
func History(entries []*Interaction) []contractx.Exchange {
	history := make([]contractx.Exchange, 0, len(entries))
	for _, e := range entries {
		switch e.Source {
		case SourceUser:
			if e.UserText != "" {
				history = append(history, contractx.Exchange{UserText: e.UserText})
			}
		case SourceAura:
			if e.AuraText != "" {
				history = append(history, contractx.Exchange{AssistantText: e.AuraText})
			}
		}
	}
	return history
}

// Transcript renders the full ordered ledger as the text handed to the
// summarizer when a session closes.
func Transcript(entries []*Interaction) string {
	var sb strings.Builder
	for _, e := range entries {
		text := e.UserText
		if e.Source == SourceAura {
			text = e.AuraText
		}
		if text == "" {
			continue
		}
		sb.WriteString(string(e.Source))
		sb.WriteString(": ")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

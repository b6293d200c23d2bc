package procedure

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// CachedProcedure is the local copy of a warehouse procedure, refreshed by
// the sync job. Steps and warnings are stored as JSON text because the
// local store is SQLite.
type CachedProcedure struct {
	bun.BaseModel `bun:"table:procedure_cache,alias:pc"`

	ProcedureID    string    `bun:"procedure_id,pk"`
	ComponentName  string    `bun:"component_name,notnull,unique"`
	Steps          string    `bun:"steps,notnull"`
	SafetyWarnings string    `bun:"safety_warnings,notnull"`
	LastSynced     time.Time `bun:"last_synced,notnull"`
}

// Cache is the fallback procedure source backed by the local store.
type Cache struct {
	db  *bun.DB
	now func() time.Time
}

func NewCache(db *bun.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

var _ contractx.ProcedureSource = (*Cache)(nil)

func (c *Cache) Lookup(ctx context.Context, componentName string) (contractx.Procedure, error) {
	name := strings.TrimSpace(componentName)
	if name == "" {
		return contractx.Procedure{}, fmt.Errorf("%w: component name is empty", contractx.ErrValidation)
	}

	row := new(CachedProcedure)
	err := c.db.NewSelect().Model(row).
		Where("component_name = ?", name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Procedure{}, fmt.Errorf("%w: component=%s", contractx.ErrProcedureNotFound, name)
	}
	if err != nil {
		return contractx.Procedure{}, fmt.Errorf("cache lookup: %w", err)
	}
	return row.toProcedure()
}

// Upsert inserts or replaces a cached procedure by component name.
func (c *Cache) Upsert(ctx context.Context, p contractx.Procedure) error {
	if strings.TrimSpace(p.ComponentName) == "" {
		return fmt.Errorf("%w: component name is empty", contractx.ErrValidation)
	}

	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	warnings, err := json.Marshal(p.SafetyWarnings)
	if err != nil {
		return fmt.Errorf("marshal safety warnings: %w", err)
	}

	row := &CachedProcedure{
		ProcedureID:    p.ProcedureID,
		ComponentName:  p.ComponentName,
		Steps:          string(steps),
		SafetyWarnings: string(warnings),
		LastSynced:     c.now().UTC(),
	}

	_, err = c.db.NewInsert().Model(row).
		On("CONFLICT (component_name) DO UPDATE").
		Set("procedure_id = EXCLUDED.procedure_id").
		Set("steps = EXCLUDED.steps").
		Set("safety_warnings = EXCLUDED.safety_warnings").
		Set("last_synced = EXCLUDED.last_synced").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert cached procedure: %w", err)
	}
	return nil
}

func (r *CachedProcedure) toProcedure() (contractx.Procedure, error) {
	var steps, warnings []string
	if err := json.Unmarshal([]byte(r.Steps), &steps); err != nil {
		return contractx.Procedure{}, fmt.Errorf("decode cached steps: %w", err)
	}
	if err := json.Unmarshal([]byte(r.SafetyWarnings), &warnings); err != nil {
		return contractx.Procedure{}, fmt.Errorf("decode cached safety warnings: %w", err)
	}
	return contractx.Procedure{
		ProcedureID:    r.ProcedureID,
		ComponentName:  r.ComponentName,
		Steps:          steps,
		SafetyWarnings: warnings,
		LastSynced:     r.LastSynced,
	}, nil
}

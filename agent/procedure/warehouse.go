package procedure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// WarehouseConfig connects the supervisor to the enterprise warehouse
// holding the authoritative PROCEDURES table.
type WarehouseConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// Warehouse is the primary procedure source: a live lookup against the
// enterprise data warehouse. Every call is bounded by the configured
// timeout; the resolver treats any failure here uniformly.
type Warehouse struct {
	db      *bun.DB
	timeout time.Duration
}

type warehouseRow struct {
	bun.BaseModel `bun:"table:procedures,alias:p"`

	ProcedureID    string   `bun:"procedure_id,pk"`
	ComponentName  string   `bun:"component_name"`
	Steps          []string `bun:"steps,array"`
	SafetyWarnings []string `bun:"safety_warnings,array"`
}

func NewWarehouse(cfg WarehouseConfig) (*Warehouse, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("warehouse dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return &Warehouse{
		db:      bun.NewDB(sqldb, pgdialect.New()),
		timeout: timeout,
	}, nil
}

var _ contractx.ProcedureSource = (*Warehouse)(nil)

// Lookup matches case-insensitively on component name, mirroring how
// technicians refer to parts ("gpu" vs "GPU").
func (w *Warehouse) Lookup(ctx context.Context, componentName string) (contractx.Procedure, error) {
	name := strings.TrimSpace(componentName)
	if name == "" {
		return contractx.Procedure{}, fmt.Errorf("%w: component name is empty", contractx.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	row := new(warehouseRow)
	err := w.db.NewSelect().Model(row).
		Where("LOWER(component_name) = LOWER(?)", name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Procedure{}, fmt.Errorf("%w: component=%s", contractx.ErrProcedureNotFound, name)
	}
	if err != nil {
		return contractx.Procedure{}, fmt.Errorf("warehouse lookup: %w", err)
	}

	return contractx.Procedure{
		ProcedureID:    row.ProcedureID,
		ComponentName:  row.ComponentName,
		Steps:          row.Steps,
		SafetyWarnings: row.SafetyWarnings,
	}, nil
}

// All streams every warehouse row; used by the out-of-band cache sync.
func (w *Warehouse) All(ctx context.Context) ([]contractx.Procedure, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var rows []warehouseRow
	if err := w.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("warehouse scan: %w", err)
	}

	procedures := make([]contractx.Procedure, 0, len(rows))
	for _, row := range rows {
		procedures = append(procedures, contractx.Procedure{
			ProcedureID:    row.ProcedureID,
			ComponentName:  row.ComponentName,
			Steps:          row.Steps,
			SafetyWarnings: row.SafetyWarnings,
		})
	}
	return procedures, nil
}

func (w *Warehouse) Close() error {
	return w.db.Close()
}

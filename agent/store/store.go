package storex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Config locates the local SQLite database holding sessions, the
// interaction ledger, and the procedure cache.
type Config struct {
	Path string `envconfig:"PATH" split_words:"true" default:"aura.db"`
}

// Open connects to the local store. The caller owns the returned DB and
// must run Migrate before first use.
func Open(cfg Config) (*bun.DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("local store path is required")
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates the local tables if they do not exist. Schema changes
// beyond table creation are out of scope and handled operationally.
func Migrate(ctx context.Context, db *bun.DB, models ...any) error {
	for _, model := range models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

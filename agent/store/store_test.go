package storex

import (
	"context"
	"path/filepath"
	"testing"

	ledgerx "github.com/tanpawarit/aura-supervisor/agent/ledger"
	statex "github.com/tanpawarit/aura-supervisor/agent/state"
)

func TestOpenAndMigrate(t *testing.T) {
	t.Parallel()

	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "aura.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := Migrate(ctx, db, (*statex.Session)(nil), (*ledgerx.Interaction)(nil)); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Idempotent.
	if err := Migrate(ctx, db, (*statex.Session)(nil)); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Path: "  "}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

package procedure

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// Lister is the slice of the warehouse the sync job needs.
type Lister interface {
	All(ctx context.Context) ([]contractx.Procedure, error)
}

// Sync copies every warehouse procedure into the local cache, overwriting
// by component name. Run out of band; a failed row aborts the sync so a
// partial refresh is never mistaken for a complete one.
func Sync(ctx context.Context, warehouse Lister, cache *Cache) (int, error) {
	procedures, err := warehouse.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync: read warehouse: %w", err)
	}

	for _, p := range procedures {
		if err := cache.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("sync: cache %q: %w", p.ComponentName, err)
		}
		log.Debug().Str("component", p.ComponentName).Str("procedure_id", p.ProcedureID).Msg("procedure synced")
	}

	log.Info().Int("count", len(procedures)).Msg("procedure cache sync completed")
	return len(procedures), nil
}

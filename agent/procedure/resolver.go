package procedure

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/aura-supervisor/agent/contract"
)

// ChainResolver tries the primary source, then the cache, then reports
// not-found. The chain prefers availability over consistency: a stale
// cached procedure beats blocking the technician on a warehouse outage.
// Branches run sequentially; the fallback engages only after the primary
// has definitively failed. The primary is never retried within one call.
type ChainResolver struct {
	primary contractx.ProcedureSource
	cache   contractx.ProcedureSource
}

func NewChainResolver(primary, cache contractx.ProcedureSource) (*ChainResolver, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: primary source is required", contractx.ErrValidation)
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: cache source is required", contractx.ErrValidation)
	}
	return &ChainResolver{primary: primary, cache: cache}, nil
}

var _ contractx.Resolver = (*ChainResolver)(nil)

func (r *ChainResolver) Resolve(ctx context.Context, componentName string) contractx.Resolution {
	// Auth failures, network errors, timeouts, and misses are all the
	// same outcome for the caller: primary unavailable.
	p, err := r.primary.Lookup(ctx, componentName)
	if err == nil {
		return found(p, contractx.OriginPrimary)
	}
	log.Warn().Err(err).Str("component", componentName).Msg("primary procedure lookup unavailable, falling back to cache")

	p, err = r.cache.Lookup(ctx, componentName)
	if err == nil {
		return found(p, contractx.OriginCache)
	}
	log.Warn().Err(err).Str("component", componentName).Msg("cache procedure lookup unavailable")

	return contractx.Resolution{
		Status:  contractx.ResolutionNotFound,
		Message: fmt.Sprintf("No procedure is available for %q from the warehouse or the local cache.", componentName),
	}
}

func found(p contractx.Procedure, origin contractx.ProcedureOrigin) contractx.Resolution {
	return contractx.Resolution{
		Status:   contractx.ResolutionFound,
		Steps:    p.Steps,
		Warnings: p.SafetyWarnings,
		Source:   origin,
	}
}

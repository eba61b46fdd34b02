package directory

import (
	"context"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/scheduling"
)

// Provider is an on-demand lookup against the directory service, used as
// a fallback when the local reference cache has not seen an entity yet
// (for example right after the directory is seeded).
type Provider interface {
	ClientExists(ctx context.Context, id string) (bool, error)
	ProfessionalExists(ctx context.Context, id string) (bool, error)
	GetService(ctx context.Context, id string) (scheduling.CatalogService, bool, error)
}

// FallbackDirectory answers from the cache first and only asks the
// provider when the cache has no row. A nil provider degrades to
// cache-only lookups.
type FallbackDirectory struct {
	cache    scheduling.Directory
	provider Provider
}

func NewFallbackDirectory(cache scheduling.Directory, provider Provider) *FallbackDirectory {
	return &FallbackDirectory{cache: cache, provider: provider}
}

func (d *FallbackDirectory) ClientExists(ctx context.Context, id string) (bool, error) {
	ok, err := d.cache.ClientExists(ctx, id)
	if err != nil || ok || d.provider == nil {
		return ok, err
	}
	return d.provider.ClientExists(ctx, id)
}

func (d *FallbackDirectory) ProfessionalExists(ctx context.Context, id string) (bool, error) {
	ok, err := d.cache.ProfessionalExists(ctx, id)
	if err != nil || ok || d.provider == nil {
		return ok, err
	}
	return d.provider.ProfessionalExists(ctx, id)
}

func (d *FallbackDirectory) GetService(ctx context.Context, id string) (scheduling.CatalogService, bool, error) {
	svc, ok, err := d.cache.GetService(ctx, id)
	if err != nil || ok || d.provider == nil {
		return svc, ok, err
	}
	return d.provider.GetService(ctx, id)
}

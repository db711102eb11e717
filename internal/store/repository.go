package store

import "context"

// TenantRepository provides access to tenant records.
type TenantRepository interface {
	Get(ctx context.Context, id string) (*Tenant, error)
	Save(ctx context.Context, t *Tenant) error
	// SetParent reassigns a tenant's parent after cycle validation.
	SetParent(ctx context.Context, id, parentID string) error
	Compositions(ctx context.Context, tenantID string) ([]PageComposition, error)
	SaveComposition(ctx context.Context, c PageComposition) error
}

// ThemeRepository provides access to theme packages and versions.
type ThemeRepository interface {
	Get(ctx context.Context, id string) (*Theme, error)
	Save(ctx context.Context, t *Theme) error
}

// EntityRepository provides access to tenant data entities.
type EntityRepository interface {
	ListByTenantAndType(ctx context.Context, tenantID, entityType string) ([]Entity, error)
	GetByKey(ctx context.Context, tenantID, entityType, key string) (*Entity, error)
	Put(ctx context.Context, e Entity) error
	CountByTenantAndType(ctx context.Context, tenantID, entityType string) (int, error)
}

// Store bundles the repositories a pipeline instance works against.
type Store struct {
	Tenants  TenantRepository
	Themes   ThemeRepository
	Entities EntityRepository
}

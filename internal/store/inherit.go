package store

import (
	"context"
	"sort"
)

// ResolveCollection returns the effective entity collection for a tenant:
// the tenant's own entities of the type plus, when a parent tenant exists,
// the parent's entities of the same type. The merge is keyed by entity key
// with the tenant's own entries winning on collision; it is never a plain
// concatenation.
func ResolveCollection(ctx context.Context, s Store, tenant *Tenant, entityType string) ([]Entity, error) {
	own, err := s.Entities.ListByTenantAndType(ctx, tenant.ID, entityType)
	if err != nil {
		return nil, err
	}

	if tenant.ParentID == "" {
		return own, nil
	}

	parentEntities, err := s.Entities.ListByTenantAndType(ctx, tenant.ParentID, entityType)
	if err != nil {
		// The parent collection is additive; its failure must not drop
		// the tenant's own records.
		return own, nil
	}

	merged := make(map[string]Entity, len(own)+len(parentEntities))
	for _, e := range parentEntities {
		merged[e.Key] = e
	}
	for _, e := range own {
		merged[e.Key] = e
	}

	out := make([]Entity, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

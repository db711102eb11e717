package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/storefront-preview/previewkit/internal/apperr"
)

// MemoryStore is an in-memory Store implementation. It backs tests and the
// default zero-configuration server mode.
type MemoryStore struct {
	mu           sync.RWMutex
	tenants      map[string]*Tenant
	themes       map[string]*Theme
	entities     map[string]map[string]Entity // tenant/type -> key -> entity
	compositions map[string][]PageComposition // tenant -> compositions
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:      make(map[string]*Tenant),
		themes:       make(map[string]*Theme),
		entities:     make(map[string]map[string]Entity),
		compositions: make(map[string][]PageComposition),
	}
}

// Bundle returns the store wrapped in the repository bundle.
func (m *MemoryStore) Bundle() Store {
	return Store{Tenants: m, Themes: themeRepository{m}, Entities: m}
}

func entityBucket(tenantID, entityType string) string {
	return tenantID + "/" + entityType
}

// Get returns the tenant with the given id.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, apperr.NotFound("tenant_not_found", "tenant %q does not exist", id)
	}
	clone := *t
	return &clone, nil
}

// Save stores a tenant record, validating any parent assignment.
func (m *MemoryStore) Save(ctx context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ParentID != "" {
		if err := m.validateParentLocked(t.ID, t.ParentID); err != nil {
			return err
		}
	}

	clone := *t
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	clone.UpdatedAt = time.Now()
	m.tenants[t.ID] = &clone
	return nil
}

// SetParent reassigns a tenant's parent. Self-parenting and inheritance
// cycles are rejected before anything is committed.
func (m *MemoryStore) SetParent(ctx context.Context, id, parentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return apperr.NotFound("tenant_not_found", "tenant %q does not exist", id)
	}
	if parentID != "" {
		if err := m.validateParentLocked(id, parentID); err != nil {
			return err
		}
	}
	t.ParentID = parentID
	t.UpdatedAt = time.Now()
	return nil
}

// validateParentLocked walks the parent chain from parentID with a visited
// set and fails if the chain reaches id again.
func (m *MemoryStore) validateParentLocked(id, parentID string) error {
	if parentID == id {
		return apperr.Validation("tenant_self_parent", "tenant %q cannot be its own parent", id)
	}
	if _, ok := m.tenants[parentID]; !ok {
		return apperr.NotFound("parent_not_found", "parent tenant %q does not exist", parentID)
	}

	visited := map[string]bool{id: true}
	for cur := parentID; cur != ""; {
		if visited[cur] {
			return apperr.Validation("tenant_parent_cycle", "assigning parent %q to tenant %q creates an inheritance cycle", parentID, id)
		}
		visited[cur] = true
		next, ok := m.tenants[cur]
		if !ok {
			break
		}
		cur = next.ParentID
	}
	return nil
}

// Compositions returns the saved page compositions for a tenant.
func (m *MemoryStore) Compositions(ctx context.Context, tenantID string) ([]PageComposition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PageComposition, len(m.compositions[tenantID]))
	copy(out, m.compositions[tenantID])
	return out, nil
}

// SaveComposition stores or replaces a page composition.
func (m *MemoryStore) SaveComposition(ctx context.Context, c PageComposition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.compositions[c.TenantID]
	for i, comp := range existing {
		if comp.PageKey == c.PageKey {
			existing[i] = c
			return nil
		}
	}
	m.compositions[c.TenantID] = append(existing, c)
	return nil
}

// GetTheme is a convenience alias used by tests.
func (m *MemoryStore) GetTheme(ctx context.Context, id string) (*Theme, error) {
	return m.themeGet(id)
}

func (m *MemoryStore) themeGet(id string) (*Theme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.themes[id]
	if !ok {
		return nil, apperr.NotFound("theme_not_found", "theme %q does not exist", id)
	}
	clone := *t
	clone.Versions = append([]ThemeVersion(nil), t.Versions...)
	return &clone, nil
}

// SaveTheme stores a theme package.
func (m *MemoryStore) SaveTheme(ctx context.Context, t *Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *t
	clone.Versions = append([]ThemeVersion(nil), t.Versions...)
	m.themes[t.ID] = &clone
	return nil
}

// ListByTenantAndType returns the tenant's entities of one type, sorted by
// key for stable iteration.
func (m *MemoryStore) ListByTenantAndType(ctx context.Context, tenantID, entityType string) ([]Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.entities[entityBucket(tenantID, entityType)]
	out := make([]Entity, 0, len(bucket))
	for _, e := range bucket {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// GetByKey returns a single entity.
func (m *MemoryStore) GetByKey(ctx context.Context, tenantID, entityType, key string) (*Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[entityBucket(tenantID, entityType)][key]
	if !ok {
		return nil, apperr.NotFound("entity_not_found", "%s %q not found for tenant %q", entityType, key, tenantID)
	}
	clone := e
	return &clone, nil
}

// Put stores an entity record.
func (m *MemoryStore) Put(ctx context.Context, e Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := entityBucket(e.TenantID, e.Type)
	if m.entities[bucket] == nil {
		m.entities[bucket] = make(map[string]Entity)
	}
	e.UpdatedAt = time.Now()
	m.entities[bucket][e.Key] = e
	return nil
}

// CountByTenantAndType returns the number of entities of one type.
func (m *MemoryStore) CountByTenantAndType(ctx context.Context, tenantID, entityType string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities[entityBucket(tenantID, entityType)]), nil
}

var (
	_ TenantRepository = (*MemoryStore)(nil)
	_ EntityRepository = (*MemoryStore)(nil)
	_ ThemeRepository  = themeRepository{}
)

// themeRepository adapts MemoryStore to ThemeRepository without colliding
// with the tenant Get/Save methods.
type themeRepository struct{ m *MemoryStore }

func (r themeRepository) Get(ctx context.Context, id string) (*Theme, error) { return r.m.themeGet(id) }
func (r themeRepository) Save(ctx context.Context, t *Theme) error {
	return r.m.SaveTheme(ctx, t)
}

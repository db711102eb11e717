package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/storefront-preview/previewkit/internal/apperr"
)

// SQLiteStore persists simulator state in a local sqlite database so
// seeded tenants and entities survive server restarts.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tenants (
	id          TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	parent_id   TEXT NOT NULL DEFAULT '',
	updated_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS themes (
	id          TEXT PRIMARY KEY,
	payload     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entities (
	tenant_id   TEXT NOT NULL,
	type        TEXT NOT NULL,
	key         TEXT NOT NULL,
	payload     TEXT NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (tenant_id, type, key)
);
CREATE TABLE IF NOT EXISTS compositions (
	tenant_id   TEXT NOT NULL,
	page_key    TEXT NOT NULL,
	payload     TEXT NOT NULL,
	PRIMARY KEY (tenant_id, page_key)
);
`

// OpenSQLite opens (and migrates) a sqlite-backed store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Storage("sqlite_open", err, "opening sqlite store at %s", path)
	}
	// sqlite handles one writer at a time; serialize access through a
	// single connection to avoid SQLITE_BUSY under concurrent previews.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, apperr.Storage("sqlite_migrate", err, "migrating sqlite schema")
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Bundle returns the store wrapped in the repository bundle.
func (s *SQLiteStore) Bundle() Store {
	return Store{
		Tenants:  &sqliteTenants{s.db},
		Themes:   &sqliteThemes{s.db},
		Entities: &sqliteEntities{s.db},
	}
}

type sqliteTenants struct{ db *sql.DB }

func (r *sqliteTenants) Get(ctx context.Context, id string) (*Tenant, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM tenants WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("tenant_not_found", "tenant %q does not exist", id)
	}
	if err != nil {
		return nil, apperr.Storage("tenant_get", err, "loading tenant %q", id)
	}

	var t Tenant
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, apperr.Storage("tenant_decode", err, "decoding tenant %q", id)
	}
	return &t, nil
}

func (r *sqliteTenants) Save(ctx context.Context, t *Tenant) error {
	if t.ParentID != "" {
		if err := r.validateParent(ctx, t.ID, t.ParentID); err != nil {
			return err
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()

	payload, err := json.Marshal(t)
	if err != nil {
		return apperr.Storage("tenant_encode", err, "encoding tenant %q", t.ID)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, payload, parent_id, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, parent_id=excluded.parent_id, updated_at=excluded.updated_at`,
		t.ID, string(payload), t.ParentID, t.UpdatedAt.Unix())
	if err != nil {
		return apperr.Storage("tenant_save", err, "saving tenant %q", t.ID)
	}
	return nil
}

func (r *sqliteTenants) SetParent(ctx context.Context, id, parentID string) error {
	t, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if parentID != "" {
		if err := r.validateParent(ctx, id, parentID); err != nil {
			return err
		}
	}
	t.ParentID = parentID
	return r.Save(ctx, t)
}

// validateParent walks the parent chain from parentID and rejects any
// assignment that would make the tenant its own ancestor.
func (r *sqliteTenants) validateParent(ctx context.Context, id, parentID string) error {
	if parentID == id {
		return apperr.Validation("tenant_self_parent", "tenant %q cannot be its own parent", id)
	}

	visited := map[string]bool{id: true}
	cur := parentID
	for cur != "" {
		if visited[cur] {
			return apperr.Validation("tenant_parent_cycle", "assigning parent %q to tenant %q creates an inheritance cycle", parentID, id)
		}
		visited[cur] = true

		var next string
		err := r.db.QueryRowContext(ctx, `SELECT parent_id FROM tenants WHERE id = ?`, cur).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			if cur == parentID {
				return apperr.NotFound("parent_not_found", "parent tenant %q does not exist", parentID)
			}
			return nil
		}
		if err != nil {
			return apperr.Storage("tenant_chain", err, "walking parent chain of %q", id)
		}
		cur = next
	}
	return nil
}

func (r *sqliteTenants) Compositions(ctx context.Context, tenantID string) ([]PageComposition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM compositions WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, apperr.Storage("composition_list", err, "listing compositions for %q", tenantID)
	}
	defer rows.Close()

	var out []PageComposition
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, apperr.Storage("composition_scan", err, "scanning composition row")
		}
		var c PageComposition
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			continue // malformed saved composition is skipped, not fatal
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *sqliteTenants) SaveComposition(ctx context.Context, c PageComposition) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return apperr.Storage("composition_encode", err, "encoding composition %q", c.PageKey)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO compositions (tenant_id, page_key, payload) VALUES (?, ?, ?)
		 ON CONFLICT(tenant_id, page_key) DO UPDATE SET payload=excluded.payload`,
		c.TenantID, c.PageKey, string(payload))
	if err != nil {
		return apperr.Storage("composition_save", err, "saving composition %q", c.PageKey)
	}
	return nil
}

type sqliteThemes struct{ db *sql.DB }

func (r *sqliteThemes) Get(ctx context.Context, id string) (*Theme, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM themes WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("theme_not_found", "theme %q does not exist", id)
	}
	if err != nil {
		return nil, apperr.Storage("theme_get", err, "loading theme %q", id)
	}

	var t Theme
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, apperr.Storage("theme_decode", err, "decoding theme %q", id)
	}
	return &t, nil
}

func (r *sqliteThemes) Save(ctx context.Context, t *Theme) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return apperr.Storage("theme_encode", err, "encoding theme %q", t.ID)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO themes (id, payload) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload=excluded.payload`,
		t.ID, string(payload))
	if err != nil {
		return apperr.Storage("theme_save", err, "saving theme %q", t.ID)
	}
	return nil
}

type sqliteEntities struct{ db *sql.DB }

func (r *sqliteEntities) ListByTenantAndType(ctx context.Context, tenantID, entityType string) ([]Entity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, payload, updated_at FROM entities WHERE tenant_id = ? AND type = ? ORDER BY key`,
		tenantID, entityType)
	if err != nil {
		return nil, apperr.Storage("entity_list", err, "listing %s entities for %q", entityType, tenantID)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var (
			key, payload string
			updated      int64
		)
		if err := rows.Scan(&key, &payload, &updated); err != nil {
			return nil, apperr.Storage("entity_scan", err, "scanning entity row")
		}
		out = append(out, Entity{
			TenantID:  tenantID,
			Type:      entityType,
			Key:       key,
			Payload:   json.RawMessage(payload),
			UpdatedAt: time.Unix(updated, 0),
		})
	}
	return out, rows.Err()
}

func (r *sqliteEntities) GetByKey(ctx context.Context, tenantID, entityType, key string) (*Entity, error) {
	var (
		payload string
		updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM entities WHERE tenant_id = ? AND type = ? AND key = ?`,
		tenantID, entityType, key).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("entity_not_found", "%s %q not found for tenant %q", entityType, key, tenantID)
	}
	if err != nil {
		return nil, apperr.Storage("entity_get", err, "loading %s %q", entityType, key)
	}
	return &Entity{
		TenantID:  tenantID,
		Type:      entityType,
		Key:       key,
		Payload:   json.RawMessage(payload),
		UpdatedAt: time.Unix(updated, 0),
	}, nil
}

func (r *sqliteEntities) Put(ctx context.Context, e Entity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entities (tenant_id, type, key, payload, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id, type, key) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		e.TenantID, e.Type, e.Key, string(e.Payload), time.Now().Unix())
	if err != nil {
		return apperr.Storage("entity_put", err, "storing %s %q", e.Type, e.Key)
	}
	return nil
}

func (r *sqliteEntities) CountByTenantAndType(ctx context.Context, tenantID, entityType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE tenant_id = ? AND type = ?`, tenantID, entityType).Scan(&n)
	if err != nil {
		return 0, apperr.Storage("entity_count", err, "counting %s entities for %q", entityType, tenantID)
	}
	return n, nil
}

var (
	_ TenantRepository = (*sqliteTenants)(nil)
	_ ThemeRepository  = (*sqliteThemes)(nil)
	_ EntityRepository = (*sqliteEntities)(nil)
)

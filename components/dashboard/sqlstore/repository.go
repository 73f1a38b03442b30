// Package sqlstore persists dashboard layouts, versions, overrides and feature
// flags in PostgreSQL (lib/pq) or SQLite (modernc.org/sqlite) through sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Repository implements dashboard.LayoutRepository and
// dashboard.FeatureRepository on a SQL database.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to the database and returns a repository. Call Migrate before
// first use against an empty database.
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}
	if driver == DriverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlstore: pragma: %w", err)
		}
	}
	return New(db), nil
}

// New wraps an existing connection. The driver name decides placeholder style.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Migrate creates the dashboard tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	stmts := postgresSchema
	if r.db.DriverName() == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return nil
}

type layoutRow struct {
	OrganizationID string       `db:"organization_id"`
	Instances      string       `db:"instances"`
	Status         string       `db:"status"`
	Version        int64        `db:"version"`
	UpdatedAt      sql.NullTime `db:"updated_at"`
}

type versionRow struct {
	ID             int64     `db:"id"`
	OrganizationID string    `db:"organization_id"`
	Status         string    `db:"status"`
	Instances      string    `db:"instances"`
	CreatedAt      time.Time `db:"created_at"`
	CreatedBy      string    `db:"created_by"`
}

type overrideRow struct {
	OrganizationID string    `db:"organization_id"`
	UserID         string    `db:"user_id"`
	Instances      string    `db:"instances"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type flagRow struct {
	Feature string `db:"feature"`
	Enabled bool   `db:"enabled"`
}

// UpsertLayout writes the organization's layout row; the last write wins.
func (r *Repository) UpsertLayout(ctx context.Context, layout dashboard.OrgLayout) error {
	payload, err := encodeInstances(layout.Instances)
	if err != nil {
		return err
	}
	updated := r.now()
	if layout.UpdatedAt != nil {
		updated = layout.UpdatedAt.UTC()
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO organization_layouts (organization_id, instances, status, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (organization_id) DO UPDATE SET
			instances = excluded.instances,
			status = excluded.status,
			version = excluded.version,
			updated_at = excluded.updated_at
	`), layout.OrganizationID, payload, string(layout.Status), layout.Version, updated)
	if err != nil {
		return fmt.Errorf("sqlstore: upsert layout: %w", err)
	}
	return nil
}

// LatestLayout returns the organization's layout row when its status matches.
func (r *Repository) LatestLayout(ctx context.Context, orgID string, status dashboard.LayoutStatus) (*dashboard.OrgLayout, error) {
	var row layoutRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT organization_id, instances, status, version, updated_at
		FROM organization_layouts
		WHERE organization_id = ? AND (? = '' OR status = ?)
	`), orgID, string(status), string(status))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: latest layout: %w", err)
	}
	instances, err := decodeInstances(row.Instances)
	if err != nil {
		return nil, err
	}
	layout := &dashboard.OrgLayout{
		OrganizationID: row.OrganizationID,
		Instances:      instances,
		Status:         dashboard.LayoutStatus(row.Status),
		Version:        row.Version,
	}
	if row.UpdatedAt.Valid {
		at := row.UpdatedAt.Time.UTC()
		layout.UpdatedAt = &at
	}
	return layout, nil
}

// InsertVersion appends an immutable snapshot and returns it with its id.
func (r *Repository) InsertVersion(ctx context.Context, version dashboard.LayoutVersion) (dashboard.LayoutVersion, error) {
	payload, err := encodeInstances(version.Instances)
	if err != nil {
		return dashboard.LayoutVersion{}, err
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = r.now()
	}
	err = r.db.QueryRowxContext(ctx, r.db.Rebind(`
		INSERT INTO organization_layout_versions (organization_id, status, instances, created_at, created_by)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), version.OrganizationID, string(version.Status), payload, version.CreatedAt.UTC(), version.CreatedBy).Scan(&version.ID)
	if err != nil {
		return dashboard.LayoutVersion{}, fmt.Errorf("sqlstore: insert version: %w", err)
	}
	return version, nil
}

// ListVersions returns summaries newest first.
func (r *Repository) ListVersions(ctx context.Context, orgID string, limit int) ([]dashboard.VersionSummary, error) {
	query := `
		SELECT id, organization_id, status, '' AS instances, created_at, created_by
		FROM organization_layout_versions
		WHERE organization_id = ?
		ORDER BY created_at DESC, id DESC`
	args := []any{orgID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var rows []versionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: list versions: %w", err)
	}
	out := make([]dashboard.VersionSummary, len(rows))
	for i, row := range rows {
		out[i] = dashboard.VersionSummary{
			ID:        row.ID,
			Status:    dashboard.LayoutStatus(row.Status),
			CreatedAt: row.CreatedAt.UTC(),
			CreatedBy: row.CreatedBy,
		}
	}
	return out, nil
}

// GetVersion returns a snapshot scoped to the organization.
func (r *Repository) GetVersion(ctx context.Context, orgID string, versionID int64) (*dashboard.LayoutVersion, error) {
	var row versionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, organization_id, status, instances, created_at, created_by
		FROM organization_layout_versions
		WHERE organization_id = ? AND id = ?
	`), orgID, versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get version: %w", err)
	}
	instances, err := decodeInstances(row.Instances)
	if err != nil {
		return nil, err
	}
	return &dashboard.LayoutVersion{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Status:         dashboard.LayoutStatus(row.Status),
		Instances:      instances,
		CreatedAt:      row.CreatedAt.UTC(),
		CreatedBy:      row.CreatedBy,
	}, nil
}

// GetOverride returns the member override, if any.
func (r *Repository) GetOverride(ctx context.Context, orgID, userID string) (*dashboard.UserLayoutOverride, error) {
	var row overrideRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT organization_id, user_id, instances, updated_at
		FROM user_layout_overrides
		WHERE organization_id = ? AND user_id = ?
	`), orgID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get override: %w", err)
	}
	instances, err := decodeInstances(row.Instances)
	if err != nil {
		return nil, err
	}
	return &dashboard.UserLayoutOverride{
		OrganizationID: row.OrganizationID,
		UserID:         row.UserID,
		Instances:      instances,
		UpdatedAt:      row.UpdatedAt.UTC(),
	}, nil
}

// UpsertOverride stores one override per (organization, user).
func (r *Repository) UpsertOverride(ctx context.Context, override dashboard.UserLayoutOverride) error {
	payload, err := encodeInstances(override.Instances)
	if err != nil {
		return err
	}
	if override.UpdatedAt.IsZero() {
		override.UpdatedAt = r.now()
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO user_layout_overrides (organization_id, user_id, instances, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (organization_id, user_id) DO UPDATE SET
			instances = excluded.instances,
			updated_at = excluded.updated_at
	`), override.OrganizationID, override.UserID, payload, override.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("sqlstore: upsert override: %w", err)
	}
	return nil
}

// DeleteOverride removes the override; a missing row is not an error.
func (r *Repository) DeleteOverride(ctx context.Context, orgID, userID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM user_layout_overrides WHERE organization_id = ? AND user_id = ?
	`), orgID, userID)
	if err != nil {
		return fmt.Errorf("sqlstore: delete override: %w", err)
	}
	return nil
}

// Flags returns the explicitly stored flags for the organization.
func (r *Repository) Flags(ctx context.Context, orgID string) (map[dashboard.FeatureKey]bool, error) {
	var rows []flagRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT feature, enabled FROM organization_features WHERE organization_id = ?
	`), orgID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: flags: %w", err)
	}
	out := make(map[dashboard.FeatureKey]bool, len(rows))
	for _, row := range rows {
		out[dashboard.FeatureKey(row.Feature)] = row.Enabled
	}
	return out, nil
}

// SetFlag stores a flag value.
func (r *Repository) SetFlag(ctx context.Context, orgID string, key dashboard.FeatureKey, enabled bool) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO organization_features (organization_id, feature, enabled, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (organization_id, feature) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`), orgID, string(key), enabled, r.now())
	if err != nil {
		return fmt.Errorf("sqlstore: set flag: %w", err)
	}
	return nil
}

func encodeInstances(instances []dashboard.WidgetInstance) (string, error) {
	if instances == nil {
		instances = []dashboard.WidgetInstance{}
	}
	raw, err := json.Marshal(instances)
	if err != nil {
		return "", fmt.Errorf("sqlstore: encode instances: %w", err)
	}
	return string(raw), nil
}

func decodeInstances(raw string) ([]dashboard.WidgetInstance, error) {
	if raw == "" {
		return []dashboard.WidgetInstance{}, nil
	}
	var instances []dashboard.WidgetInstance
	if err := json.Unmarshal([]byte(raw), &instances); err != nil {
		return nil, fmt.Errorf("sqlstore: decode instances: %w", err)
	}
	return instances, nil
}

var (
	_ dashboard.LayoutRepository  = (*Repository)(nil)
	_ dashboard.FeatureRepository = (*Repository)(nil)
)

// Package supabase stores dashboard layouts in Supabase tables through the
// PostgREST API. Layout documents live in a layout_json column.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	"github.com/girlsclub/modular-dashboard/pkg/postgrest"
)

const (
	tableLayouts   = "organization_layouts"
	tableVersions  = "organization_layout_versions"
	tableOverrides = "user_layout_overrides"
	tableFeatures  = "organization_features"
)

// Repository implements dashboard.LayoutRepository and
// dashboard.FeatureRepository on Supabase.
type Repository struct {
	client *postgrest.Client
	now    func() time.Time
}

// New wraps a PostgREST client.
func New(client *postgrest.Client) *Repository {
	return &Repository{client: client, now: func() time.Time { return time.Now().UTC() }}
}

type layoutDocument struct {
	OrganizationID string                     `json:"organization_id"`
	Instances      []dashboard.WidgetInstance `json:"instances"`
	Status         dashboard.LayoutStatus     `json:"status,omitempty"`
}

type layoutRow struct {
	OrganizationID string         `json:"organization_id"`
	LayoutJSON     layoutDocument `json:"layout_json"`
	Version        int64          `json:"version,omitempty"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
}

type versionRow struct {
	ID             int64           `json:"id,omitempty"`
	OrganizationID string          `json:"organization_id"`
	Status         string          `json:"status"`
	LayoutJSON     *layoutDocument `json:"layout_json,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CreatedBy      *string         `json:"created_by"`
}

type overrideRow struct {
	OrganizationID string         `json:"organization_id"`
	UserID         string         `json:"user_id"`
	LayoutJSON     layoutDocument `json:"layout_json"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type featureRow struct {
	OrganizationID string `json:"organization_id"`
	FeatureKey     string `json:"feature_key"`
	Enabled        bool   `json:"enabled"`
}

// UpsertLayout writes the organization row, merging on organization_id.
func (r *Repository) UpsertLayout(ctx context.Context, layout dashboard.OrgLayout) error {
	updated := r.now()
	if layout.UpdatedAt != nil {
		updated = *layout.UpdatedAt
	}
	row := layoutRow{
		OrganizationID: layout.OrganizationID,
		LayoutJSON:     document(layout.OrganizationID, layout.Instances, layout.Status),
		Version:        layout.Version,
		UpdatedAt:      &updated,
	}
	return r.client.From(tableLayouts).Upsert(ctx, row, "organization_id")
}

// LatestLayout returns the newest layout row when its status matches.
func (r *Repository) LatestLayout(ctx context.Context, orgID string, status dashboard.LayoutStatus) (*dashboard.OrgLayout, error) {
	var row layoutRow
	err := r.client.From(tableLayouts).
		Select("organization_id,layout_json,version,updated_at").
		Eq("organization_id", orgID).
		Order("updated_at", false).
		Single(ctx, &row)
	if errors.Is(err, postgrest.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc := row.LayoutJSON
	if doc.Status == "" {
		doc.Status = dashboard.StatusPublished
	}
	if status != "" && doc.Status != status {
		return nil, nil
	}
	return &dashboard.OrgLayout{
		OrganizationID: orgID,
		Instances:      nonNil(doc.Instances),
		Status:         doc.Status,
		Version:        row.Version,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// InsertVersion appends a snapshot and reads back its assigned id.
func (r *Repository) InsertVersion(ctx context.Context, version dashboard.LayoutVersion) (dashboard.LayoutVersion, error) {
	if version.CreatedAt.IsZero() {
		version.CreatedAt = r.now()
	}
	doc := document(version.OrganizationID, version.Instances, version.Status)
	row := versionRow{
		OrganizationID: version.OrganizationID,
		Status:         string(version.Status),
		LayoutJSON:     &doc,
		CreatedAt:      version.CreatedAt,
		CreatedBy:      optional(version.CreatedBy),
	}
	var created []versionRow
	if err := r.client.From(tableVersions).Insert(ctx, row, &created); err != nil {
		return dashboard.LayoutVersion{}, err
	}
	if len(created) == 0 {
		return dashboard.LayoutVersion{}, fmt.Errorf("supabase: insert version returned no rows")
	}
	version.ID = created[0].ID
	return version, nil
}

// ListVersions returns summaries newest first.
func (r *Repository) ListVersions(ctx context.Context, orgID string, limit int) ([]dashboard.VersionSummary, error) {
	var rows []versionRow
	err := r.client.From(tableVersions).
		Select("id,organization_id,status,created_at,created_by").
		Eq("organization_id", orgID).
		Order("created_at", false).
		Order("id", false).
		Limit(limit).
		Rows(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]dashboard.VersionSummary, len(rows))
	for i, row := range rows {
		out[i] = dashboard.VersionSummary{
			ID:        row.ID,
			Status:    dashboard.LayoutStatus(row.Status),
			CreatedAt: row.CreatedAt,
			CreatedBy: deref(row.CreatedBy),
		}
	}
	return out, nil
}

// GetVersion returns a snapshot scoped to the organization.
func (r *Repository) GetVersion(ctx context.Context, orgID string, versionID int64) (*dashboard.LayoutVersion, error) {
	var row versionRow
	err := r.client.From(tableVersions).
		Select("id,organization_id,status,layout_json,created_at,created_by").
		Eq("organization_id", orgID).
		Eq("id", strconv.FormatInt(versionID, 10)).
		Single(ctx, &row)
	if errors.Is(err, postgrest.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var instances []dashboard.WidgetInstance
	if row.LayoutJSON != nil {
		instances = row.LayoutJSON.Instances
	}
	return &dashboard.LayoutVersion{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Status:         dashboard.LayoutStatus(row.Status),
		Instances:      nonNil(instances),
		CreatedAt:      row.CreatedAt,
		CreatedBy:      deref(row.CreatedBy),
	}, nil
}

// GetOverride returns the member override, if any.
func (r *Repository) GetOverride(ctx context.Context, orgID, userID string) (*dashboard.UserLayoutOverride, error) {
	var row overrideRow
	err := r.client.From(tableOverrides).
		Select("organization_id,user_id,layout_json,updated_at").
		Eq("organization_id", orgID).
		Eq("user_id", userID).
		Single(ctx, &row)
	if errors.Is(err, postgrest.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dashboard.UserLayoutOverride{
		OrganizationID: orgID,
		UserID:         userID,
		Instances:      nonNil(row.LayoutJSON.Instances),
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// UpsertOverride stores one override per (organization, user).
func (r *Repository) UpsertOverride(ctx context.Context, override dashboard.UserLayoutOverride) error {
	if override.UpdatedAt.IsZero() {
		override.UpdatedAt = r.now()
	}
	row := overrideRow{
		OrganizationID: override.OrganizationID,
		UserID:         override.UserID,
		LayoutJSON:     document(override.OrganizationID, override.Instances, ""),
		UpdatedAt:      override.UpdatedAt,
	}
	return r.client.From(tableOverrides).Upsert(ctx, row, "organization_id,user_id")
}

// DeleteOverride removes the override row.
func (r *Repository) DeleteOverride(ctx context.Context, orgID, userID string) error {
	return r.client.From(tableOverrides).Eq("organization_id", orgID).Eq("user_id", userID).Delete(ctx)
}

// Flags returns the explicitly stored flags for the organization.
func (r *Repository) Flags(ctx context.Context, orgID string) (map[dashboard.FeatureKey]bool, error) {
	var rows []featureRow
	if err := r.client.From(tableFeatures).Select("feature_key,enabled").Eq("organization_id", orgID).Rows(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[dashboard.FeatureKey]bool, len(rows))
	for _, row := range rows {
		out[dashboard.FeatureKey(row.FeatureKey)] = row.Enabled
	}
	return out, nil
}

// SetFlag stores a flag value.
func (r *Repository) SetFlag(ctx context.Context, orgID string, key dashboard.FeatureKey, enabled bool) error {
	row := featureRow{OrganizationID: orgID, FeatureKey: string(key), Enabled: enabled}
	return r.client.From(tableFeatures).Upsert(ctx, row, "organization_id,feature_key")
}

func document(orgID string, instances []dashboard.WidgetInstance, status dashboard.LayoutStatus) layoutDocument {
	return layoutDocument{OrganizationID: orgID, Instances: nonNil(instances), Status: status}
}

func nonNil(instances []dashboard.WidgetInstance) []dashboard.WidgetInstance {
	if instances == nil {
		return []dashboard.WidgetInstance{}
	}
	return instances
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

var (
	_ dashboard.LayoutRepository  = (*Repository)(nil)
	_ dashboard.FeatureRepository = (*Repository)(nil)
)

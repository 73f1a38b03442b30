package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository is a concurrency-safe in-process LayoutRepository and
// FeatureRepository, used by tests, examples and the CLI.
type MemoryRepository struct {
	mu        sync.RWMutex
	layouts   map[string]OrgLayout
	versions  []LayoutVersion
	nextID    int64
	overrides map[string]UserLayoutOverride
	features  map[string]map[FeatureKey]bool
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		layouts:   make(map[string]OrgLayout),
		overrides: make(map[string]UserLayoutOverride),
		features:  make(map[string]map[FeatureKey]bool),
	}
}

// UpsertLayout replaces the organization's layout row.
func (r *MemoryRepository) UpsertLayout(_ context.Context, layout OrgLayout) error {
	if layout.OrganizationID == "" {
		return fmt.Errorf("memory repository requires organization id")
	}
	layout.Instances = CloneInstances(layout.Instances)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layouts[layout.OrganizationID] = layout
	return nil
}

// LatestLayout returns the stored layout when its status matches.
func (r *MemoryRepository) LatestLayout(_ context.Context, orgID string, status LayoutStatus) (*OrgLayout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	layout, ok := r.layouts[orgID]
	if !ok || (status != "" && layout.Status != status) {
		return nil, nil
	}
	layout.Instances = CloneInstances(layout.Instances)
	return &layout, nil
}

// InsertVersion appends a version and assigns it the next id.
func (r *MemoryRepository) InsertVersion(_ context.Context, version LayoutVersion) (LayoutVersion, error) {
	if version.OrganizationID == "" {
		return LayoutVersion{}, fmt.Errorf("memory repository requires organization id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	version.ID = r.nextID
	version.Instances = CloneInstances(version.Instances)
	r.versions = append(r.versions, version)
	return version, nil
}

// ListVersions returns summaries newest first.
func (r *MemoryRepository) ListVersions(_ context.Context, orgID string, limit int) ([]VersionSummary, error) {
	r.mu.RLock()
	matches := make([]LayoutVersion, 0)
	for _, v := range r.versions {
		if v.OrganizationID == orgID {
			matches = append(matches, v)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]VersionSummary, len(matches))
	for i, v := range matches {
		out[i] = VersionSummary{ID: v.ID, Status: v.Status, CreatedAt: v.CreatedAt, CreatedBy: v.CreatedBy}
	}
	return out, nil
}

// GetVersion returns a version scoped to the organization.
func (r *MemoryRepository) GetVersion(_ context.Context, orgID string, versionID int64) (*LayoutVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.versions {
		if v.ID == versionID && v.OrganizationID == orgID {
			v.Instances = CloneInstances(v.Instances)
			return &v, nil
		}
	}
	return nil, nil
}

// GetOverride returns the member override, if any.
func (r *MemoryRepository) GetOverride(_ context.Context, orgID, userID string) (*UserLayoutOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	override, ok := r.overrides[overrideKey(orgID, userID)]
	if !ok {
		return nil, nil
	}
	override.Instances = CloneInstances(override.Instances)
	return &override, nil
}

// UpsertOverride stores one override per (organization, user).
func (r *MemoryRepository) UpsertOverride(_ context.Context, override UserLayoutOverride) error {
	if override.OrganizationID == "" || override.UserID == "" {
		return fmt.Errorf("memory repository requires organization and user id")
	}
	override.Instances = CloneInstances(override.Instances)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[overrideKey(override.OrganizationID, override.UserID)] = override
	return nil
}

// DeleteOverride removes the override; deleting a missing row is not an error.
func (r *MemoryRepository) DeleteOverride(_ context.Context, orgID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, overrideKey(orgID, userID))
	return nil
}

// Flags returns the explicitly stored flags for the organization.
func (r *MemoryRepository) Flags(_ context.Context, orgID string) (map[FeatureKey]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[FeatureKey]bool, len(r.features[orgID]))
	for k, v := range r.features[orgID] {
		out[k] = v
	}
	return out, nil
}

// SetFlag stores a flag value.
func (r *MemoryRepository) SetFlag(_ context.Context, orgID string, key FeatureKey, enabled bool) error {
	if orgID == "" {
		return fmt.Errorf("memory repository requires organization id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	flags, ok := r.features[orgID]
	if !ok {
		flags = make(map[FeatureKey]bool)
		r.features[orgID] = flags
	}
	flags[key] = enabled
	return nil
}

func overrideKey(orgID, userID string) string {
	return orgID + "::" + userID
}

var (
	_ LayoutRepository  = (*MemoryRepository)(nil)
	_ FeatureRepository = (*MemoryRepository)(nil)
)

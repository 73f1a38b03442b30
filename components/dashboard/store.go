package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultVersionLimit caps version listings when callers pass no limit.
const DefaultVersionLimit = 5

// StoreOptions configures a LayoutStore.
type StoreOptions struct {
	Repository LayoutRepository
	Logger     *zap.Logger
	Telemetry  Telemetry
	Hook       ChangeHook
	Now        func() time.Time
}

// LayoutStore persists the published, draft and user-override planes. Every
// operation fails soft: repository errors are logged and surface as nil or
// false so callers keep their last known state.
type LayoutStore struct {
	repo      LayoutRepository
	log       *zap.Logger
	telemetry Telemetry
	hook      ChangeHook
	now       func() time.Time
}

// NewLayoutStore builds a store with safe defaults.
func NewLayoutStore(opts StoreOptions) *LayoutStore {
	if opts.Repository == nil {
		opts.Repository = NewMemoryRepository()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Hook == nil {
		opts.Hook = noopChangeHook{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LayoutStore{
		repo:      opts.Repository,
		log:       opts.Logger.Named("layout_store"),
		telemetry: normalizeTelemetry(opts.Telemetry),
		hook:      opts.Hook,
		now:       opts.Now,
	}
}

// FetchPublished returns the live layout or nil when none exists.
func (s *LayoutStore) FetchPublished(ctx context.Context, orgID string) *OrgLayout {
	if orgID == "" {
		return nil
	}
	layout, err := s.repo.LatestLayout(ctx, orgID, StatusPublished)
	if err != nil {
		s.failed(ctx, "fetch_published", err, zap.String("organization_id", orgID))
		return nil
	}
	return layout
}

// SavePublished upserts the organization's published layout, then appends a
// published version. A failed version append is logged and ignored.
func (s *LayoutStore) SavePublished(ctx context.Context, orgID string, instances []WidgetInstance, actorID string) bool {
	return s.savePublished(ctx, orgID, instances, actorID, ReasonPublish)
}

func (s *LayoutStore) savePublished(ctx context.Context, orgID string, instances []WidgetInstance, actorID, reason string) bool {
	if orgID == "" {
		return false
	}
	now := s.now().UTC()
	layout := OrgLayout{
		OrganizationID: orgID,
		Instances:      CloneInstances(nonNil(instances)),
		Status:         StatusPublished,
		UpdatedAt:      &now,
	}
	if err := s.repo.UpsertLayout(ctx, layout); err != nil {
		s.failed(ctx, "save_published", err, zap.String("organization_id", orgID))
		return false
	}
	version, err := s.repo.InsertVersion(ctx, LayoutVersion{
		OrganizationID: orgID,
		Status:         StatusPublished,
		Instances:      layout.Instances,
		CreatedAt:      now,
		CreatedBy:      actorID,
	})
	if err != nil {
		s.log.Warn("version append failed after publish",
			zap.String("organization_id", orgID),
			zap.Error(err),
		)
		s.telemetry.Record(ctx, "dashboard.layout.version_failed", map[string]any{
			"organization_id": orgID,
			"error":           err.Error(),
		})
	}
	s.telemetry.Record(ctx, "dashboard.layout."+reason, map[string]any{
		"organization_id": orgID,
		"instances":       len(layout.Instances),
		"version_id":      version.ID,
	})
	s.notify(ctx, LayoutEvent{
		OrganizationID: orgID,
		ActorID:        actorID,
		Reason:         reason,
		VersionID:      version.ID,
		OccurredAt:     now,
	})
	return true
}

// SaveDraft appends a draft version without touching the published layout.
func (s *LayoutStore) SaveDraft(ctx context.Context, orgID string, instances []WidgetInstance, actorID string) bool {
	if orgID == "" {
		return false
	}
	now := s.now().UTC()
	version, err := s.repo.InsertVersion(ctx, LayoutVersion{
		OrganizationID: orgID,
		Status:         StatusDraft,
		Instances:      CloneInstances(nonNil(instances)),
		CreatedAt:      now,
		CreatedBy:      actorID,
	})
	if err != nil {
		s.failed(ctx, "save_draft", err, zap.String("organization_id", orgID))
		return false
	}
	s.telemetry.Record(ctx, "dashboard.layout.draft", map[string]any{
		"organization_id": orgID,
		"version_id":      version.ID,
	})
	s.notify(ctx, LayoutEvent{
		OrganizationID: orgID,
		ActorID:        actorID,
		Reason:         ReasonDraft,
		VersionID:      version.ID,
		OccurredAt:     now,
	})
	return true
}

// ListVersions returns version summaries newest first. A non-positive limit
// falls back to DefaultVersionLimit.
func (s *LayoutStore) ListVersions(ctx context.Context, orgID string, limit int) []VersionSummary {
	if orgID == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultVersionLimit
	}
	versions, err := s.repo.ListVersions(ctx, orgID, limit)
	if err != nil {
		s.failed(ctx, "list_versions", err, zap.String("organization_id", orgID))
		return nil
	}
	if len(versions) > limit {
		versions = versions[:limit]
	}
	return versions
}

// FetchVersion returns a historical snapshot as a layout, or nil.
func (s *LayoutStore) FetchVersion(ctx context.Context, orgID string, versionID int64) *OrgLayout {
	if orgID == "" {
		return nil
	}
	version, err := s.repo.GetVersion(ctx, orgID, versionID)
	if err != nil {
		s.failed(ctx, "fetch_version", err,
			zap.String("organization_id", orgID),
			zap.Int64("version_id", versionID),
		)
		return nil
	}
	if version == nil {
		return nil
	}
	createdAt := version.CreatedAt
	return &OrgLayout{
		OrganizationID: version.OrganizationID,
		Instances:      version.Instances,
		Status:         version.Status,
		Version:        version.ID,
		UpdatedAt:      &createdAt,
	}
}

// RollbackTo republishes a past version's instances. The rolled-back-from
// state stays in history and a new version is appended.
func (s *LayoutStore) RollbackTo(ctx context.Context, orgID string, versionID int64, actorID string) bool {
	version := s.FetchVersion(ctx, orgID, versionID)
	if version == nil {
		return false
	}
	return s.savePublished(ctx, orgID, version.Instances, actorID, ReasonRollback)
}

// FetchUserOverride returns a member's personal layout, or nil.
func (s *LayoutStore) FetchUserOverride(ctx context.Context, orgID, userID string) *OrgLayout {
	if orgID == "" || userID == "" {
		return nil
	}
	override, err := s.repo.GetOverride(ctx, orgID, userID)
	if err != nil {
		s.failed(ctx, "fetch_override", err,
			zap.String("organization_id", orgID),
			zap.String("user_id", userID),
		)
		return nil
	}
	if override == nil {
		return nil
	}
	updated := override.UpdatedAt
	return &OrgLayout{
		OrganizationID: override.OrganizationID,
		Instances:      override.Instances,
		Status:         StatusPublished,
		UpdatedAt:      &updated,
	}
}

// SaveUserOverride upserts the member's personal layout.
func (s *LayoutStore) SaveUserOverride(ctx context.Context, orgID, userID string, instances []WidgetInstance) bool {
	if orgID == "" || userID == "" {
		return false
	}
	now := s.now().UTC()
	err := s.repo.UpsertOverride(ctx, UserLayoutOverride{
		OrganizationID: orgID,
		UserID:         userID,
		Instances:      CloneInstances(nonNil(instances)),
		UpdatedAt:      now,
	})
	if err != nil {
		s.failed(ctx, "save_override", err,
			zap.String("organization_id", orgID),
			zap.String("user_id", userID),
		)
		return false
	}
	s.telemetry.Record(ctx, "dashboard.override.save", map[string]any{
		"organization_id": orgID,
		"user_id":         userID,
	})
	s.notify(ctx, LayoutEvent{
		OrganizationID: orgID,
		UserID:         userID,
		ActorID:        userID,
		Reason:         ReasonOverrideSave,
		OccurredAt:     now,
	})
	return true
}

// ResetUserOverride deletes the member's personal layout.
func (s *LayoutStore) ResetUserOverride(ctx context.Context, orgID, userID string) bool {
	if orgID == "" || userID == "" {
		return false
	}
	if err := s.repo.DeleteOverride(ctx, orgID, userID); err != nil {
		s.failed(ctx, "reset_override", err,
			zap.String("organization_id", orgID),
			zap.String("user_id", userID),
		)
		return false
	}
	s.telemetry.Record(ctx, "dashboard.override.reset", map[string]any{
		"organization_id": orgID,
		"user_id":         userID,
	})
	s.notify(ctx, LayoutEvent{
		OrganizationID: orgID,
		UserID:         userID,
		ActorID:        userID,
		Reason:         ReasonOverrideReset,
		OccurredAt:     s.now().UTC(),
	})
	return true
}

func (s *LayoutStore) failed(ctx context.Context, op string, err error, fields ...zap.Field) {
	s.log.Warn("layout store "+op+" failed", append(fields, zap.Error(err))...)
	s.telemetry.Record(ctx, "dashboard.store.error", map[string]any{
		"op":    op,
		"error": err.Error(),
	})
}

func (s *LayoutStore) notify(ctx context.Context, event LayoutEvent) {
	if err := s.hook.LayoutChanged(ctx, event); err != nil {
		s.log.Warn("layout change hook failed",
			zap.String("organization_id", event.OrganizationID),
			zap.String("reason", event.Reason),
			zap.Error(err),
		)
	}
}

func nonNil(instances []WidgetInstance) []WidgetInstance {
	if instances == nil {
		return []WidgetInstance{}
	}
	return instances
}

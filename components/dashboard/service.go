package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errMissingOrganization = errors.New("dashboard: organization id is required")
	// ErrInvalidLayout marks instance sequences rejected before persisting.
	ErrInvalidLayout = errors.New("dashboard: invalid layout")
)

// FeatureManager is a FeatureGate that can also list and toggle flags.
// Both FeatureFlags and CachedFeatureGate satisfy it.
type FeatureManager interface {
	FeatureGate
	Snapshot(ctx context.Context, orgID string) map[FeatureKey]bool
	Set(ctx context.Context, orgID string, feature FeatureKey, enabled bool, actorID string) error
}

// Authorizer decides who may change the organization layout and flags.
type Authorizer interface {
	CanManageOrganization(ctx context.Context, session Session) bool
}

// Options configures the dashboard Service. Every collaborator is provided via
// interface so applications can swap implementations without importing internal
// packages.
type Options struct {
	Store      *LayoutStore
	Features   FeatureManager
	Catalog    *Catalog
	Validator  ConfigValidator
	Renderer   *WidgetRenderer
	Authorizer Authorizer
	Logger     *zap.Logger
	Telemetry  Telemetry
}

// Service is the stateless server-side facade over the layout planes. Each
// call carries the caller's Session; edit state lives with the client.
type Service struct {
	store      *LayoutStore
	features   FeatureManager
	catalog    *Catalog
	validator  ConfigValidator
	renderer   *WidgetRenderer
	authorizer Authorizer
	log        *zap.Logger
	telemetry  Telemetry
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.Store == nil {
		opts.Store = NewLayoutStore(StoreOptions{Logger: opts.Logger, Telemetry: opts.Telemetry})
	}
	if opts.Features == nil {
		opts.Features = NewFeatureFlags(FeatureOptions{Logger: opts.Logger, Telemetry: opts.Telemetry})
	}
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaValidator()
	}
	if opts.Renderer == nil {
		opts.Renderer = NewWidgetRenderer(RendererOptions{
			Catalog:   opts.Catalog,
			Features:  opts.Features,
			Logger:    opts.Logger,
			Telemetry: opts.Telemetry,
		})
	}
	if opts.Authorizer == nil {
		opts.Authorizer = sessionAuthorizer{}
	}
	return &Service{
		store:      opts.Store,
		features:   opts.Features,
		catalog:    opts.Catalog,
		validator:  opts.Validator,
		renderer:   opts.Renderer,
		authorizer: opts.Authorizer,
		log:        opts.Logger.Named("service"),
		telemetry:  normalizeTelemetry(opts.Telemetry),
	}
}

// LayoutView is the effective layout for one session plus its rendering.
type LayoutView struct {
	Source    LayoutSource     `json:"source"`
	Instances []WidgetInstance `json:"instances"`
	Widgets   []RenderedWidget `json:"widgets"`
}

// Catalog exposes the catalog the service validates against.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Store exposes the layout store.
func (s *Service) Store() *LayoutStore {
	return s.store
}

// Layout resolves and renders the effective layout for the session.
func (s *Service) Layout(ctx context.Context, session Session, editing bool) (LayoutView, error) {
	if session.OrganizationID == "" {
		return LayoutView{}, errMissingOrganization
	}
	resolved := ResolveEffective(ctx, s.store, session)
	widgets := s.renderer.Render(ctx, RenderRequest{
		Session:   session,
		Instances: resolved.Instances,
		Editing:   editing && s.canEdit(ctx, session),
	})
	s.telemetry.Record(ctx, "dashboard.layout.resolve", map[string]any{
		"organization_id": session.OrganizationID,
		"user_id":         session.UserID,
		"source":          string(resolved.Source),
	})
	return LayoutView{Source: resolved.Source, Instances: resolved.Instances, Widgets: widgets}, nil
}

// Publish replaces the organization's published layout.
func (s *Service) Publish(ctx context.Context, session Session, instances []WidgetInstance) error {
	if err := s.requireAdmin(ctx, session); err != nil {
		return err
	}
	clean, err := s.NormalizeInstances(instances)
	if err != nil {
		return err
	}
	if !s.store.SavePublished(ctx, session.OrganizationID, clean, actorFor(ctx, session)) {
		return ErrPersistFailed
	}
	return nil
}

// SaveDraft appends a draft version without publishing it.
func (s *Service) SaveDraft(ctx context.Context, session Session, instances []WidgetInstance) error {
	if err := s.requireAdmin(ctx, session); err != nil {
		return err
	}
	clean, err := s.NormalizeInstances(instances)
	if err != nil {
		return err
	}
	if !s.store.SaveDraft(ctx, session.OrganizationID, clean, actorFor(ctx, session)) {
		return ErrPersistFailed
	}
	return nil
}

// Versions lists the organization's history newest first.
func (s *Service) Versions(ctx context.Context, session Session, limit int) ([]VersionSummary, error) {
	if err := s.requireAdmin(ctx, session); err != nil {
		return nil, err
	}
	versions := s.store.ListVersions(ctx, session.OrganizationID, limit)
	if versions == nil {
		versions = []VersionSummary{}
	}
	return versions, nil
}

// Version returns one historical snapshot for previewing.
func (s *Service) Version(ctx context.Context, session Session, versionID int64) (*OrgLayout, error) {
	if err := s.requireAdmin(ctx, session); err != nil {
		return nil, err
	}
	layout := s.store.FetchVersion(ctx, session.OrganizationID, versionID)
	if layout == nil {
		return nil, fmt.Errorf("%w: %d", ErrVersionNotFound, versionID)
	}
	return layout, nil
}

// Rollback republishes a historical version.
func (s *Service) Rollback(ctx context.Context, session Session, versionID int64) error {
	if err := s.requireAdmin(ctx, session); err != nil {
		return err
	}
	if s.store.FetchVersion(ctx, session.OrganizationID, versionID) == nil {
		return fmt.Errorf("%w: %d", ErrVersionNotFound, versionID)
	}
	if !s.store.RollbackTo(ctx, session.OrganizationID, versionID, actorFor(ctx, session)) {
		return ErrPersistFailed
	}
	return nil
}

// SaveOverride stores the member's personal layout.
func (s *Service) SaveOverride(ctx context.Context, session Session, instances []WidgetInstance) error {
	if err := requireMember(session); err != nil {
		return err
	}
	clean, err := s.NormalizeInstances(instances)
	if err != nil {
		return err
	}
	if !s.store.SaveUserOverride(ctx, session.OrganizationID, session.UserID, clean) {
		return ErrPersistFailed
	}
	return nil
}

// ResetOverride removes the member's personal layout.
func (s *Service) ResetOverride(ctx context.Context, session Session) error {
	if err := requireMember(session); err != nil {
		return err
	}
	if !s.store.ResetUserOverride(ctx, session.OrganizationID, session.UserID) {
		return ErrPersistFailed
	}
	return nil
}

// AvailableWidgets is the add picker for the session's organization.
func (s *Service) AvailableWidgets(ctx context.Context, session Session) []WidgetMeta {
	metas := AvailableWidgets(ctx, s.catalog, s.features, session.OrganizationID)
	return s.renderer.LocalizeWidgets(ctx, metas, session.Locale)
}

// Features returns every known flag for the organization.
func (s *Service) Features(ctx context.Context, session Session) (map[FeatureKey]bool, error) {
	if session.OrganizationID == "" {
		return nil, errMissingOrganization
	}
	return s.features.Snapshot(ctx, session.OrganizationID), nil
}

// SetFeature toggles a flag for the organization.
func (s *Service) SetFeature(ctx context.Context, session Session, feature FeatureKey, enabled bool) error {
	if err := s.requireAdmin(ctx, session); err != nil {
		return err
	}
	return s.features.Set(ctx, session.OrganizationID, feature, enabled, actorFor(ctx, session))
}

// NormalizeInstances validates an incoming sequence: keys must be in the
// catalog, ids unique (missing ids are generated), footprints are clamped and
// props must satisfy the widget schema.
func (s *Service) NormalizeInstances(instances []WidgetInstance) ([]WidgetInstance, error) {
	out := make([]WidgetInstance, 0, len(instances))
	seen := make(map[string]struct{}, len(instances))
	for i, inst := range instances {
		meta, err := s.catalog.Lookup(inst.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: instance %d: %w", ErrInvalidLayout, i, err)
		}
		inst = inst.Clone()
		inst.ID = strings.TrimSpace(inst.ID)
		if inst.ID == "" {
			inst.ID = uuid.NewString()
		}
		if _, dup := seen[inst.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate instance id %q", ErrInvalidLayout, inst.ID)
		}
		seen[inst.ID] = struct{}{}
		inst.Title = strings.TrimSpace(inst.Title)
		if inst.Layout != nil {
			fp := clampFootprint(inst.Footprint())
			inst.Layout = &fp
		}
		if err := s.validator.Validate(meta, mergeProps(meta.DefaultProps, inst.Props)); err != nil {
			return nil, fmt.Errorf("%w: instance %s: %w", ErrInvalidLayout, inst.ID, err)
		}
		out = append(out, inst)
	}
	return out, nil
}

func (s *Service) canEdit(ctx context.Context, session Session) bool {
	return session.OrganizationID != "" && s.authorizer.CanManageOrganization(ctx, session)
}

func (s *Service) requireAdmin(ctx context.Context, session Session) error {
	if session.OrganizationID == "" {
		return errMissingOrganization
	}
	if !s.canEdit(ctx, session) {
		s.log.Debug("organization change refused",
			zap.String("organization_id", session.OrganizationID),
			zap.String("user_id", session.UserID),
		)
		return ErrForbidden
	}
	return nil
}

func requireMember(session Session) error {
	if session.OrganizationID == "" {
		return errMissingOrganization
	}
	if !session.SignedIn() {
		return fmt.Errorf("%w: sign in to save a personal layout", ErrForbidden)
	}
	return nil
}

func actorFor(ctx context.Context, session Session) string {
	if meta := activityContextFrom(ctx); meta.ActorID != "" {
		return meta.ActorID
	}
	return session.UserID
}

type sessionAuthorizer struct{}

func (sessionAuthorizer) CanManageOrganization(_ context.Context, session Session) bool {
	return session.IsAdmin
}

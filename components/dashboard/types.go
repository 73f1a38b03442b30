package dashboard

import (
	"context"
	"errors"
	"time"
)

// WidgetKey identifies a catalog widget kind. The set of keys is closed.
type WidgetKey string

const (
	WidgetFeaturedEvent       WidgetKey = "featured-event"
	WidgetUpcomingEvents      WidgetKey = "upcoming-events"
	WidgetSteps               WidgetKey = "steps"
	WidgetPromo               WidgetKey = "promo"
	WidgetQuickActions        WidgetKey = "quick-actions"
	WidgetPoints              WidgetKey = "points"
	WidgetCommunityHighlights WidgetKey = "community-highlights"
	WidgetMiniCalendar        WidgetKey = "mini-calendar"
	WidgetLeaderboard         WidgetKey = "leaderboard"
	WidgetStoreCarousel       WidgetKey = "store-carousel"
	WidgetProductGrid         WidgetKey = "product-grid"
	WidgetFeaturedProduct     WidgetKey = "featured-product"
	WidgetOfferBanner         WidgetKey = "offer-banner"
	WidgetMiniCart            WidgetKey = "mini-cart"
)

// LayoutStatus tags layouts and versions.
type LayoutStatus string

const (
	StatusPublished LayoutStatus = "published"
	StatusDraft     LayoutStatus = "draft"
)

// Session carries the organization/auth context a dashboard runs under.
type Session struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id,omitempty"`
	IsAdmin        bool   `json:"is_admin"`
	Locale         string `json:"locale,omitempty"`
}

// SignedIn reports whether the session belongs to a known user.
func (s Session) SignedIn() bool {
	return s.UserID != ""
}

// Footprint is the grid placement of a widget instance.
type Footprint struct {
	W int `json:"w,omitempty" yaml:"w,omitempty"`
	H int `json:"h,omitempty" yaml:"h,omitempty"`
}

// WidgetInstance is one placed occurrence of a catalog widget.
type WidgetInstance struct {
	ID     string         `json:"id" yaml:"id"`
	Key    WidgetKey      `json:"key" yaml:"key"`
	Title  string         `json:"title,omitempty" yaml:"title,omitempty"`
	Props  map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
	Layout *Footprint     `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// OrgLayout is an ordered instance sequence owned by an organization (or by
// an organization member when returned for an override).
type OrgLayout struct {
	OrganizationID string           `json:"organization_id"`
	Instances      []WidgetInstance `json:"instances"`
	Status         LayoutStatus     `json:"status,omitempty"`
	Version        int64            `json:"version,omitempty"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

// LayoutVersion is an immutable snapshot appended on publish and draft saves.
type LayoutVersion struct {
	ID             int64            `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Status         LayoutStatus     `json:"status"`
	Instances      []WidgetInstance `json:"instances"`
	CreatedAt      time.Time        `json:"created_at"`
	CreatedBy      string           `json:"created_by,omitempty"`
}

// VersionSummary is the history listing entry for a version.
type VersionSummary struct {
	ID        int64        `json:"id"`
	Status    LayoutStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	CreatedBy string       `json:"created_by,omitempty"`
}

// UserLayoutOverride is a member's personal layout for one organization.
type UserLayoutOverride struct {
	OrganizationID string           `json:"organization_id"`
	UserID         string           `json:"user_id"`
	Instances      []WidgetInstance `json:"instances"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// LayoutRepository is the persistence collaborator behind LayoutStore.
// Implementations return (nil, nil) when a record does not exist.
type LayoutRepository interface {
	UpsertLayout(ctx context.Context, layout OrgLayout) error
	LatestLayout(ctx context.Context, orgID string, status LayoutStatus) (*OrgLayout, error)
	InsertVersion(ctx context.Context, version LayoutVersion) (LayoutVersion, error)
	ListVersions(ctx context.Context, orgID string, limit int) ([]VersionSummary, error)
	GetVersion(ctx context.Context, orgID string, versionID int64) (*LayoutVersion, error)
	GetOverride(ctx context.Context, orgID, userID string) (*UserLayoutOverride, error)
	UpsertOverride(ctx context.Context, override UserLayoutOverride) error
	DeleteOverride(ctx context.Context, orgID, userID string) error
}

// ChangeHook notifies transports about persisted layout changes.
type ChangeHook interface {
	LayoutChanged(ctx context.Context, event LayoutEvent) error
}

// LayoutEvent describes a persisted change to a layout plane or feature flag.
type LayoutEvent struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	Reason         string    `json:"reason"`
	VersionID      int64     `json:"version_id,omitempty"`
	Feature        string    `json:"feature,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

const (
	ReasonPublish       = "publish"
	ReasonDraft         = "draft"
	ReasonRollback      = "rollback"
	ReasonOverrideSave  = "override.save"
	ReasonOverrideReset = "override.reset"
	ReasonFeatureToggle = "feature.toggle"
)

type noopChangeHook struct{}

func (noopChangeHook) LayoutChanged(context.Context, LayoutEvent) error { return nil }

// ChangeHooks fans a single event out to several hooks, joining errors.
type ChangeHooks []ChangeHook

// LayoutChanged notifies every hook in order.
func (hooks ChangeHooks) LayoutChanged(ctx context.Context, event LayoutEvent) error {
	var errs []error
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook.LayoutChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

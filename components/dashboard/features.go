package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownFeature is returned when a flag outside the known set is toggled.
var ErrUnknownFeature = errors.New("dashboard: unknown feature")

// FeatureRepository reads and writes per-organization feature flags.
type FeatureRepository interface {
	Flags(ctx context.Context, orgID string) (map[FeatureKey]bool, error)
	SetFlag(ctx context.Context, orgID string, key FeatureKey, enabled bool) error
}

// FeatureGate answers whether a feature is enabled for an organization.
// Missing or unreadable flags are reported as disabled.
type FeatureGate interface {
	IsEnabled(ctx context.Context, orgID string, feature FeatureKey) bool
}

// FeatureOptions configures FeatureFlags.
type FeatureOptions struct {
	Repository FeatureRepository
	Logger     *zap.Logger
	Telemetry  Telemetry
	Hook       ChangeHook
	Now        func() time.Time
}

// FeatureFlags is the FeatureGate backed by a FeatureRepository.
type FeatureFlags struct {
	repo      FeatureRepository
	log       *zap.Logger
	telemetry Telemetry
	hook      ChangeHook
	now       func() time.Time
}

// NewFeatureFlags builds the flag service with safe defaults.
func NewFeatureFlags(opts FeatureOptions) *FeatureFlags {
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
	return &FeatureFlags{
		repo:      opts.Repository,
		log:       opts.Logger.Named("features"),
		telemetry: normalizeTelemetry(opts.Telemetry),
		hook:      opts.Hook,
		now:       opts.Now,
	}
}

// IsEnabled reports the stored flag; anything not explicitly enabled is off.
func (f *FeatureFlags) IsEnabled(ctx context.Context, orgID string, feature FeatureKey) bool {
	flags, err := f.load(ctx, orgID)
	if err != nil {
		return false
	}
	return flags[feature]
}

// Snapshot returns every known feature with its current value.
func (f *FeatureFlags) Snapshot(ctx context.Context, orgID string) map[FeatureKey]bool {
	flags, _ := f.load(ctx, orgID)
	return snapshotFlags(flags)
}

// Set stores a flag and emits a feature toggle event.
func (f *FeatureFlags) Set(ctx context.Context, orgID string, feature FeatureKey, enabled bool, actorID string) error {
	if orgID == "" {
		return fmt.Errorf("dashboard: organization id required")
	}
	if !knownFeature(feature) {
		return fmt.Errorf("%w: %s", ErrUnknownFeature, feature)
	}
	if err := f.repo.SetFlag(ctx, orgID, feature, enabled); err != nil {
		f.log.Warn("feature flag write failed",
			zap.String("organization_id", orgID),
			zap.String("feature", string(feature)),
			zap.Error(err),
		)
		return fmt.Errorf("dashboard: set feature %s: %w", feature, err)
	}
	f.telemetry.Record(ctx, "dashboard.feature.toggle", map[string]any{
		"organization_id": orgID,
		"feature":         string(feature),
		"enabled":         enabled,
	})
	if err := f.hook.LayoutChanged(ctx, LayoutEvent{
		OrganizationID: orgID,
		ActorID:        actorID,
		Reason:         ReasonFeatureToggle,
		Feature:        string(feature),
		OccurredAt:     f.now().UTC(),
	}); err != nil {
		f.log.Warn("feature change hook failed", zap.Error(err))
	}
	return nil
}

func (f *FeatureFlags) load(ctx context.Context, orgID string) (map[FeatureKey]bool, error) {
	if orgID == "" {
		return nil, fmt.Errorf("dashboard: organization id required")
	}
	flags, err := f.repo.Flags(ctx, orgID)
	if err != nil {
		f.log.Warn("feature flag read failed",
			zap.String("organization_id", orgID),
			zap.Error(err),
		)
		f.telemetry.Record(ctx, "dashboard.feature.error", map[string]any{
			"organization_id": orgID,
			"error":           err.Error(),
		})
		return nil, err
	}
	return flags, nil
}

// ParseFeatureKey normalizes raw input into a known feature key.
func ParseFeatureKey(raw string) (FeatureKey, error) {
	key := FeatureKey(strings.ToLower(strings.TrimSpace(raw)))
	if !knownFeature(key) {
		return "", fmt.Errorf("%w: %q", ErrUnknownFeature, raw)
	}
	return key, nil
}

func knownFeature(key FeatureKey) bool {
	for _, f := range allFeatures {
		if f == key {
			return true
		}
	}
	return false
}

func snapshotFlags(flags map[FeatureKey]bool) map[FeatureKey]bool {
	out := make(map[FeatureKey]bool, len(allFeatures))
	for _, f := range allFeatures {
		out[f] = flags[f]
	}
	return out
}

// StaticFeatureGate is a fixed gate shared by every organization.
type StaticFeatureGate map[FeatureKey]bool

// IsEnabled reports the fixed value.
func (g StaticFeatureGate) IsEnabled(_ context.Context, _ string, feature FeatureKey) bool {
	return g[feature]
}

var (
	_ FeatureGate = (*FeatureFlags)(nil)
	_ FeatureGate = StaticFeatureGate(nil)
)

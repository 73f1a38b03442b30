package dashboard

import (
	"context"
	"time"
)

// CachedFeatureGate keeps flag snapshots per organization for ttl. Failed
// reads are not cached.
type CachedFeatureGate struct {
	flags *FeatureFlags
	cache *ttlCache[map[FeatureKey]bool]
}

// NewCachedFeatureGate wraps flags with a TTL cache.
func NewCachedFeatureGate(flags *FeatureFlags, ttl time.Duration) *CachedFeatureGate {
	return &CachedFeatureGate{
		flags: flags,
		cache: newTTLCache[map[FeatureKey]bool](ttl),
	}
}

// IsEnabled consults the cached snapshot.
func (g *CachedFeatureGate) IsEnabled(ctx context.Context, orgID string, feature FeatureKey) bool {
	return g.Snapshot(ctx, orgID)[feature]
}

// Snapshot returns every known feature, loading through the cache.
func (g *CachedFeatureGate) Snapshot(ctx context.Context, orgID string) map[FeatureKey]bool {
	if flags, ok := g.cache.get(orgID); ok {
		return snapshotFlags(flags)
	}
	flags, err := g.flags.load(ctx, orgID)
	if err != nil {
		return snapshotFlags(nil)
	}
	snapshot := snapshotFlags(flags)
	g.cache.set(orgID, snapshot)
	return snapshotFlags(snapshot)
}

// Set writes through and drops the organization's cached snapshot.
func (g *CachedFeatureGate) Set(ctx context.Context, orgID string, feature FeatureKey, enabled bool, actorID string) error {
	defer g.Invalidate(orgID)
	return g.flags.Set(ctx, orgID, feature, enabled, actorID)
}

// Invalidate drops the cached snapshot for orgID.
func (g *CachedFeatureGate) Invalidate(orgID string) {
	g.cache.delete(orgID)
}

var _ FeatureGate = (*CachedFeatureGate)(nil)

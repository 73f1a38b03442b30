package dashboard

import (
	"context"
	"errors"
	"fmt"
)

// SeedOptions configures SeedOrganization.
type SeedOptions struct {
	OrganizationID string
	ActorID        string
	// Instances defaults to the scaffold.
	Instances []WidgetInstance
	// Features lists flags to enable; nil leaves flags untouched.
	Features []FeatureKey
	// Force republishes even when a published layout exists.
	Force bool
}

// SeedResult reports what SeedOrganization changed.
type SeedResult struct {
	Published       bool
	EnabledFeatures []FeatureKey
}

// SeedOrganization publishes a starter layout and enables flags for a new
// organization. It is idempotent: an existing published layout is left alone
// unless Force is set.
func SeedOrganization(ctx context.Context, store *LayoutStore, features FeatureManager, opts SeedOptions) (SeedResult, error) {
	var result SeedResult
	if store == nil {
		return result, errors.New("dashboard: layout store is required to seed")
	}
	if opts.OrganizationID == "" {
		return result, errMissingOrganization
	}
	instances := opts.Instances
	if instances == nil {
		instances = ScaffoldInstances()
	}

	var seedErr error
	if opts.Force || store.FetchPublished(ctx, opts.OrganizationID) == nil {
		if store.SavePublished(ctx, opts.OrganizationID, instances, opts.ActorID) {
			result.Published = true
		} else {
			seedErr = errors.Join(seedErr, fmt.Errorf("publish seed layout: %w", ErrPersistFailed))
		}
	}
	for _, feature := range opts.Features {
		if features == nil {
			seedErr = errors.Join(seedErr, errors.New("dashboard: feature manager is required to enable flags"))
			break
		}
		if err := features.Set(ctx, opts.OrganizationID, feature, true, opts.ActorID); err != nil {
			seedErr = errors.Join(seedErr, fmt.Errorf("enable %s: %w", feature, err))
			continue
		}
		result.EnabledFeatures = append(result.EnabledFeatures, feature)
	}
	return result, seedErr
}

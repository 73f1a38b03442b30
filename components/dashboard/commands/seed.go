package commands

import (
	"context"
	"errors"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// SeedOrganizationInput controls bootstrap behavior for one organization.
type SeedOrganizationInput struct {
	OrganizationID string   `json:"organization_id"`
	ActorID        string   `json:"actor_id,omitempty"`
	Features       []string `json:"features,omitempty"`
	Force          bool     `json:"force,omitempty"`
}

// SeedOrganizationCommand publishes the starter layout and enables flags.
type SeedOrganizationCommand struct {
	store     *dashboard.LayoutStore
	features  dashboard.FeatureManager
	telemetry Telemetry
}

// NewSeedOrganizationCommand wires dependencies.
func NewSeedOrganizationCommand(store *dashboard.LayoutStore, features dashboard.FeatureManager, telemetry Telemetry) *SeedOrganizationCommand {
	return &SeedOrganizationCommand{
		store:     store,
		features:  features,
		telemetry: normalizeTelemetry(telemetry),
	}
}

var _ gocommand.Commander[SeedOrganizationInput] = (*SeedOrganizationCommand)(nil)

// Execute runs the bootstrap pipeline.
func (c *SeedOrganizationCommand) Execute(ctx context.Context, msg SeedOrganizationInput) error {
	if c.store == nil {
		return errors.New("seed command requires layout store")
	}
	features := make([]dashboard.FeatureKey, 0, len(msg.Features))
	for _, raw := range msg.Features {
		key, err := dashboard.ParseFeatureKey(raw)
		if err != nil {
			return err
		}
		features = append(features, key)
	}
	result, err := dashboard.SeedOrganization(ctx, c.store, c.features, dashboard.SeedOptions{
		OrganizationID: msg.OrganizationID,
		ActorID:        msg.ActorID,
		Features:       features,
		Force:          msg.Force,
	})
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.seed", map[string]any{
		"organization_id": msg.OrganizationID,
		"published":       result.Published,
		"features":        len(result.EnabledFeatures),
	})
	return nil
}

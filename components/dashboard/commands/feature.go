package commands

import (
	"context"
	"errors"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// SetFeatureInput toggles one organization feature flag.
type SetFeatureInput struct {
	Session dashboard.Session `json:"session"`
	Feature string            `json:"feature"`
	Enabled bool              `json:"enabled"`
	ActorID string            `json:"actor_id,omitempty"`
}

type featureService interface {
	SetFeature(ctx context.Context, session dashboard.Session, feature dashboard.FeatureKey, enabled bool) error
}

// SetFeatureCommand wraps Service.SetFeature.
type SetFeatureCommand struct {
	service   featureService
	telemetry Telemetry
}

// NewSetFeatureCommand creates the command.
func NewSetFeatureCommand(service featureService, telemetry Telemetry) *SetFeatureCommand {
	return &SetFeatureCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetFeatureInput] = (*SetFeatureCommand)(nil)

// Execute parses the feature key and toggles it.
func (c *SetFeatureCommand) Execute(ctx context.Context, msg SetFeatureInput) error {
	if c.service == nil {
		return errors.New("feature command requires service")
	}
	feature, err := dashboard.ParseFeatureKey(msg.Feature)
	if err != nil {
		return err
	}
	ctx = withActor(ctx, msg.Session, msg.ActorID)
	if err := c.service.SetFeature(ctx, msg.Session, feature, msg.Enabled); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.feature", map[string]any{
		"organization_id": msg.Session.OrganizationID,
		"feature":         string(feature),
		"enabled":         msg.Enabled,
	})
	return nil
}

package commands

import (
	"context"
	"errors"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// SaveOverrideInput stores or, with Reset, removes a personal layout.
type SaveOverrideInput struct {
	Session   dashboard.Session          `json:"session"`
	Instances []dashboard.WidgetInstance `json:"instances,omitempty"`
	Reset     bool                       `json:"reset,omitempty"`
}

type overrideService interface {
	SaveOverride(ctx context.Context, session dashboard.Session, instances []dashboard.WidgetInstance) error
	ResetOverride(ctx context.Context, session dashboard.Session) error
}

// SaveOverrideCommand wraps the member override operations.
type SaveOverrideCommand struct {
	service   overrideService
	telemetry Telemetry
}

// NewSaveOverrideCommand creates the command.
func NewSaveOverrideCommand(service overrideService, telemetry Telemetry) *SaveOverrideCommand {
	return &SaveOverrideCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveOverrideInput] = (*SaveOverrideCommand)(nil)

// Execute saves or resets the override.
func (c *SaveOverrideCommand) Execute(ctx context.Context, msg SaveOverrideInput) error {
	if c.service == nil {
		return errors.New("override command requires service")
	}
	action := "save"
	var err error
	if msg.Reset {
		action = "reset"
		err = c.service.ResetOverride(ctx, msg.Session)
	} else {
		err = c.service.SaveOverride(ctx, msg.Session, msg.Instances)
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.override_"+action, map[string]any{
		"organization_id": msg.Session.OrganizationID,
		"user_id":         msg.Session.UserID,
	})
	return nil
}

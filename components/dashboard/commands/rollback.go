package commands

import (
	"context"
	"errors"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// RollbackLayoutInput identifies the version to republish.
type RollbackLayoutInput struct {
	Session   dashboard.Session `json:"session"`
	VersionID int64             `json:"version_id"`
	ActorID   string            `json:"actor_id,omitempty"`
}

type rollbackService interface {
	Rollback(ctx context.Context, session dashboard.Session, versionID int64) error
}

// RollbackLayoutCommand wraps Service.Rollback.
type RollbackLayoutCommand struct {
	service   rollbackService
	telemetry Telemetry
}

// NewRollbackLayoutCommand creates the command.
func NewRollbackLayoutCommand(service rollbackService, telemetry Telemetry) *RollbackLayoutCommand {
	return &RollbackLayoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RollbackLayoutInput] = (*RollbackLayoutCommand)(nil)

// Execute republishes the version.
func (c *RollbackLayoutCommand) Execute(ctx context.Context, msg RollbackLayoutInput) error {
	if c.service == nil {
		return errors.New("rollback command requires service")
	}
	if msg.VersionID <= 0 {
		return errors.New("rollback command requires version id")
	}
	ctx = withActor(ctx, msg.Session, msg.ActorID)
	if err := c.service.Rollback(ctx, msg.Session, msg.VersionID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.rollback", map[string]any{
		"organization_id": msg.Session.OrganizationID,
		"version_id":      msg.VersionID,
	})
	return nil
}

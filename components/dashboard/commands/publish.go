package commands

import (
	"context"
	"errors"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
	gocommand "github.com/goliatone/go-command"
)

// PublishLayoutInput carries an organization layout to publish or draft.
type PublishLayoutInput struct {
	Session   dashboard.Session          `json:"session"`
	Instances []dashboard.WidgetInstance `json:"instances"`
	ActorID   string                     `json:"actor_id,omitempty"`
	Draft     bool                       `json:"draft,omitempty"`
}

type publishService interface {
	Publish(ctx context.Context, session dashboard.Session, instances []dashboard.WidgetInstance) error
	SaveDraft(ctx context.Context, session dashboard.Session, instances []dashboard.WidgetInstance) error
}

// PublishLayoutCommand publishes (or drafts) the organization layout so
// transports can invoke it without linking directly against the service.
type PublishLayoutCommand struct {
	service   publishService
	telemetry Telemetry
}

// NewPublishLayoutCommand creates a command instance.
func NewPublishLayoutCommand(service publishService, telemetry Telemetry) *PublishLayoutCommand {
	return &PublishLayoutCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[PublishLayoutInput] = (*PublishLayoutCommand)(nil)

// Execute delegates to the dashboard service.
func (c *PublishLayoutCommand) Execute(ctx context.Context, msg PublishLayoutInput) error {
	if c.service == nil {
		return errors.New("publish command requires service")
	}
	ctx = withActor(ctx, msg.Session, msg.ActorID)
	action := "publish"
	var err error
	if msg.Draft {
		action = "draft"
		err = c.service.SaveDraft(ctx, msg.Session, msg.Instances)
	} else {
		err = c.service.Publish(ctx, msg.Session, msg.Instances)
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command."+action, map[string]any{
		"organization_id": msg.Session.OrganizationID,
		"instances":       len(msg.Instances),
	})
	return nil
}

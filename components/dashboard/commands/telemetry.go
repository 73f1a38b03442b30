package commands

import (
	"context"

	dashboard "github.com/girlsclub/modular-dashboard/components/dashboard"
)

// Telemetry allows commands to emit structured events. Any dashboard
// Telemetry satisfies it.
type Telemetry = dashboard.Telemetry

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// withActor stamps the acting identity used for audit fields.
func withActor(ctx context.Context, session dashboard.Session, actorID string) context.Context {
	if actorID == "" {
		return ctx
	}
	return dashboard.ContextWithActivity(ctx, dashboard.ActivityContext{
		ActorID:        actorID,
		OrganizationID: session.OrganizationID,
	})
}

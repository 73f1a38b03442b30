package dashboard

import "context"

// ActivityContext carries the acting identity for audit fields such as a
// version's created_by. ActorID differs from the session user when an
// operator acts on behalf of an organization (CLI, seeding, impersonation).
type ActivityContext struct {
	ActorID        string
	OrganizationID string
}

type activityContextKey struct{}

// ContextWithActivity stores activity context on the provided context.
func ContextWithActivity(ctx context.Context, meta ActivityContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, activityContextKey{}, meta)
}

// ActivityFromContext returns the activity context, if present.
func ActivityFromContext(ctx context.Context) (ActivityContext, bool) {
	if ctx == nil {
		return ActivityContext{}, false
	}
	meta, ok := ctx.Value(activityContextKey{}).(ActivityContext)
	return meta, ok
}

func activityContextFrom(ctx context.Context) ActivityContext {
	meta, _ := ActivityFromContext(ctx)
	return meta
}

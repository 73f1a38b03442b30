package activity

import (
	"context"
	"strconv"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
)

// LayoutHook turns persisted layout changes into activity events. It
// satisfies dashboard.ChangeHook.
type LayoutHook struct {
	Emitter *Emitter
}

// NewLayoutHook wraps an emitter.
func NewLayoutHook(emitter *Emitter) *LayoutHook {
	return &LayoutHook{Emitter: emitter}
}

// LayoutChanged emits one event per layout change.
func (h *LayoutHook) LayoutChanged(ctx context.Context, event dashboard.LayoutEvent) error {
	if h == nil || !h.Emitter.Enabled() {
		return nil
	}
	return h.Emitter.Emit(ctx, FromLayoutEvent(event))
}

// FromLayoutEvent maps a layout change onto an activity event. Organization
// planes use the organization as object; overrides and flags are scoped
// beneath it.
func FromLayoutEvent(event dashboard.LayoutEvent) Event {
	evt := Event{
		Verb:       "dashboard." + event.Reason,
		ActorID:    event.ActorID,
		UserID:     event.UserID,
		TenantID:   event.OrganizationID,
		ObjectType: "organization_layout",
		ObjectID:   event.OrganizationID,
		OccurredAt: event.OccurredAt,
		Metadata:   map[string]any{},
	}
	switch event.Reason {
	case dashboard.ReasonOverrideSave, dashboard.ReasonOverrideReset:
		evt.ObjectType = "user_layout_override"
		evt.ObjectID = event.OrganizationID + ":" + event.UserID
	case dashboard.ReasonFeatureToggle:
		evt.ObjectType = "organization_feature"
		evt.ObjectID = event.OrganizationID + ":" + event.Feature
		evt.Metadata["feature"] = event.Feature
	}
	if event.VersionID != 0 {
		evt.Metadata["version_id"] = strconv.FormatInt(event.VersionID, 10)
	}
	return evt
}

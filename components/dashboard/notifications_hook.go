package dashboard

import "context"

// NotificationsClient publishes layout events to an external channel such
// as a message broker.
type NotificationsClient interface {
	PublishLayoutEvent(ctx context.Context, channel string, event LayoutEvent) error
}

// NotificationsHook forwards layout events to an external notifications client.
type NotificationsHook struct {
	Client  NotificationsClient
	Channel string
}

// LayoutChanged publishes events to the configured notifications client.
func (h *NotificationsHook) LayoutChanged(ctx context.Context, event LayoutEvent) error {
	if h == nil || h.Client == nil {
		return nil
	}
	channel := h.Channel
	if channel == "" {
		channel = DefaultEventChannel
	}
	return h.Client.PublishLayoutEvent(ctx, channel, event)
}

// DefaultEventChannel is used when a NotificationsHook has no channel.
const DefaultEventChannel = "dashboard.layout"

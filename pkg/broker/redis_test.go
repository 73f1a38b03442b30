package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/girlsclub/modular-dashboard/components/dashboard"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	payload []byte
}

type stubPublisher struct {
	sent []published
	err  error
}

func (p *stubPublisher) Publish(ctx context.Context, channel string, message any) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
		return cmd
	}
	p.sent = append(p.sent, published{channel: channel, payload: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

type captureHook struct {
	events []dashboard.LayoutEvent
}

func (h *captureHook) LayoutChanged(_ context.Context, event dashboard.LayoutEvent) error {
	h.events = append(h.events, event)
	return nil
}

func TestPublishWrapsEventInEnvelope(t *testing.T) {
	pub := &stubPublisher{}
	b := New(pub, "", nil)
	event := dashboard.LayoutEvent{OrganizationID: "org-1", Reason: dashboard.ReasonPublish, VersionID: 3}

	require.NoError(t, b.Hook().LayoutChanged(context.Background(), event))
	require.Len(t, pub.sent, 1)
	assert.Equal(t, DefaultChannel, pub.sent[0].channel)

	var env Envelope
	require.NoError(t, json.Unmarshal(pub.sent[0].payload, &env))
	assert.Equal(t, b.origin, env.Origin)
	assert.Equal(t, int64(3), env.Event.VersionID)
}

func TestPublishErrors(t *testing.T) {
	b := New(&stubPublisher{err: errors.New("down")}, "custom", nil)
	err := b.PublishLayoutEvent(context.Background(), "", dashboard.LayoutEvent{OrganizationID: "org-1"})
	require.ErrorContains(t, err, "down")

	var missing *Redis
	require.Error(t, missing.PublishLayoutEvent(context.Background(), "", dashboard.LayoutEvent{}))
}

func TestForwardSkipsOwnAndMalformedEvents(t *testing.T) {
	pub := &stubPublisher{}
	local := New(pub, "", nil)
	remote := New(&stubPublisher{}, "", nil)
	sink := &captureHook{}
	ctx := context.Background()

	require.NoError(t, local.PublishLayoutEvent(ctx, "", dashboard.LayoutEvent{OrganizationID: "org-1", Reason: dashboard.ReasonDraft}))
	own := string(pub.sent[0].payload)

	assert.False(t, local.forward(ctx, own, sink), "own events are already delivered locally")
	assert.True(t, remote.forward(ctx, own, sink))
	assert.False(t, remote.forward(ctx, "{not json", sink))
	assert.False(t, remote.forward(ctx, `{"origin":"x","event":{}}`, sink))

	require.Len(t, sink.events, 1)
	assert.Equal(t, dashboard.ReasonDraft, sink.events[0].Reason)
}

func TestForwarderRequiresConnection(t *testing.T) {
	b := New(&stubPublisher{}, "", nil)
	require.Error(t, b.StartForwarder(context.Background(), &captureHook{}))
	require.NoError(t, b.Close())
	_, err := Dial(context.Background(), Config{})
	require.Error(t, err)
}

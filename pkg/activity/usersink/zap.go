package usersink

import (
	"context"

	"github.com/goliatone/go-users/pkg/types"
	"go.uber.org/zap"
)

// LogSink writes activity records to a zap logger. It stands in for a
// persistent go-users sink when none is configured.
type LogSink struct {
	Logger *zap.Logger
}

// Log implements Sink.
func (s LogSink) Log(_ context.Context, record types.ActivityRecord) error {
	logger := s.Logger
	if logger == nil {
		return nil
	}
	logger.Info("activity",
		zap.String("verb", record.Verb),
		zap.String("object", record.ObjectType+":"+record.ObjectID),
		zap.Stringer("actor_id", record.ActorID),
		zap.String("channel", record.Channel),
		zap.Time("occurred_at", record.OccurredAt),
		zap.Any("data", record.Data),
	)
	return nil
}

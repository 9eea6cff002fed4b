package eventbus

import (
	"context"

	"go.uber.org/zap"
)

// LogConsumer logs every event.
type LogConsumer struct {
	logger *zap.Logger
}

func NewLogConsumer(logger *zap.Logger) *LogConsumer { return &LogConsumer{logger: logger} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt Event) error {
	c.logger.Info(string(evt.Type),
		zap.String("session_id", evt.SessionID),
		zap.String("reason", evt.Reason),
		zap.Time("occurred_at", evt.OccurredAt))
	return nil
}

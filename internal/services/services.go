// Package services holds the per-user resource logic between the HTTP
// handlers and the store. Every operation takes the authenticated user id
// and never touches another user's records.
package services

import (
	"context"

	"finance-tracker/internal/events"
	"finance-tracker/internal/log"
)

// notify publishes e. A broker failure is logged and swallowed: the
// mutation has already been committed.
func notify(ctx context.Context, pub events.Publisher, logger *log.Logger, e events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		logger.WarnContext(ctx, "Failed to publish event",
			log.FieldEventType, e.Type,
			log.FieldEntityID, e.EntityID,
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpPublish)
	}
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Discard()
	}
	return logger
}

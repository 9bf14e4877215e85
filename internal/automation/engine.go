package automation

import (
	"context"
	"log/slog"
	"time"

	"github.com/heytrack/heytrack/internal/shared"
)

// Queue hands events to the background worker.
type Queue interface {
	EnqueueWorkflowEvent(ctx context.Context, evt Event) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Engine dispatches workflow events. Dispatch is best-effort: a failed
// notification must never roll back the state change that caused it.
type Engine struct {
	queue  Queue
	audit  AuditPort
	logger *slog.Logger
}

// NewEngine builds Engine.
func NewEngine(queue Queue, audit AuditPort, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{queue: queue, audit: audit, logger: logger}
}

// Trigger enqueues a single workflow event.
func (e *Engine) Trigger(ctx context.Context, evt Event) {
	if e == nil || e.queue == nil {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	if err := e.queue.EnqueueWorkflowEvent(ctx, evt); err != nil {
		e.logger.Warn("workflow dispatch failed",
			"event", evt.Name,
			"entity_type", evt.EntityType,
			"entity_id", evt.EntityID,
			"error", err)
		return
	}
	if e.audit != nil {
		_ = e.audit.Record(ctx, shared.AuditLog{
			ActorID:  evt.UserID,
			Action:   "automation." + evt.Name,
			Entity:   evt.EntityType,
			EntityID: evt.ID.String(),
			Meta:     evt.Meta,
			At:       evt.OccurredAt,
		})
	}
}

// TriggerAll enqueues one event per workflow name, sharing entity context.
func (e *Engine) TriggerAll(ctx context.Context, names []string, userID int64, entityType string, entityID int64, message string, meta map[string]any) {
	for _, name := range names {
		e.Trigger(ctx, NewEvent(name, userID, entityType, entityID, message, meta))
	}
}

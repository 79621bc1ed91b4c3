package service

import (
	"context"
	"log/slog"

	"go-identity-service/internal/event"
	"go-identity-service/internal/model"
)

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}

// AuditService drains the event bus into the audit table. Writes are
// best-effort: a failed insert is logged and dropped, never surfaced to the
// request that produced the event.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Run consumes bus events until ctx is cancelled. Call in its own goroutine.
func (s *AuditService) Run(ctx context.Context, bus event.Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := s.store.Log(ctx, entryFromEvent(e)); err != nil {
				slog.Error("audit write failed", "action", string(e.Type), "error", err)
			}
		}
	}
}

func (s *AuditService) List(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error) {
	return s.store.Query(ctx, query)
}

func entryFromEvent(e event.Event) model.AuditEntry {
	status := "success"
	switch e.Type {
	case event.TypeLoginFailed, event.TypeAccountLocked:
		status = "failure"
	}

	return model.AuditEntry{
		Action:     string(e.Type),
		OccurredAt: e.OccurredAt,
		ActorID:    e.ActorID,
		ActorEmail: e.ActorEmail,
		ActorIP:    e.ActorIP,
		Status:     status,
		Detail:     e.Detail,
	}
}

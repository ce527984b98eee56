package repository

import (
	"context"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
)

// AuditLog receives account lifecycle events. Recording is best-effort.
type AuditLog interface {
	Record(ctx context.Context, ev entity.AuditEvent)
}

// NopAuditLog discards every event.
type NopAuditLog struct{}

func (NopAuditLog) Record(context.Context, entity.AuditEvent) {}

package shared

import (
	"context"

	domain "github.com/erp/construction/internal/domain/shared"
	"github.com/erp/construction/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AggregateWithEvents is any aggregate that records domain events
type AggregateWithEvents interface {
	GetDomainEvents() []domain.DomainEvent
	ClearDomainEvents()
}

// FlushEvents logs the pending events of each aggregate after a commit and
// clears them.
func FlushEvents(ctx context.Context, log *zap.Logger, aggregates ...AggregateWithEvents) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		for _, event := range agg.GetDomainEvents() {
			logger.WithLogger(ctx, log).Info("Domain event",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_type", event.AggregateType()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.String("tenant_id", event.TenantID().String()),
				zap.String("event_id", event.EventID().String()),
			)
		}
		agg.ClearDomainEvents()
	}
}

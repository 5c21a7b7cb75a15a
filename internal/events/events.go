// Package events carries in-process domain events between feature services.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// DealClosed announces that a deal reached its closed state so the inventory
// side can mark the attached units sold. Delivery is fire-and-forget: the
// ledger does not depend on what subscribers do with it.
type DealClosed struct {
	DealID   snowflake.ID
	UnitIDs  []snowflake.ID
	ClosedAt time.Time
}

// Publisher is the producer-facing side of the bus.
type Publisher interface {
	PublishDealClosed(ctx context.Context, event DealClosed)
}

// DealClosedHandler consumes DealClosed events.
type DealClosedHandler func(ctx context.Context, event DealClosed)

// Bus dispatches domain events synchronously to registered handlers.
// Handler errors are the handler's problem; the bus only logs panics away.
type Bus struct {
	log *zap.Logger

	mu         sync.RWMutex
	dealClosed []DealClosedHandler
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{log: log.Named("events.bus")}
}

// SubscribeDealClosed registers a handler for deal-closed events.
func (b *Bus) SubscribeDealClosed(handler DealClosedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dealClosed = append(b.dealClosed, handler)
}

func (b *Bus) PublishDealClosed(ctx context.Context, event DealClosed) {
	b.mu.RLock()
	handlers := make([]DealClosedHandler, len(b.dealClosed))
	copy(handlers, b.dealClosed)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, event, handler)
	}
}

func (b *Bus) dispatch(ctx context.Context, event DealClosed, handler DealClosedHandler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("deal closed handler panicked",
				zap.String("deal_id", event.DealID.String()),
				zap.Any("panic", r),
			)
		}
	}()
	handler(ctx, event)
}

package inventory

import (
	"context"

	"github.com/lotworks/dealdesk/internal/events"
	inventorydomain "github.com/lotworks/dealdesk/internal/inventory/domain"
	"github.com/lotworks/dealdesk/internal/inventory/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("inventory.service",
	fx.Provide(service.NewService),
	fx.Provide(service.NewCostLookup),
	fx.Invoke(registerDealClosedHandler),
)

// registerDealClosedHandler marks a closed deal's units sold. Fire-and-forget
// from the ledger's point of view: failures are logged, never propagated.
func registerDealClosedHandler(bus *events.Bus, svc inventorydomain.Service, log *zap.Logger) {
	handlerLog := log.Named("inventory.dealclosed")
	bus.SubscribeDealClosed(func(ctx context.Context, event events.DealClosed) {
		if err := svc.MarkUnitsSold(ctx, event.UnitIDs); err != nil {
			handlerLog.Error("failed to mark units sold",
				zap.String("deal_id", event.DealID.String()),
				zap.Error(err),
			)
		}
	})
}

package salesrep

import (
	"github.com/lotworks/dealdesk/internal/salesrep/service"
	"go.uber.org/fx"
)

var Module = fx.Module("salesrep.service",
	fx.Provide(service.NewService),
	fx.Provide(service.NewRepLookup),
)

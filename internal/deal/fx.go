package deal

import (
	"github.com/lotworks/dealdesk/internal/deal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deal.service",
	fx.Provide(service.NewService),
)

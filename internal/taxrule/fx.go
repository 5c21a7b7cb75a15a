package taxrule

import (
	"github.com/lotworks/dealdesk/internal/taxrule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxrule.service",
	fx.Provide(service.NewService),
	fx.Provide(service.NewResolver),
)

package lot

import (
	"github.com/lotsight/lotsight/internal/lot/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lot.service",
	fx.Provide(service.NewService),
)

package dimension

import (
	"github.com/lotsight/lotsight/internal/dimension/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dimension.service",
	fx.Provide(service.NewService),
)

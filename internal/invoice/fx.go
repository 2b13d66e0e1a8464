package invoice

import (
	"github.com/fieldhive/opsledger/internal/invoice/repository"
	"github.com/fieldhive/opsledger/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

package payment

import (
	"github.com/fieldhive/opsledger/internal/payment/repository"
	"github.com/fieldhive/opsledger/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

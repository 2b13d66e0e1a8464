package history

import (
	"github.com/fieldhive/opsledger/internal/history/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("history.repository",
	fx.Provide(repository.Provide),
)

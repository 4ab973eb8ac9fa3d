package password

import (
	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/logging"
	"go.uber.org/fx"
)

func ProvidePasswordService(cfg *config.Config, logger *logging.Service) *Service {
	return NewService(cfg, logger)
}

var Module = fx.Options(
	fx.Provide(ProvidePasswordService),
)

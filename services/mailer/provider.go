package mailer

import (
	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/logging"
	"go.uber.org/fx"
)

func ProvideMailerService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	return NewService(cfg, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideMailerService),
)

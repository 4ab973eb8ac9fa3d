package token

import (
	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideTokenService(db *gorm.DB, logger *logging.Service) *Service {
	return NewService(db, logger)
}

func StartCleanupWorker(cfg *config.Config, svc *Service) {
	svc.StartCleanupWorker(cfg.Auth.TokenCleanupPeriod)
}

var Module = fx.Options(
	fx.Provide(ProvideTokenService),
	fx.Invoke(StartCleanupWorker),
)

package revocation

import (
	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/logging"
	"go.uber.org/fx"
)

func ProvideRevocationService(cfg *config.Config, logger *logging.Service) *Service {
	if !cfg.Revocation.Enabled {
		logger.Debug("session revocation disabled in configuration")
		return nil
	}
	return NewService(NewMemoryStore(), logger)
}

func StartCleanupWorkerIfEnabled(cfg *config.Config, svc *Service) {
	if svc != nil {
		svc.StartCleanupWorker(cfg.Revocation.CleanupPeriod)
	}
}

var Module = fx.Options(
	fx.Provide(ProvideRevocationService),
	fx.Invoke(StartCleanupWorkerIfEnabled),
)

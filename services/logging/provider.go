package logging

import (
	"github.com/aidrelay/aidrelay/config"
	"go.uber.org/fx"
)

func NewLoggingService(cfg *config.Config) (*Service, error) {
	return NewService(Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	})
}

var Module = fx.Options(
	fx.Provide(NewLoggingService),
)

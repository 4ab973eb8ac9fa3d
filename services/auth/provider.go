package auth

import (
	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/account"
	"github.com/aidrelay/aidrelay/services/logging"
	"github.com/aidrelay/aidrelay/services/mailer"
	"github.com/aidrelay/aidrelay/services/password"
	"github.com/aidrelay/aidrelay/services/revocation"
	"github.com/aidrelay/aidrelay/services/session"
	"github.com/aidrelay/aidrelay/services/token"
	"go.uber.org/fx"
)

func ProvideAuthService(
	cfg *config.Config,
	store *account.Store,
	hasher *password.Service,
	tokens *token.Service,
	sessions *session.Service,
	logger *logging.Service,
) *Service {
	return NewService(cfg, store, hasher, tokens, sessions, logger)
}

type OptionalCollaborators struct {
	fx.In
	Mailer      *mailer.Service     `optional:"true"`
	Revocations *revocation.Service `optional:"true"`
}

func WireCollaborators(svc *Service, opt OptionalCollaborators) {
	if opt.Mailer != nil {
		svc.SetMailer(opt.Mailer)
	}
	if opt.Revocations != nil {
		svc.SetRevocationService(opt.Revocations)
	}
}

var Module = fx.Options(
	fx.Provide(ProvideAuthService),
	fx.Invoke(WireCollaborators),
)

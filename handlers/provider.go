package handlers

import (
	"github.com/aidrelay/aidrelay/server"
	"go.uber.org/fx"
)

func RegisterAuthRoutes(srv *server.Server, h *AuthHandler) {
	h.RegisterRoutes(srv.Echo())
}

var Module = fx.Options(
	fx.Provide(NewAuthHandler),
	fx.Invoke(RegisterAuthRoutes),
)

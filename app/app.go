package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/database"
	"github.com/aidrelay/aidrelay/handlers"
	"github.com/aidrelay/aidrelay/server"
	"github.com/aidrelay/aidrelay/services/account"
	"github.com/aidrelay/aidrelay/services/auth"
	"github.com/aidrelay/aidrelay/services/logging"
	"github.com/aidrelay/aidrelay/services/mailer"
	"github.com/aidrelay/aidrelay/services/password"
	"github.com/aidrelay/aidrelay/services/revocation"
	"github.com/aidrelay/aidrelay/services/session"
	"github.com/aidrelay/aidrelay/services/token"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

type App struct {
	fx *fx.App
}

// New assembles the application. Pass a nil config to load it from the
// environment.
func New(cfg *config.Config) *App {
	return &App{
		fx: fx.New(
			config.NewProvider(cfg),
			fx.Supply(database.WithModels(
				&account.UserAccount{},
				&token.VerificationToken{},
			)),
			logging.Module,
			database.Module,
			account.Module,
			password.Module,
			token.Module,
			session.Module,
			revocation.Module,
			mailer.Module,
			auth.Module,
			server.Module,
			handlers.Module,
			fx.WithLogger(func(logger *logging.Service) fxevent.Logger {
				return &fxevent.ZapLogger{Logger: logger.Logger()}
			}),
		),
	}
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() {
	if err := a.Start(context.Background()); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("received signal %v, shutting down gracefully", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Stop(ctx); err != nil {
		log.Printf("failed to stop application gracefully: %v", err)
	}
}

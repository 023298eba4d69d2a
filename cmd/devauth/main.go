package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/jrsteele09/ticketremaster/devauth"
	"github.com/jrsteele09/ticketremaster/internal/config"
	"github.com/jrsteele09/ticketremaster/internal/logging"
	"github.com/jrsteele09/ticketremaster/token"
	"github.com/jrsteele09/ticketremaster/token/refresh"
	refreshrepofake "github.com/jrsteele09/ticketremaster/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/ticketremaster/users/repofake"
	"github.com/rs/zerolog"
)

const (
	idTokenExpiry   = time.Hour
	cleanupInterval = time.Minute
)

func main() {
	cfg, err := config.Load(config.GetEnv("CONFIG_FILE", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.GetLogLevel(), cfg.GetEnv())
	displayAppname("devauth")

	if err := run(cfg, logger); err != nil {
		logger.Err(err).Msg("Error running devauth")
		os.Exit(1)
	}
	logger.Info().Msg("devauth stopped")
}

func run(cfg config.Config, logger zerolog.Logger) error {
	idSigner, err := token.NewIDSigner(uuid.NewString(), 2048)
	if err != nil {
		return fmt.Errorf("generating ID token key: %w", err)
	}
	accessSigner, err := token.NewAccessSigner(cfg.GetDevAuthSigningSecret())
	if err != nil {
		return err
	}

	tokens, err := token.New(
		accessSigner,
		token.WithIssuer(cfg.GetDevAuthIssuer()),
		token.WithIDTokenSigner(idSigner),
		token.WithTokenExpiry(cfg.GetAccessTokenExpiry(), idTokenExpiry),
	)
	if err != nil {
		return err
	}
	refreshTokens := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), cfg)

	userRepo := fakeuserrepo.NewFakeUserRepo()
	user, err := devauth.Seed(userRepo, devauth.SeedAccount{
		Username: cfg.GetDevAuthUsername(),
		Password: cfg.GetDevAuthPassword(),
		Email:    cfg.GetDevAuthEmail(),
		Roles:    cfg.GetDevAuthRoles(),
	})
	if err != nil {
		return err
	}
	logger.Info().Str("username", user.Username).Str("user_id", user.ID).Msg("Seeded account")

	srv, err := devauth.New(devauth.Config{
		Issuer:       cfg.GetDevAuthIssuer(),
		ClientID:     cfg.GetDevAuthClientID(),
		ClientSecret: cfg.GetDevAuthClientSecret(),
	}, userRepo, tokens, refreshTokens, devauth.WithLogger(logging.Component(logger, "devauth")))
	if err != nil {
		return err
	}
	if cfg.GetEnv() == "DEV" {
		for _, pattern := range srv.Routes() {
			logger.Debug().Str("pattern", pattern).Msg("Route")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go pruneRevocations(ctx, tokens, logger)

	server := &http.Server{
		Addr:              cfg.GetDevAuthListenAddr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("issuer", cfg.GetDevAuthIssuer()).Msg("devauth listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("server.ListenAndServe %w", err)
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// pruneRevocations drops revocation entries for tokens that have expired anyway.
func pruneRevocations(ctx context.Context, tokens *token.Manager, logger zerolog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := tokens.PruneRevocations(); n > 0 {
				logger.Debug().Int("pruned", n).Msg("Pruned expired revocations")
			}
		}
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

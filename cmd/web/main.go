package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/ticketremaster/authclient"
	"github.com/jrsteele09/ticketremaster/internal/config"
	"github.com/jrsteele09/ticketremaster/internal/logging"
	"github.com/jrsteele09/ticketremaster/session"
	"github.com/jrsteele09/ticketremaster/sessionstore"
	"github.com/jrsteele09/ticketremaster/web"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(config.GetEnv("CONFIG_FILE", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.GetLogLevel(), cfg.GetEnv())
	displayAppname(cfg.GetAppName())

	// The authentication service may come up after us, so failed starts are retried
	for {
		if err := run(cfg, logger); err != nil {
			logger.Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	logger.Info().Msg("Server stopped")
}

func run(cfg config.Config, logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetAuthCallTimeout())
	defer cancel()

	store, closer, err := sessionstore.Open(ctx, cfg.GetSessionStore(), cfg.GetSessionDSN(), cfg.GetSessionProfile())
	if err != nil {
		return err
	}
	defer closer.Close()

	client, err := authclient.New(ctx, authclient.Config{
		Issuer:       cfg.GetAuthIssuer(),
		ClientID:     cfg.GetAuthClientID(),
		ClientSecret: cfg.GetAuthClientSecret(),
		Scopes:       cfg.GetAuthScopes(),
		HTTPClient:   &http.Client{Timeout: cfg.GetAuthCallTimeout()},
	}, authclient.WithLogger(logging.Component(logger, "authclient")))
	if err != nil {
		return err
	}

	policy, err := session.ParsePolicy(cfg.GetConcurrencyPolicy())
	if err != nil {
		return err
	}
	manager, err := session.NewManager(client,
		session.WithStore(store),
		session.WithLogger(logging.Component(logger, "session")),
		session.WithConcurrencyPolicy(policy),
		session.WithCallTimeout(cfg.GetAuthCallTimeout()),
		session.WithRevokeTimeout(cfg.GetAuthRevokeTimeout()),
		session.WithStoreTimeout(cfg.GetSessionStoreTimeout()),
	)
	if err != nil {
		return err
	}
	if err := manager.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("Could not restore the saved session")
	}

	frontEnd, err := web.New(web.Config{
		AppName:     cfg.GetAppName(),
		RefreshSkew: cfg.GetRefreshSkew(),
		LoginRate:   cfg.GetLoginRateLimit(),
		LoginBurst:  cfg.GetLoginBurst(),
	}, manager, web.WithLogger(logging.Component(logger, "web")))
	if err != nil {
		return err
	}
	if cfg.GetEnv() == "DEV" {
		logRoutes(logger, frontEnd)
	}

	server := &http.Server{
		Addr:              cfg.GetListenAddr(),
		Handler:           frontEnd,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(logger, server)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func logRoutes(logger zerolog.Logger, frontEnd *web.Server) {
	for _, pattern := range frontEnd.Routes() {
		logger.Debug().Str("pattern", pattern).Msg("Route")
	}
	for _, route := range frontEnd.Table().Routes() {
		logger.Debug().Str("page", route.Name).Str("path", route.Path).Bool("protected", route.Protected).Msg("Page")
	}
}

func listenAndServe(logger zerolog.Logger, server *http.Server) error {
	logger.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

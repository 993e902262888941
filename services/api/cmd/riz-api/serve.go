package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"riz/pkg/auth"
	"riz/pkg/bus"
	"riz/pkg/db"
	"riz/pkg/render"
	"riz/pkg/telemetry"
	"riz/services/api"
	"riz/services/api/internal/config"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, migrate bool) error {
	cleanup, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := shutdownContext()
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if migrate {
		applied, err := db.Migrate(ctx, store.DB)
		if err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		log.Info().Ints64("versions", applied).Msg("migrations applied")
	}

	opts := []api.Option{api.WithLogger(log.Logger)}
	if cfg.NATSURL != "" {
		b, err := bus.New(cfg.NATSURL, api.Topics())
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer b.Close()
		opts = append(opts, api.WithEvents(b))
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}

	a, err := api.New(store, tokens, auth.NewHasher(cfg.BcryptCost), renderer, api.Config{
		ServiceName:    serviceName,
		AppURL:         cfg.AppURL,
		CookieSecure:   cfg.CookieSecure(),
		AllowedOrigins: cfg.AllowedOrigins,
		AuthRateLimit:  cfg.LoginRateLimit,
	}, opts...)
	if err != nil {
		return err
	}

	handler, err := a.Routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("env", cfg.AppEnv).Msg("starting " + serviceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := shutdownContext()
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"patient-management-api/internal/auth"
	"patient-management-api/internal/billing"
	"patient-management-api/internal/config"
	"patient-management-api/internal/handler"
	"patient-management-api/internal/logging"
	"patient-management-api/internal/messaging"
	"patient-management-api/internal/middleware"
	"patient-management-api/internal/service"
	"patient-management-api/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:          "patient-service",
		Short:        "Patient CRUD API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), tokenCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	log := logging.New(cfg.Env, cfg.LogLevel, "patient-service")
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")
	st := store.New(pool)

	bc, err := billing.Dial(cfg.BillingAddr, cfg.BillingTimeout, log)
	if err != nil {
		return err
	}
	defer bc.Close()

	conn, err := messaging.Dial(cfg.AMQPURL, log)
	if err != nil {
		return err
	}
	defer conn.Close()
	pub, err := messaging.NewPublisher(conn, cfg.PatientTopic, log, cfg.AnalyticsGroup)
	if err != nil {
		return err
	}
	defer pub.Close()

	svc := service.New(st, bc, pub, log)

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rl.Close()
	e := handler.NewEcho(log, rl)

	var write []echo.MiddlewareFunc
	if cfg.JWTSecret != "" {
		write = append(write, middleware.BearerAuth(cfg.JWTSecret))
	} else {
		log.Warn().Msg("JWT_SECRET not set, write endpoints are open")
	}
	handler.New(svc, st, log).RegisterRoutes(e, write...)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := store.New(pool).Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", n)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <client-id>",
		Short: "Issue a bearer token for the write endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required to issue tokens")
			}
			tok, err := auth.MakeToken(args[0], cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

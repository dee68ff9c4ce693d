package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"patient-management-api/internal/billing"
	"patient-management-api/internal/config"
	"patient-management-api/internal/logging"
	"patient-management-api/internal/middleware"
)

func main() {
	root := &cobra.Command{
		Use:          "billing-service",
		Short:        "Minimal billing account RPC server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.Env, cfg.LogLevel, "billing-service")

			rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
			defer rl.Close()

			opts := append(billing.ServerOptions(), grpc.ChainUnaryInterceptor(middleware.RateLimit(rl)))
			srv := grpc.NewServer(opts...)
			billing.Register(srv, billing.NewServer(log))

			lis, err := net.Listen("tcp", ":"+cfg.BillingPort)
			if err != nil {
				return err
			}
			go func() {
				log.Info().Str("port", cfg.BillingPort).Msg("grpc listening")
				if err := srv.Serve(lis); err != nil {
					log.Error().Err(err).Msg("grpc server")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info().Msg("shutting down")
			srv.GracefulStop()
			return nil
		},
	}
}

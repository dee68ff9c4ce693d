package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"patient-management-api/internal/analytics"
	"patient-management-api/internal/config"
	"patient-management-api/internal/logging"
	"patient-management-api/internal/messaging"
)

func main() {
	root := &cobra.Command{
		Use:          "analytics-service",
		Short:        "Logs patient events from the patient topic",
		SilenceUsage: true,
	}
	root.AddCommand(consumeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Consume the patient topic until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.Env, cfg.LogLevel, "analytics-service")

			conn, err := messaging.Dial(cfg.AMQPURL, log)
			if err != nil {
				return err
			}
			defer conn.Close()

			sub, err := messaging.NewSubscriber(conn, cfg.PatientTopic, cfg.AnalyticsGroup, cfg.ConsumerPrefetch, log)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := analytics.NewConsumer(log)
			if err := sub.Run(ctx, c.Handle); err != nil {
				return err
			}
			log.Info().Msg("consumer stopped")
			return nil
		},
	}
}

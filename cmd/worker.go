/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/h2overflow/apiserver/internal/mq"
	"github.com/h2overflow/apiserver/internal/services"
	"github.com/h2overflow/apiserver/internal/storage"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Deletes profile pictures orphaned by account events",
	Long: `Consumes picture.replaced and account.deleted events from MQ_TOPIC
and removes the referenced objects from the blob store. Usage:

	h2overflow worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadConfig()
		if cfg.MQ.Backend == "" {
			return errors.New("MQ_BACKEND is required to run the worker")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		blobs, err := storage.FromConfig(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		broker, err := mq.FromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer broker.Close()

		janitor := services.NewPictureJanitor(blobs, log)
		events := mq.NewAccountEvents(broker, cfg.MQ.Topic)

		log.Info().Str("topic", cfg.MQ.Topic).Str("backend", cfg.MQ.Backend).Msg("worker started")
		err = events.Consume(ctx, log, janitor.Handle)
		if errors.Is(err, ctx.Err()) {
			log.Info().Msg("worker stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

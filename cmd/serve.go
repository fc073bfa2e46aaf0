package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, db, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			if err := database.AutoMigrate(db); err != nil {
				return err
			}

			deps, cleanup, err := server.Build(cfg, log, db)
			defer cleanup()
			if err != nil {
				return err
			}
			app, err := server.New(deps)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				log.WithField("port", cfg.Port).Info("API server starting")
				errc <- app.Listen(":" + cfg.Port)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}
}

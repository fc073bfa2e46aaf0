package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shubhamforall/petstore-api/database"
)

func newMigrateCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, db, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

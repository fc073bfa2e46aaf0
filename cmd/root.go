package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shubhamforall/petstore-api/config"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/logger"
)

// NewRootCommand builds the petstore CLI. Without a subcommand it serves the API.
func NewRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "petstore",
		Short:         "Pet store REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")

	serve := newServeCommand(&envFile)
	root.RunE = serve.RunE
	root.AddCommand(serve, newMigrateCommand(&envFile), newSuperAdminCommand(&envFile))
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, the logger and a database connection.
func bootstrap(envFile string) (*config.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.Log)
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func closeDB(db *gorm.DB, log logrus.FieldLogger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("close database")
	}
}

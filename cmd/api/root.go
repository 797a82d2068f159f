package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
)

type rootOptions struct {
	logLevel string
	pretty   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "foodgram",
		Short:         "Foodgram recipe sharing API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "human readable console logs")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newLoadTagsCmd(opts),
		newLoadIngredientsCmd(opts),
		newCreateAdminCmd(opts),
	)
	return root
}

// setup loads configuration and configures logging for a subcommand.
func (o *rootOptions) setup() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	logging.Setup(level, o.pretty || cfg.Env == config.Development)
	return cfg, nil
}

// withDB runs fn against a freshly opened database and closes it afterwards.
func (o *rootOptions) withDB(ctx context.Context, fn func(cfg *config.Config, db *gorm.DB) error) error {
	cfg, err := o.setup()
	if err != nil {
		return err
	}
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)
	return fn(cfg, db)
}

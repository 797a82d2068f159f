package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDB(cmd.Context(), func(_ *config.Config, db *gorm.DB) error {
				if err := database.RunMigrations(db); err != nil {
					return err
				}
				log.Info().Msg("Database schema is up to date")
				return nil
			})
		},
	}
}

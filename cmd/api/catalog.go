package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

func newLoadTagsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load-tags",
		Short: "Insert the default recipe tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withDB(cmd.Context(), func(_ *config.Config, db *gorm.DB) error {
				tags := append([]models.Tag(nil), service.DefaultTags...)
				created, err := service.NewCatalogService(db).LoadTags(cmd.Context(), tags)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d tags created\n", created)
				return nil
			})
		},
	}
}

func newLoadIngredientsCmd(opts *rootOptions) *cobra.Command {
	var file, format string
	cmd := &cobra.Command{
		Use:   "load-ingredients",
		Short: "Import ingredients from a JSON or CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
			}
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open ingredients file: %w", err)
			}
			defer f.Close()

			return opts.withDB(cmd.Context(), func(_ *config.Config, db *gorm.DB) error {
				created, err := service.NewCatalogService(db).LoadIngredients(cmd.Context(), f, format)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d ingredients created\n", created)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "data/ingredients.json", "path to the ingredients file")
	cmd.Flags().StringVar(&format, "format", "", "json or csv (default: from the file extension)")
	return cmd
}

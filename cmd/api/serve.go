package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pageza/foodgram/backend/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			if migrate {
				if err := srv.Migrate(); err != nil {
					return err
				}
			}

			log.Info().Str("env", string(cfg.Env)).Msg("Foodgram API starting")
			return srv.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

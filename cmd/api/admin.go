package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

func newCreateAdminCmd(opts *rootOptions) *cobra.Command {
	req := &types.RegisterRequest{}
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator or promote an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("ADMIN_PASSWORD")
			}
			return opts.withDB(cmd.Context(), func(_ *config.Config, db *gorm.DB) error {
				user, err := service.NewUserService(db, nil).CreateAdmin(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "administrator %s (id %d) ready\n", user.Username, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "administrator email")
	cmd.Flags().StringVar(&req.Username, "username", "admin", "administrator username")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "Admin", "last name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (default: $ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

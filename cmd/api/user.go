package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkordes/placekeeper/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var email, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user whose onboarding has not started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			u, err := service.NewUserService(store.Users).Create(cmd.Context(), email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address (required)")
	create.Flags().StringVar(&role, "role", "member", "member or admin")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

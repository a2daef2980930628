package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/service"
)

func UserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	userCmd.AddCommand(userCreateCmd())
	userCmd.AddCommand(userListCmd())

	return userCmd
}

func userCreateCmd() *cobra.Command {
	var (
		email string
		admin bool
	)

	createCmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user; the password is read from FILECTL_PASSWORD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("FILECTL_PASSWORD")
			if password == "" {
				return errors.New("FILECTL_PASSWORD is not set")
			}

			_, database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			role := model.RoleUser
			if admin {
				role = model.RoleAdmin
			}

			users := service.NewUserService(repository.NewUserRepository(database))
			user, err := users.Create(cmd.Context(), service.CreateUserInput{
				Username: args[0],
				Email:    email,
				Password: password,
				Role:     role,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role(), user.Username, user.ID)
			return nil
		},
	}

	createCmd.Flags().StringVar(&email, "email", "", "email address (required)")
	createCmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	_ = createCmd.MarkFlagRequired("email")

	return createCmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			users := service.NewUserService(repository.NewUserRepository(database))
			list, err := users.List(cmd.Context())
			if err != nil {
				return err
			}

			for _, u := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role())
			}
			return nil
		},
	}
}

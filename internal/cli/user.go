package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/filecomments/internal/auth"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long:  "Add, list and remove the users that can author comments. Operates on the local database.",
	}

	cmd.AddCommand(newUserAddCmd(), newUserListCmd(), newUserRemoveCmd())
	return cmd
}

func withUserStore(fn func(*auth.UserStore) error) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)
	return fn(auth.NewUserStore(database))
}

func newUserAddCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(func(users *auth.UserStore) error {
				u, err := users.Add(args[0], name)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(u)
				}
				fmt.Printf("User %s (%s) added.\n", u.ID, u.DisplayName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (default: the user id)")
	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(func(users *auth.UserStore) error {
				list, err := users.List()
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(list)
				}
				return printUserTable(list)
			})
		},
	}
}

func newUserRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove a user and revoke their API keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserStore(func(users *auth.UserStore) error {
				if err := users.Remove(args[0]); err != nil {
					return err
				}
				if isJSON() {
					return printJSON(map[string]interface{}{"id": args[0], "removed": true})
				}
				fmt.Printf("User %s removed.\n", args[0])
				return nil
			})
		},
	}
}

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/filecomments/internal/auth"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys (app passwords)",
		Long:  "Create, list and revoke the API keys users authenticate with. Operates on the local database.",
	}

	cmd.AddCommand(newAPIKeyCreateCmd(), newAPIKeyListCmd(), newAPIKeyRevokeCmd())
	return cmd
}

func newAPIKeyCreateCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an API key for a user",
		Long:  "Create an API key for a user. The key is printed once and cannot be recovered.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			if _, err := auth.NewUserStore(database).Get(user); err != nil {
				return err
			}

			raw, key, err := auth.NewAPIKeyStore(database).Create(args[0], user)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(map[string]interface{}{
					"id":      key.ID,
					"name":    key.Name,
					"user_id": key.UserID,
					"key":     raw,
				})
			}

			fmt.Printf("API key #%d created for %s:\n\n  %s\n\nStore it now; it will not be shown again.\n", key.ID, user, raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user the key authenticates as")
	return cmd
}

func newAPIKeyListCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			keys, err := auth.NewAPIKeyStore(database).List(user)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(keys)
			}
			return printKeyTable(keys)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "only keys for this user (default: all)")
	return cmd
}

func newAPIKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid key ID: %s", args[0])
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			if err := auth.NewAPIKeyStore(database).Delete(id); err != nil {
				return err
			}
			if isJSON() {
				return printJSON(map[string]interface{}{"id": id, "revoked": true})
			}
			fmt.Printf("API key #%d revoked.\n", id)
			return nil
		},
	}
}

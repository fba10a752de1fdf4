package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	var forgetUser bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored app password",
		Long: `Clears the app password from ~/.config/fc/config.yaml.
The server URL is kept. Pass --forget-user to clear the user id as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(forgetUser)
		},
	}

	cmd.Flags().BoolVar(&forgetUser, "forget-user", false, "Also clear the stored user id")
	return cmd
}

func runLogout(forgetUser bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.APIKey == "" && (!forgetUser || cfg.User == "") {
		fmt.Println("Not logged in.")
		return nil
	}

	cfg.APIKey = ""
	if forgetUser {
		cfg.User = ""
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	server := cfg.ServerURL
	if server == "" {
		server = defaultServerURL
	}
	if forgetUser {
		fmt.Printf("✓ Logged out of %s. App password and user removed.\n", server)
	} else {
		fmt.Printf("✓ Logged out of %s. App password removed.\n", server)
	}
	return nil
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/filecomments/internal/auth"
	"github.com/evcraddock/filecomments/internal/client"
)

func newLoginCmd() *cobra.Command {
	var server, user string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a server URL, user and API key",
		Long:  "Prompts for an API key created with 'fc apikey create', checks it against the server and stores it in ~/.config/fc/config.yaml.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(os.Stdin, server, user)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "DAV root URL (default: from config or "+defaultServerURL+")")
	cmd.Flags().StringVar(&user, "user", "", "user id (default: from config)")

	return cmd
}

func runLogin(in io.Reader, serverFlag, userFlag string) error {
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}
	reader := bufio.NewReader(in)

	user := userFlag
	if user == "" {
		user = getUser()
	}
	if user == "" {
		fmt.Print("User id: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading input: %w", err)
		}
		user = strings.TrimSpace(line)
	}
	if user == "" {
		return fmt.Errorf("no user id provided")
	}

	fmt.Print("Paste your API key: ")
	key, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading input: %w", err)
	}

	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	var apiErr *client.Error
	if err := client.New(serverURL, user, key).CheckCredentials(); errors.As(err, &apiErr) {
		return fmt.Errorf("server rejected credentials: %w", err)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not verify credentials: %v\n", err)
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = key
	cfg.User = user
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("✓ API key saved. You're logged in as %s.\n", user)
	return nil
}

// validateAPIKey checks that the key is non-empty and has the expected prefix.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if !strings.HasPrefix(key, auth.KeyPrefix) {
		return fmt.Errorf("invalid API key format (should start with %s)", auth.KeyPrefix)
	}
	return nil
}

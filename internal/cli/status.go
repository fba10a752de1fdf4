package cli

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/filecomments/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored credentials are valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	serverURL := getServerURL()
	user := getUser()
	apiKey := getAPIKey()

	fmt.Printf("Server:  %s\n", serverURL)
	if user != "" {
		fmt.Printf("User:    %s\n", user)
	}

	if err := checkHealth(serverURL); err != nil {
		fmt.Printf("Status:  ✗ cannot reach server (%v)\n", err)
		return nil
	}

	if apiKey == "" {
		fmt.Println("API Key: not configured")
		fmt.Println("\nRun 'fc login' to authenticate.")
		return nil
	}

	prefix := apiKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Printf("API Key: %s…\n", prefix)

	err := client.New(serverURL, user, apiKey).CheckCredentials()
	var apiErr *client.Error
	switch {
	case err == nil:
		fmt.Println("Status:  ✓ connected and authenticated")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		fmt.Println("Status:  ✗ invalid credentials")
		fmt.Println("\nRun 'fc login' to re-authenticate.")
	default:
		fmt.Printf("Status:  ✗ unexpected response (%v)\n", err)
	}

	return nil
}

// checkHealth requests /health on the server hosting the DAV root.
func checkHealth(serverURL string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("parsing server URL: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	hc := &http.Client{Timeout: 5 * time.Second}
	resp, err := hc.Get(u.String())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

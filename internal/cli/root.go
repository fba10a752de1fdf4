// Package cli defines the cobra command tree for fc.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/filecomments/internal/client"
	"github.com/evcraddock/filecomments/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fc",
		Short:         "Comment on files and folders",
		Long:          "A DAV comments server and client. Leave, edit, delete and list comments on files and folders, and manage the users and app passwords that authenticate them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: $FC_DB_PATH or ~/.config/fc/comments.db)")

	root.AddCommand(
		newServeCmd(),
		newCommentCmd(),
		newCommentsCmd(),
		newEditCmd(),
		newDeleteCmd(),
		newNodeCmd(),
		newUserCmd(),
		newAPIKeyCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// dbPath returns the --db flag, $FC_DB_PATH, or the default path.
func dbPath() (string, error) {
	if flagDB != "" {
		return flagDB, nil
	}
	if v := os.Getenv("FC_DB_PATH"); v != "" {
		return v, nil
	}
	return db.DefaultPath()
}

// openDB opens the SQLite database. Used by serve and the local
// administration commands.
func openDB() (*sql.DB, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}
	return db.Open(path)
}

// newAPIClient creates a client for the comments server.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getUser(), getAPIKey())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

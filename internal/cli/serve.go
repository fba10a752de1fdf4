package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/filecomments/internal/config"
	"github.com/evcraddock/filecomments/internal/db"
	"github.com/evcraddock/filecomments/internal/logging"
	"github.com/evcraddock/filecomments/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the comments server",
		Long:  "Start an HTTP server for the DAV comments endpoint. Configuration comes from FC_* environment variables; flags override them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (default: $FC_PORT or 8080)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logging.Setup(cfg.DevMode)

	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if cfg.DBPath == "" {
		path, err := db.DefaultPath()
		if err != nil {
			return err
		}
		cfg.DBPath = path
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer closeDB(database)
	slog.Info("database opened", "path", cfg.DBPath)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return web.NewServer(database, cfg).Run(ctx)
}

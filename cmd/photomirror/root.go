package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/photomirror/client/internal/api"
	"github.com/photomirror/client/internal/config"
	"github.com/photomirror/client/internal/observability"
	"github.com/photomirror/client/internal/repository"
)

const version = "0.4.0"

var telemetry *observability.Telemetry

var rootCmd = &cobra.Command{
	Use:     "photomirror",
	Version: version,
	Short:   "Mirror and upload media to a remote photo library",
	Long: `photomirror keeps a local database mirror of a remote photo library
and uploads local media into it.

The mirror is filled incrementally: the first sync walks the whole
library, later syncs replay only the changes since the last run.
Uploads are deduplicated by content hash before any bytes move.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := observability.NewConfig("photomirror", version)
		tel, err := observability.Initialize(cmd.Context(), cfg)
		if err != nil {
			observability.Warnf("telemetry disabled: %v", err)
			return
		}
		telemetry = tel
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if telemetry == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			observability.Warnf("telemetry shutdown: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(statusCmd)
}

// appEnv wires the configured remote client and local mirror together
// for one command invocation
type appEnv struct {
	cfg    *config.Config
	email  string
	client *api.Client
	store  *repository.MirrorStore
}

func buildEnv() (*appEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	tokenSource, err := api.NewTokenSource(cfg.AuthEndpoint, cfg.AuthData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token source: %w", err)
	}

	client := api.NewClient(cfg.ServerURL, tokenSource,
		api.WithTimeout(time.Duration(cfg.Upload.TimeoutSeconds)*time.Second))

	email := api.Email(cfg.AuthData)
	var store *repository.MirrorStore
	if cfg.UsePostgres() {
		store = repository.NewMirrorStorePostgres(cfg.DatabaseURL)
	} else {
		dbPath := cfg.DatabasePath(email)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create mirror directory: %w", err)
		}
		store = repository.NewMirrorStore(dbPath)
	}

	return &appEnv{cfg: cfg, email: email, client: client, store: store}, nil
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

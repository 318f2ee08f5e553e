// Package cli implements momentctl, the operator command line for indexing
// and searching videos.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jamesfarrell.me/video-moments/internal/app"
	"jamesfarrell.me/video-moments/internal/config"
)

var (
	flagUser string
	flagJSON bool
)

var rootCmd = &cobra.Command{
	Use:          "momentctl",
	Short:        "Index videos into moments and search them",
	SilenceUsage: true,
	Long: `momentctl drives the video moments indexer from a terminal.

Configuration comes from .env, the YAML file named by CONFIG_FILE and the
environment, exactly as for the service.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", os.Getenv("MOMENTS_USER"), "Owner of the videos (defaults to $MOMENTS_USER)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print results as JSON")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and wires the application for one command.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func requireUser() error {
	if flagUser == "" {
		return fmt.Errorf("no user given: pass --user or set MOMENTS_USER")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

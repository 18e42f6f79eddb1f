// Package cli implements the wiki command line: serving the HTTP API and
// offline export, import and search against the configured storage backend.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gowiki/gowiki/internal/config"
	"github.com/gowiki/gowiki/internal/server"
	"github.com/gowiki/gowiki/internal/wiki/store"
	"github.com/gowiki/gowiki/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	Format   string // "text" | "json" | "yaml"

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the wiki CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wiki",
		Short: "gowiki - a collaborative wiki",
		Long:  "A collaborative wiki with a versioned page store and pluggable storage backends.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			level := opts.LogLevel
			if level == "" {
				level = cfg.Server.LogLevel
			}
			logger.Init(level)
			if cmd.Name() != "serve" {
				// keep stdout clean for command output
				logger.SetOutput(os.Stderr)
			}
			opts.cfg = cfg
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error); overrides LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openStore opens the configured backend and loads the saved pages.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, *server.Backend, error) {
	backend, err := server.OpenBackend(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	s := store.New(backend.Adapter)
	if err := s.Load(ctx); err != nil {
		backend.Close(ctx)
		return nil, nil, fmt.Errorf("load pages: %w", err)
	}
	return s, backend, nil
}

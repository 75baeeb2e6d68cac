// Command berth answers questions about containers at the PNCT terminal.
//
//	berth serve                      # HTTP + MCP surface
//	berth query "Where is MSDU1234567?"
//	berth track MSDU1234567 --operation get_lfd
//	berth capabilities
//	berth migrate
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xraph/berth"
	"github.com/xraph/berth/engine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds the state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool

	cfg    berth.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "berth",
		Short: "Container tracking for the PNCT terminal",
		Long: `berth looks up container status at the PNCT terminal and answers
natural-language questions about it.

Configuration is read from berth.yaml (or --config) and BERTH_* environment
variables, e.g. BERTH_STORE_DRIVER=postgres BERTH_STORE_DSN=postgres://...`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := berth.LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			if c.verbose {
				cfg.Log.Level = "debug"
			}
			c.cfg = cfg
			c.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
			slog.SetDefault(c.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newQueryCmd(c),
		newTrackCmd(c),
		newCapabilitiesCmd(c),
		newMigrateCmd(c),
	)
	return root
}

// engine builds an engine from the loaded config.
func (c *cli) engine(ctx context.Context) (*engine.Engine, error) {
	eng, err := engine.Build(ctx, c.cfg, engine.WithLogger(c.logger))
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, nil
}

func newLogger(w io.Writer, cfg berth.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Konsultn-Engineering/enspec/bench"
	"github.com/Konsultn-Engineering/enspec/config"
	"github.com/Konsultn-Engineering/enspec/include"
	"github.com/Konsultn-Engineering/enspec/logging"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	LogLevel   string

	cfg    config.Config
	logger *slog.Logger
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "specbench",
		Short: "Benchmark cached and direct include dispatch",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			cfg := config.Default()
			if opts.ConfigPath != "" {
				var err error
				if cfg, err = config.Load(opts.ConfigPath); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = opts.LogLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newInfoCommand(opts))
	return cmd
}

func (o *rootOptions) env() *bench.Env {
	return bench.NewEnv(
		include.WithLogger(o.logger),
		include.WithMissThreshold(o.cfg.Cache.MissThreshold),
	)
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <benchmark>",
		Short: "Run the benchmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := opts.env().Lookup(args[0])
			if err != nil {
				return err
			}
			opts.logger.Info("running benchmark", "suite", suite.Name, "cases", len(suite.Cases))

			results, err := bench.Run(suite, opts.logger)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return bench.WriteJSON(cmd.OutOrStdout(), results)
			}
			return bench.WriteText(cmd.OutOrStdout(), results)
		},
	}
}

func newInfoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Information about existing benchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := opts.env()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Benchmarks (dispatch miss threshold %d):\n", opts.cfg.Cache.MissThreshold)
			for _, s := range env.Suites() {
				fmt.Fprintf(out, " - %s\n", s.Name)
				for _, c := range s.Cases {
					fmt.Fprintf(out, "     %s\n", c.Name)
				}
			}
			return nil
		},
	}
}

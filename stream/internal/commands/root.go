// Package commands implements the stream command line: the long-running
// service, a one-shot dry run, the CDC seeder and dead-letter tooling.
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/stream/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the stream command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "stream",
		Short: "OpenFrame CDC stream processor",
		Long: `stream consumes Debezium change events for the integrated tools from NATS
JetStream, enriches them with the platform machine id, and fans each event out
to the unified log store, the analytics stream and the search index.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: ./config.yaml or /etc/openframe/stream/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(opts),
		newProcessCommand(opts),
		newSeedCommand(opts),
		newDLQCommand(opts),
		newRoutesCommand(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// logger builds the process logger. Commands whose stdout carries data log to w.
func (o *globalOptions) logger(cfg *config.Config, w io.Writer) *logging.Logger {
	logger := logging.NewWithWriter(w,
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("stream"))
	logging.SetDefault(logger)
	return logger
}

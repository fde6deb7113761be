package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	natsclient "github.com/openframe-oss/openframe-stream/common/messaging/nats"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
	"github.com/openframe-oss/openframe-stream/stream/internal/seeder"
)

type seedOptions struct {
	count    int
	interval time.Duration
	seed     int64
	tools    []string
}

func newSeedCommand(g *globalOptions) *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Publish generated Debezium events to the inbound CDC subjects",
		Long: `Generate realistic MeshCentral, Tactical RMM and Fleet MDM change events and
publish them to JetStream, round-robin across tools.

Examples:
  stream seed --count 300
  stream seed --tool fleet --interval 500ms --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger := g.logger(cfg, cmd.ErrOrStderr())

			if cmd.Flags().Changed("count") {
				cfg.Seeder.Count = opts.count
			}
			if cmd.Flags().Changed("interval") {
				cfg.Seeder.Interval = opts.interval
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seeder.Seed = opts.seed
			}

			tools, err := parseTools(opts.tools)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			js, err := connectJetStream(cfg)
			if err != nil {
				return err
			}
			defer js.Close()

			streamCfg := natsclient.CDCEventsStream
			streamCfg.Name = cfg.Listener.Stream
			if _, err := js.CreateOrUpdateStream(ctx, streamCfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", streamCfg.Name, err)
			}

			runner := seeder.NewRunner(js, seeder.NewGenerator(cfg.Seeder.Seed), seeder.Config{
				Count:    cfg.Seeder.Count,
				Interval: cfg.Seeder.Interval,
				Tools:    tools,
			}, logger)

			res, err := runner.Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d events (%d failed)\n", res.Published, res.Failed)
			for _, tool := range model.Tools {
				if n := res.PerTool[tool]; n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %d\n", tool.Name(), n)
				}
			}
			if err != nil {
				return err
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d events failed to publish", res.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "c", 0, "number of events to publish (default seeder.count)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "pause between events")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed, 0 picks one")
	cmd.Flags().StringSliceVar(&opts.tools, "tool", nil, "tools to generate for (meshcentral, tactical, fleet)")
	return cmd
}

func parseTools(names []string) ([]model.ToolType, error) {
	tools := make([]model.ToolType, 0, len(names))
	for _, name := range names {
		tool, ok := model.ParseToolType(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

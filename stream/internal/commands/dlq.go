package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openframe-oss/openframe-stream/stream/internal/dlq"
)

func newDLQCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect the dead-letter queue",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Print dead-lettered messages as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, g, func(q *dlq.JetStreamQueue) error {
				events, err := q.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), events)
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 100, "maximum entries to print")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print dead-letter stream statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(cmd, g, func(q *dlq.JetStreamQueue) error {
				return writeJSON(cmd.OutOrStdout(), q.Stats(cmd.Context()))
			})
		},
	}

	var yes bool
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete every dead-lettered message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to purge without --yes")
			}
			return withQueue(cmd, g, func(q *dlq.JetStreamQueue) error {
				if err := q.Purge(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "DLQ purged")
				return nil
			})
		},
	}
	purge.Flags().BoolVar(&yes, "yes", false, "confirm the purge")

	cmd.AddCommand(list, stats, purge)
	return cmd
}

func withQueue(cmd *cobra.Command, g *globalOptions, fn func(q *dlq.JetStreamQueue) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	logger := g.logger(cfg, cmd.ErrOrStderr())

	js, err := connectJetStream(cfg)
	if err != nil {
		return err
	}
	defer js.Close()

	q, err := dlq.NewJetStreamQueue(cmd.Context(), js, logger)
	if err != nil {
		return err
	}
	return fn(q)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

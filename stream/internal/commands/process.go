package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/stream/internal/decoder"
	"github.com/openframe-oss/openframe-stream/stream/internal/dispatch"
	"github.com/openframe-oss/openframe-stream/stream/internal/enrichment"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
	"github.com/openframe-oss/openframe-stream/stream/internal/registry"
	"github.com/openframe-oss/openframe-stream/stream/internal/resolver"
	"github.com/openframe-oss/openframe-stream/stream/internal/sink"
)

type processOptions struct {
	machines []string
	output   string
	search   bool
}

func newProcessCommand(g *globalOptions) *cobra.Command {
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process <file|->",
		Short: "Run Debezium documents through the pipeline and print the results",
		Long: `Decode one or more Debezium JSON documents, resolve and enrich them, and
print what every route would write instead of writing it. Documents are read
from a file, or from stdin when the argument is "-".

Examples:
  stream process event.json
  stream process --machine node//abc=M100 --output yaml event.json
  cat changes.jsonl | stream process -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger := g.logger(cfg, cmd.ErrOrStderr())

			var in io.Reader
			if args[0] == "-" {
				in = cmd.InOrStdin()
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			bindings, err := registry.ParseBindings(append(cfg.Registry.Bindings, opts.machines...))
			if err != nil {
				return err
			}
			res, err := newResolver(cfg)
			if err != nil {
				return err
			}

			p, err := newProcessor(cmd.OutOrStdout(), opts, res, bindings, logger)
			if err != nil {
				return err
			}
			return p.run(cmd.Context(), in)
		},
	}

	cmd.Flags().StringArrayVar(&opts.machines, "machine", nil, "bind an agent to a machine (agent=machine, repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", sink.FormatJSON, "output format: json, yaml")
	cmd.Flags().BoolVar(&opts.search, "search", false, "include the search index routes")
	return cmd
}

// processor drives documents through a dispatcher wired to print sinks.
type processor struct {
	out        *bufio.Writer
	dispatcher *dispatch.Dispatcher
	logger     *logging.Logger
}

func newProcessor(out io.Writer, opts *processOptions, res *resolver.Resolver, bindings map[string]string, logger *logging.Logger) (*processor, error) {
	// Output is flushed once per document.
	buf := bufio.NewWriter(out)
	mu := &sync.Mutex{}

	logStore, err := sink.NewPrintSink[*model.UnifiedLogRecord](buf, mu, opts.output, model.DestinationLogStore)
	if err != nil {
		return nil, err
	}
	analytics, err := sink.NewPrintSink[*model.AnalyticsMessage](buf, mu, opts.output, model.DestinationAnalytics)
	if err != nil {
		return nil, err
	}
	inventory, err := sink.NewPrintSink[*model.InventoryChange](buf, mu, opts.output, model.DestinationInventory)
	if err != nil {
		return nil, err
	}
	sinks := Sinks{LogStore: logStore, Analytics: analytics, Inventory: inventory}
	if opts.search {
		search, err := sink.NewPrintSink[*model.UnifiedLogRecord](buf, mu, opts.output, model.DestinationSearch)
		if err != nil {
			return nil, err
		}
		sinks.Search = search
	}

	enricher := enrichment.NewClient(enrichment.NewMemoryCache(), registry.NewStatic(bindings),
		enrichment.WithLogger(logger))

	d := dispatch.New(res, BuildRoutes(sinks, nil), enricher,
		dispatch.WithSequential(true),
		dispatch.WithLogger(logger),
	)
	return &processor{out: buf, dispatcher: d, logger: logger}, nil
}

// run processes every JSON document in in. Decode and delivery failures are
// reported and counted; the first of them is returned after all documents ran.
func (p *processor) run(ctx context.Context, in io.Reader) error {
	defer p.out.Flush()

	dec := json.NewDecoder(in)
	var (
		n        int
		firstErr error
	)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read document %d: %w", n+1, err)
		}
		n++

		if err := p.processOne(ctx, raw); err != nil {
			p.logger.ErrorContext(ctx, "document failed", "document", n, logging.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("document %d: %w", n, err)
			}
		}
		if err := p.out.Flush(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if n == 0 {
		return errors.New("no documents in input")
	}
	return firstErr
}

func (p *processor) processOne(ctx context.Context, raw []byte) error {
	env, err := decoder.DecodeJSON(raw)
	if err != nil {
		return err
	}

	outcomes := p.dispatcher.Dispatch(ctx, env)
	if outcomes == nil {
		p.logger.WarnContext(ctx, "source database is not integrated", "database", env.SourceDatabase)
		return nil
	}

	var errs []error
	for _, o := range outcomes {
		if o.Failed() {
			errs = append(errs, fmt.Errorf("route %s: %w", o.Route, o.Err))
		}
	}
	return errors.Join(errs...)
}

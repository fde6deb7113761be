package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openframe-oss/openframe-stream/stream/internal/config"
	"github.com/openframe-oss/openframe-stream/stream/internal/dispatch"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
	"github.com/openframe-oss/openframe-stream/stream/internal/sink"
	"github.com/openframe-oss/openframe-stream/stream/internal/transform"
)

// Sinks holds the destination adapters routes are bound to. A nil sink
// disables every route to that destination.
type Sinks struct {
	LogStore  dispatch.Sink[*model.UnifiedLogRecord]
	Analytics dispatch.Sink[*model.AnalyticsMessage]
	Search    dispatch.Sink[*model.UnifiedLogRecord]
	Inventory dispatch.Sink[*model.InventoryChange]
}

// logStoreTools have a unified log store mapping. Tactical RMM has none yet.
var logStoreTools = map[model.ToolType]bool{
	model.ToolMeshCentral: true,
	model.ToolFleet:       true,
}

func routeName(tool model.ToolType, dest model.Destination) string {
	return tool.Name() + "-" + string(dest)
}

// inventoryTypes lists the inventory message types in route table order.
var inventoryTypes = []model.MessageType{
	model.MessageOpenFrameMachines,
	model.MessageOpenFrameTags,
	model.MessageOpenFrameMachineTag,
}

// BuildRoutes returns the default handler table: per tool, the log store
// route, then analytics, then search; per inventory collection, one
// inventory route.
func BuildRoutes(sinks Sinks, builder *transform.Builder) *dispatch.Registry {
	if builder == nil {
		builder = transform.NewBuilder()
	}

	table := make(map[model.MessageType][]dispatch.Route, len(model.Tools))
	for _, tool := range model.Tools {
		var routes []dispatch.Route

		if sinks.LogStore != nil && logStoreTools[tool] {
			routes = append(routes, dispatch.NewRoute[*model.UnifiedLogRecord](
				routeName(tool, model.DestinationLogStore), model.DestinationLogStore,
				transform.NewLogStoreTransformer(tool, builder), sinks.LogStore))
		}
		if sinks.Analytics != nil {
			routes = append(routes, dispatch.NewRoute[*model.AnalyticsMessage](
				routeName(tool, model.DestinationAnalytics), model.DestinationAnalytics,
				transform.NewAnalyticsTransformer(tool, builder), sinks.Analytics))
		}
		if sinks.Search != nil {
			routes = append(routes, dispatch.NewRoute[*model.UnifiedLogRecord](
				routeName(tool, model.DestinationSearch), model.DestinationSearch,
				transform.NewLogStoreTransformer(tool, builder), sinks.Search))
		}

		table[model.MessageTypeFor(tool)] = routes
	}

	if sinks.Inventory != nil {
		for _, mt := range inventoryTypes {
			kind := mt.InventoryKind()
			table[mt] = []dispatch.Route{dispatch.NewRoute[*model.InventoryChange](
				model.OpenFrameDatabase+"-"+string(kind)+"-"+string(model.DestinationInventory), model.DestinationInventory,
				transform.NewInventoryTransformer(kind), sinks.Inventory)}
		}
	}
	return dispatch.NewRegistry(table)
}

// placeholderSinks stands in for every destination enabled in cfg so the
// table can be listed without connecting to anything.
func placeholderSinks(cfg *config.Config) Sinks {
	var sinks Sinks
	if cfg.Cassandra.Enabled {
		sinks.LogStore, _ = sink.NewPrintSink[*model.UnifiedLogRecord](io.Discard, nil, sink.FormatJSON, model.DestinationLogStore)
	}
	if cfg.Analytics.Enabled {
		sinks.Analytics, _ = sink.NewPrintSink[*model.AnalyticsMessage](io.Discard, nil, sink.FormatJSON, model.DestinationAnalytics)
	}
	if cfg.OpenSearch.Enabled {
		sinks.Search, _ = sink.NewPrintSink[*model.UnifiedLogRecord](io.Discard, nil, sink.FormatJSON, model.DestinationSearch)
	}
	if cfg.Inventory.Enabled {
		sinks.Inventory, _ = sink.NewPrintSink[*model.InventoryChange](io.Discard, nil, sink.FormatJSON, model.DestinationInventory)
	}
	return sinks
}

func printRoutes(w io.Writer, reg *dispatch.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MESSAGE TYPE\tROUTE\tDESTINATION")
	for _, mt := range reg.MessageTypes() {
		for _, r := range reg.Routes(mt) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", mt, r.Name(), r.Destination())
		}
	}
	return tw.Flush()
}

func newRoutesCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the routes registered for each message type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), BuildRoutes(placeholderSinks(cfg), nil))
		},
	}
}

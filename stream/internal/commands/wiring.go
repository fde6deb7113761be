package commands

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/redis/go-redis/v9"

	"github.com/openframe-oss/openframe-stream/common/logging"
	natsclient "github.com/openframe-oss/openframe-stream/common/messaging/nats"
	"github.com/openframe-oss/openframe-stream/stream/internal/config"
	"github.com/openframe-oss/openframe-stream/stream/internal/dispatch"
	"github.com/openframe-oss/openframe-stream/stream/internal/enrichment"
	"github.com/openframe-oss/openframe-stream/stream/internal/inventory"
	"github.com/openframe-oss/openframe-stream/stream/internal/listener"
	"github.com/openframe-oss/openframe-stream/stream/internal/registry"
	"github.com/openframe-oss/openframe-stream/stream/internal/resolver"
	"github.com/openframe-oss/openframe-stream/stream/internal/server"
	"github.com/openframe-oss/openframe-stream/stream/internal/sink"
)

// closeTimeout bounds each resource close during shutdown.
const closeTimeout = 5 * time.Second

// closers runs cleanup functions in reverse registration order.
type closers []func()

func (c *closers) add(fn func()) {
	*c = append(*c, fn)
}

func (c *closers) run() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i]()
	}
	*c = nil
}

func natsConfig(cfg config.NATSConfig) natsclient.Config {
	return natsclient.Config{
		URL:           cfg.URL,
		Name:          cfg.Name,
		MaxReconnects: cfg.MaxReconnects,
		ReconnectWait: cfg.ReconnectWait,
		Timeout:       cfg.Timeout,
		Username:      cfg.Username,
		Password:      cfg.Password,
		Token:         cfg.Token,
	}
}

func connectJetStream(cfg *config.Config) (*natsclient.JetStreamClient, error) {
	js, err := natsclient.NewJetStreamClient(natsConfig(cfg.NATS))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	return js, nil
}

func listenerConfig(cfg config.ListenerConfig) listener.Config {
	topics := make([]listener.Topic, len(cfg.Topics))
	for i, t := range cfg.Topics {
		topics[i] = listener.Topic{Name: t.Name, Subject: t.Subject}
	}
	return listener.Config{
		Stream:         cfg.Stream,
		ConsumerPrefix: cfg.ConsumerPrefix,
		Topics:         topics,
		MaxDeliver:     cfg.MaxDeliver,
		AckWait:        cfg.AckWait,
		RetryBackoff:   cfg.RetryBackoff,
	}
}

// buildCache returns the enrichment cache named by enrichment.cache.
func buildCache(cfg *config.Config, health *server.HealthHandler, cleanup *closers) (enrichment.Cache, error) {
	switch cfg.Enrichment.Cache {
	case config.CacheMemory:
		return enrichment.NewMemoryCache(), nil
	case config.CacheRedis, "":
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		cleanup.add(func() { _ = rdb.Close() })

		cache := enrichment.NewRedisCache(rdb)
		health.AddCheck("redis", cache.Ping)
		return cache, nil
	default:
		return nil, fmt.Errorf("unknown enrichment cache %q", cfg.Enrichment.Cache)
	}
}

// buildRegistry returns the machine registry named by registry.backend, or
// nil when enrichment runs from the cache alone.
func buildRegistry(ctx context.Context, cfg *config.Config, health *server.HealthHandler, cleanup *closers) (enrichment.Registry, error) {
	switch cfg.Registry.Backend {
	case config.RegistryMongo, "":
		m, err := registry.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() {
			cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			_ = m.Close(cctx)
		})
		health.AddCheck("mongo", m.Ping)
		return m, nil
	case config.RegistryPostgres:
		p, err := registry.NewPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.Table)
		if err != nil {
			return nil, err
		}
		cleanup.add(p.Close)
		health.AddCheck("postgres", p.Ping)
		return p, nil
	case config.RegistryStatic:
		bindings, err := registry.ParseBindings(cfg.Registry.Bindings)
		if err != nil {
			return nil, err
		}
		return registry.NewStatic(bindings), nil
	case config.RegistryNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
}

// newResolver builds the resolver for the configured aliases and inventory database.
func newResolver(cfg *config.Config) (*resolver.Resolver, error) {
	inventoryDB := ""
	if cfg.Inventory.Enabled {
		inventoryDB = cfg.Inventory.Database
	}
	return resolver.New(cfg.Sources.Aliases, resolver.WithInventoryDatabase(inventoryDB))
}

func buildEnricher(ctx context.Context, cfg *config.Config, cache enrichment.Cache, health *server.HealthHandler, cleanup *closers, logger *logging.Logger) (*enrichment.Client, error) {
	reg, err := buildRegistry(ctx, cfg, health, cleanup)
	if err != nil {
		return nil, err
	}

	opts := []enrichment.Option{
		enrichment.WithTTL(cfg.Enrichment.TTL),
		enrichment.WithLogger(logger),
	}
	if cfg.Enrichment.KeyPrefix != "" {
		opts = append(opts, enrichment.WithKeyPrefix(cfg.Enrichment.KeyPrefix))
	}
	if cfg.Enrichment.Timeout > 0 {
		opts = append(opts, enrichment.WithTimeout(cfg.Enrichment.Timeout))
	}
	return enrichment.NewClient(cache, reg, opts...), nil
}

func newOpenSearchClient(cfg config.OpenSearchConfig) (*opensearch.Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return client, nil
}

func pingOpenSearch(client *opensearch.Client) server.Check {
	return func(ctx context.Context) error {
		res, err := opensearchapi.PingRequest{}.Do(ctx, client)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("opensearch ping: %s", res.Status())
		}
		return nil
	}
}

// buildInventory binds the inventory projection to the shared cache and wraps
// enricher so analytics messages pick up cached organizations. Machine rows
// are published only while the analytics stream is enabled.
func buildInventory(ctx context.Context, cfg *config.Config, cache enrichment.Cache, js *natsclient.JetStreamClient, sinks *Sinks, enricher dispatch.Enricher, logger *logging.Logger) dispatch.Enricher {
	if !cfg.Inventory.Enabled {
		return enricher
	}

	store := inventory.NewStore(cache, cfg.Inventory.TTL)
	var pub sink.Publisher
	if cfg.Analytics.Enabled {
		pub = js
	}
	sinks.Inventory = inventory.NewProjector(store, pub, logger)
	logger.InfoContext(ctx, "inventory projection enabled",
		"database", cfg.Inventory.Database, "publish", pub != nil)

	return inventory.NewEnricher(enricher, store, logger)
}

// buildSinks connects every enabled destination. Disabled destinations stay nil.
func buildSinks(ctx context.Context, cfg *config.Config, js *natsclient.JetStreamClient, health *server.HealthHandler, cleanup *closers, logger *logging.Logger) (Sinks, error) {
	var sinks Sinks

	if cfg.Cassandra.Enabled {
		session, err := sink.NewCassandraSession(sink.CassandraConfig{
			Hosts:       cfg.Cassandra.Hosts,
			Keyspace:    cfg.Cassandra.Keyspace,
			Consistency: cfg.Cassandra.Consistency,
			Username:    cfg.Cassandra.Username,
			Password:    cfg.Cassandra.Password,
			Timeout:     cfg.Cassandra.Timeout,
		})
		if err != nil {
			return sinks, err
		}
		cleanup.add(session.Close)
		health.AddCheck("cassandra", func(context.Context) error {
			if session.Closed() {
				return errors.New("cassandra session closed")
			}
			return nil
		})

		logStore, err := sink.NewCassandraSink(sink.SessionExecutor{Session: session}, cfg.Cassandra.Keyspace)
		if err != nil {
			return sinks, err
		}
		sinks.LogStore = logStore
		logger.InfoContext(ctx, "log store enabled", "keyspace", cfg.Cassandra.Keyspace, "hosts", cfg.Cassandra.Hosts)
	}

	if cfg.Analytics.Enabled {
		if cfg.Analytics.CreateStream {
			if _, err := js.CreateOrUpdateStream(ctx, natsclient.AnalyticsEventsStream); err != nil {
				return sinks, fmt.Errorf("create analytics stream: %w", err)
			}
		}
		sinks.Analytics = sink.NewAnalyticsSink(js)
		logger.InfoContext(ctx, "analytics producer enabled", "stream", natsclient.AnalyticsEventsStream.Name)
	}

	if cfg.OpenSearch.Enabled {
		client, err := newOpenSearchClient(cfg.OpenSearch)
		if err != nil {
			return sinks, err
		}
		health.AddCheck("opensearch", pingOpenSearch(client))
		sinks.Search = sink.NewSearchSink(client, cfg.OpenSearch.Index)
		logger.InfoContext(ctx, "search index enabled", "url", cfg.OpenSearch.URL, "index", cfg.OpenSearch.Index)
	}

	return sinks, nil
}

// Package enrichment resolves tool agent ids to platform machine ids, cache first
// with a registry fallback.
package enrichment

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/stream/internal/metrics"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Defaults for Client.
const (
	DefaultKeyPrefix = "agent_machine:"
	DefaultTTL       = 24 * time.Hour
	DefaultTimeout   = 2 * time.Second
)

// Registry is the authoritative agent to machine lookup.
type Registry interface {
	// FindMachineIDByAgentID returns the machine bound to agentID, or false if none.
	FindMachineIDByAgentID(ctx context.Context, agentID string) (string, bool, error)
}

// RegistryFunc adapts a function to Registry.
type RegistryFunc func(ctx context.Context, agentID string) (string, bool, error)

// FindMachineIDByAgentID calls f.
func (f RegistryFunc) FindMachineIDByAgentID(ctx context.Context, agentID string) (string, bool, error) {
	return f(ctx, agentID)
}

// Client resolves machine ids. It is safe for concurrent use.
type Client struct {
	cache    Cache
	registry Registry
	prefix   string
	ttl      time.Duration
	timeout  time.Duration
	logger   *logging.Logger
	group    singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithTTL sets the cache entry lifetime. Zero keeps entries forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) { c.ttl = ttl }
}

// WithTimeout bounds each cache and registry call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithKeyPrefix sets the cache key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client over cache and registry.
func NewClient(cache Cache, registry Registry, opts ...Option) *Client {
	c := &Client{
		cache:    cache,
		registry: registry,
		prefix:   DefaultKeyPrefix,
		ttl:      DefaultTTL,
		timeout:  DefaultTimeout,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) key(agentID string) string {
	return c.prefix + agentID
}

func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ResolveMachineID returns the machine bound to agentID. It never fails:
// cache errors fall through to the registry, and registry errors or unknown
// agents return false.
func (c *Client) ResolveMachineID(ctx context.Context, agentID string) (string, bool) {
	if agentID == "" {
		return "", false
	}
	key := c.key(agentID)

	if machineID, ok := c.fromCache(ctx, key); ok {
		metrics.EnrichmentLookups.WithLabelValues("cache_hit").Inc()
		return machineID, true
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		return c.fromRegistry(ctx, agentID, key), nil
	})
	machineID, _ := v.(string)
	return machineID, machineID != ""
}

func (c *Client) fromCache(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	cctx, cancel := c.bounded(ctx)
	defer cancel()

	val, ok, err := c.cache.Get(cctx, key)
	if err != nil {
		metrics.EnrichmentLookups.WithLabelValues("cache_error").Inc()
		c.logger.WarnContext(ctx, "enrichment cache read failed", logging.Error(err))
		return "", false
	}
	return val, ok && val != ""
}

func (c *Client) fromRegistry(ctx context.Context, agentID, key string) string {
	if c.registry == nil {
		metrics.EnrichmentLookups.WithLabelValues("miss").Inc()
		return ""
	}

	rctx, cancel := c.bounded(ctx)
	machineID, found, err := c.registry.FindMachineIDByAgentID(rctx, agentID)
	cancel()
	if err != nil {
		metrics.EnrichmentLookups.WithLabelValues("registry_error").Inc()
		c.logger.WarnContext(ctx, "machine registry lookup failed", logging.AgentID(agentID), logging.Error(err))
		return ""
	}
	if !found || machineID == "" {
		metrics.EnrichmentLookups.WithLabelValues("miss").Inc()
		c.logger.DebugContext(ctx, "agent not bound to a machine", logging.AgentID(agentID))
		return ""
	}
	metrics.EnrichmentLookups.WithLabelValues("registry_hit").Inc()

	if c.cache != nil {
		wctx, cancel := c.bounded(ctx)
		if _, err := c.cache.SetNX(wctx, key, machineID, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "enrichment cache populate failed", logging.AgentID(agentID), logging.Error(err))
		}
		cancel()
	}
	return machineID
}

// Enrich builds the EnrichedContext for agentID.
func (c *Client) Enrich(ctx context.Context, agentID string) model.EnrichedContext {
	ectx := model.EnrichedContext{AgentID: agentID}
	if machineID, ok := c.ResolveMachineID(ctx, agentID); ok {
		ectx.MachineID = machineID
	}
	return ectx
}

// Invalidate drops the cached binding for agentID so the next lookup consults the registry.
func (c *Client) Invalidate(ctx context.Context, agentID string) error {
	if c.cache == nil || agentID == "" {
		return nil
	}
	cctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.cache.Delete(cctx, c.key(agentID))
}

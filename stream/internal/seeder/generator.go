// Package seeder generates Debezium change events for the integrated tools and
// publishes them to the inbound CDC subjects.
package seeder

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/openframe-oss/openframe-stream/common/messaging"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// DefaultAgentsPerTool is the size of each tool's agent pool. Events reuse
// agents so enrichment lookups hit the cache.
const DefaultAgentsPerTool = 5

const debeziumVersion = "2.5.0.Final"

var (
	meshActions = map[string][]string{
		"user":  {"login", "logout", "passchange", "accountchange"},
		"node":  {"addnode", "changenode", "removenode", "agentlog"},
		"relay": {"relaylog", "recording"},
		"mesh":  {"createmesh", "meshchange"},
	}
	meshEtypes = []string{"user", "node", "relay", "mesh"}

	tacticalEvents = [][2]string{
		{"user", "login"},
		{"agent", "created"},
		{"agent", "updated"},
		{"script", "executed"},
		{"check", "created"},
		{"alert", "triggered"},
		{"agent", "script_run"},
	}

	fleetActivities = []string{
		"user_logged_in", "user_failed_login", "fleet_enrolled", "changed_host_status",
		"policy_violation", "applied_policy", "remote_session_start", "alert_triggered",
	}
)

// Event is one generated change event ready to publish.
type Event struct {
	Tool    model.ToolType
	AgentID string
	Subject string
	Data    []byte
}

// Generator builds realistic Debezium envelopes.
type Generator struct {
	faker  *gofakeit.Faker
	now    func() time.Time
	agents map[model.ToolType][]string
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithAgents replaces the agent pool for tool.
func WithAgents(tool model.ToolType, agents ...string) Option {
	return func(g *Generator) { g.agents[tool] = agents }
}

// NewGenerator creates a Generator. A zero seed picks a random one.
func NewGenerator(seed int64, opts ...Option) *Generator {
	g := &Generator{
		faker:  gofakeit.New(seed),
		now:    time.Now,
		agents: make(map[model.ToolType][]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	for _, tool := range model.Tools {
		if len(g.agents[tool]) == 0 {
			g.agents[tool] = g.agentPool(tool, DefaultAgentsPerTool)
		}
	}
	return g
}

func (g *Generator) agentPool(tool model.ToolType, n int) []string {
	pool := make([]string, n)
	for i := range pool {
		switch tool {
		case model.ToolMeshCentral:
			pool[i] = "node//" + g.faker.LetterN(16)
		case model.ToolTactical:
			pool[i] = g.faker.Lexify("????????????????????????????????????????????????")
		default:
			pool[i] = fmt.Sprint(g.faker.IntRange(1, 99999))
		}
	}
	return pool
}

// Agents returns the agent ids events for tool are drawn from.
func (g *Generator) Agents(tool model.ToolType) []string {
	return append([]string(nil), g.agents[tool]...)
}

// Generate builds one event for tool.
func (g *Generator) Generate(tool model.ToolType) (*Event, error) {
	agent := g.faker.RandomString(g.agents[tool])

	var (
		payload map[string]any
		table   string
		err     error
	)
	switch tool {
	case model.ToolMeshCentral:
		table = "events"
		payload, err = g.meshCentral(agent)
	case model.ToolTactical:
		table = "logs_auditlog"
		payload = g.tactical(agent, table)
	case model.ToolFleet:
		table = "activities"
		payload, err = g.fleet(agent)
	default:
		return nil, fmt.Errorf("unsupported tool %q", tool)
	}
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(map[string]any{
		"schema":  nil,
		"payload": payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	return &Event{
		Tool:    tool,
		AgentID: agent,
		Subject: messaging.CDCSubject(tool.Database() + "." + table),
		Data:    data,
	}, nil
}

func (g *Generator) envelope(after any, source map[string]any) map[string]any {
	now := g.now().UTC()
	source["version"] = debeziumVersion
	source["ts_ms"] = now.UnixMilli()
	source["snapshot"] = "false"
	return map[string]any{
		"before":      nil,
		"after":       after,
		"source":      source,
		"op":          "c",
		"ts_ms":       now.UnixMilli(),
		"transaction": nil,
	}
}

// meshCentral builds a MongoDB connector event; the Mongo connector ships the
// document as a JSON string.
func (g *Generator) meshCentral(agent string) (map[string]any, error) {
	etype := g.faker.RandomString(meshEtypes)
	action := g.faker.RandomString(meshActions[etype])
	domain := g.faker.LetterN(8)

	doc := map[string]any{
		"_id":    map[string]any{"$oid": strings.ReplaceAll(g.faker.UUID(), "-", "")[:24]},
		"nodeid": agent,
		"etype":  etype,
		"action": action,
		"msg":    fmt.Sprintf("%s %s by %s", etype, action, g.faker.Username()),
		"time":   g.now().UTC().Format(time.RFC3339Nano),
		"userid": "user/" + domain + "/" + g.faker.Username(),
		"domain": domain,
		"ip":     g.faker.IPv4Address(),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal meshcentral document: %w", err)
	}

	return g.envelope(string(raw), map[string]any{
		"connector":  "mongodb",
		"name":       "meshcentral",
		"db":         model.ToolMeshCentral.Database(),
		"rs":         "rs0",
		"collection": "events",
		"ord":        1,
	}), nil
}

func (g *Generator) tactical(agent, table string) map[string]any {
	ev := tacticalEvents[g.faker.IntRange(0, len(tacticalEvents)-1)]
	after := map[string]any{
		"id":          g.faker.IntRange(1, 1<<30),
		"agentid":     agent,
		"object_type": ev[0],
		"action":      ev[1],
		"username":    g.faker.Username(),
		"message":     g.faker.Sentence(8),
		"entry_time":  g.now().UTC().Format(time.RFC3339Nano),
		"ip_address":  g.faker.IPv4Address(),
		"after_value": map[string]any{"hostname": g.faker.DomainName(), "os": g.faker.RandomString([]string{"windows", "linux", "darwin"})},
	}
	return g.envelope(after, map[string]any{
		"connector": "postgresql",
		"name":      "tactical-rmm",
		"db":        model.ToolTactical.Database(),
		"schema":    "public",
		"table":     table,
		"txId":      g.faker.IntRange(1000, 99999),
		"lsn":       g.faker.IntRange(1<<20, 1<<30),
	})
}

func (g *Generator) fleet(agent string) (map[string]any, error) {
	activity := g.faker.RandomString(fleetActivities)
	details, err := json.Marshal(map[string]any{
		"message":  fmt.Sprintf("%s on host %s", activity, agent),
		"hostId":   agent,
		"platform": g.faker.RandomString([]string{"darwin", "windows", "ubuntu"}),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fleet details: %w", err)
	}

	after := map[string]any{
		"id":            g.faker.IntRange(1, 1<<30),
		"agentId":       agent,
		"activity_type": activity,
		"user_name":     g.faker.Username(),
		"details":       string(details),
		"created_at":    g.now().UTC().Format("2006-01-02 15:04:05"),
	}
	return g.envelope(after, map[string]any{
		"connector": "mysql",
		"name":      "fleet",
		"db":        model.ToolFleet.Database(),
		"table":     "activities",
		"server_id": 1,
		"file":      "binlog.000003",
		"pos":       g.faker.IntRange(1000, 999999),
		"row":       0,
	}), nil
}

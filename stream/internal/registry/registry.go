// Package registry holds the authoritative agent to machine bindings used when the
// enrichment cache misses.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMongoCollection is the collection holding integrated tool connections.
const DefaultMongoCollection = "integrated_tool_connections"

// DefaultPostgresTable is the table holding agent to machine bindings.
const DefaultPostgresTable = "agent_machines"

// ErrInvalidBinding is returned when a static binding cannot be parsed.
var ErrInvalidBinding = errors.New("invalid agent binding")

// ParseBindings parses "agent=machine" pairs.
func ParseBindings(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		agent, machine, ok := strings.Cut(pair, "=")
		agent = strings.TrimSpace(agent)
		machine = strings.TrimSpace(machine)
		if !ok || agent == "" || machine == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBinding, pair)
		}
		out[agent] = machine
	}
	return out, nil
}

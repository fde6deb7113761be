package dispatch

import (
	"sort"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Registry maps message types to their ordered routes. It is built once and
// read-only afterwards.
type Registry struct {
	routes map[model.MessageType][]Route
}

// NewRegistry copies table into a Registry.
func NewRegistry(table map[model.MessageType][]Route) *Registry {
	routes := make(map[model.MessageType][]Route, len(table))
	for mt, rs := range table {
		if len(rs) == 0 {
			continue
		}
		routes[mt] = append([]Route(nil), rs...)
	}
	return &Registry{routes: routes}
}

// Routes returns the routes for mt. Callers must not modify the slice.
func (r *Registry) Routes(mt model.MessageType) []Route {
	if r == nil {
		return nil
	}
	return r.routes[mt]
}

// MessageTypes lists the registered message types in sorted order.
func (r *Registry) MessageTypes() []model.MessageType {
	if r == nil {
		return nil
	}
	out := make([]model.MessageType, 0, len(r.routes))
	for mt := range r.routes {
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

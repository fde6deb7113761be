package registry

import (
	"context"
	"sync"
)

// Static is an in-memory registry, used for dry runs and tests.
type Static struct {
	mu       sync.RWMutex
	bindings map[string]string
}

// NewStatic creates a Static registry seeded with bindings.
func NewStatic(bindings map[string]string) *Static {
	s := &Static{bindings: make(map[string]string, len(bindings))}
	for agent, machine := range bindings {
		s.bindings[agent] = machine
	}
	return s
}

// Bind records agentID -> machineID.
func (s *Static) Bind(agentID, machineID string) {
	s.mu.Lock()
	s.bindings[agentID] = machineID
	s.mu.Unlock()
}

// Unbind removes the binding for agentID.
func (s *Static) Unbind(agentID string) {
	s.mu.Lock()
	delete(s.bindings, agentID)
	s.mu.Unlock()
}

// FindMachineIDByAgentID looks up agentID.
func (s *Static) FindMachineIDByAgentID(_ context.Context, agentID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	machineID, ok := s.bindings[agentID]
	return machineID, ok, nil
}

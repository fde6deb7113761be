package inventory

import (
	"context"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// MachineEnricher resolves an agent to its machine.
type MachineEnricher interface {
	Enrich(ctx context.Context, agentID string) model.EnrichedContext
}

// Enricher adds the cached organization of the resolved machine.
type Enricher struct {
	next   MachineEnricher
	store  *Store
	logger *logging.Logger
}

// NewEnricher wraps next.
func NewEnricher(next MachineEnricher, store *Store, logger *logging.Logger) *Enricher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Enricher{next: next, store: store, logger: logger}
}

// Enrich never fails. A cache error leaves the organization empty.
func (e *Enricher) Enrich(ctx context.Context, agentID string) model.EnrichedContext {
	ectx := e.next.Enrich(ctx, agentID)
	if !ectx.HasMachine() {
		return ectx
	}
	m, ok, err := e.store.Machine(ctx, ectx.MachineID)
	if err != nil {
		e.logger.DebugContext(ctx, "machine organization lookup failed",
			logging.MachineID(ectx.MachineID), logging.Error(err))
		return ectx
	}
	if ok {
		ectx.OrganizationID = m.OrganizationID
	}
	return ectx
}

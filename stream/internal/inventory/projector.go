package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"

	"github.com/openframe-oss/openframe-stream/common/logging"
	"github.com/openframe-oss/openframe-stream/common/messaging"
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
	"github.com/openframe-oss/openframe-stream/stream/internal/sink"
)

// Projector applies inventory changes to the Store and publishes the
// resulting machine rows on machines.pinot. Tag changes are cached only.
type Projector struct {
	store  *Store
	pub    sink.Publisher
	logger *logging.Logger
}

// NewProjector creates a projector. A nil pub keeps the cache current
// without publishing.
func NewProjector(store *Store, pub sink.Publisher, logger *logging.Logger) *Projector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Projector{store: store, pub: pub, logger: logger}
}

// Push applies c. Cache failures are retryable; every step is idempotent, so a
// redelivered change converges on the same state.
func (p *Projector) Push(ctx context.Context, c *model.InventoryChange) error {
	if c == nil {
		return sink.Fatal(model.DestinationInventory, errors.New("nil inventory change"))
	}

	switch c.Kind {
	case model.InventoryMachine:
		if c.Machine == nil {
			break
		}
		if c.Deleted {
			return p.retryable(p.store.DeleteMachine(ctx, c.Machine.MachineID))
		}
		m, err := p.store.SaveMachine(ctx, c.Machine)
		if err != nil {
			return p.retryable(err)
		}
		return p.publish(ctx, m)

	case model.InventoryTag:
		if c.Tag == nil {
			break
		}
		if c.Deleted {
			return p.retryable(p.store.DeleteTag(ctx, c.Tag.ID))
		}
		return p.retryable(p.store.SaveTag(ctx, c.Tag))

	case model.InventoryMachineTag:
		if c.MachineTag == nil {
			break
		}
		apply := p.store.Bind
		if c.Deleted {
			apply = p.store.Unbind
		}
		m, known, err := apply(ctx, c.MachineTag)
		if err != nil {
			return p.retryable(err)
		}
		if !known {
			p.logger.DebugContext(ctx, "machine tag for uncached machine, publish deferred",
				logging.MachineID(c.MachineTag.MachineID), "tag_id", c.MachineTag.TagID)
			return nil
		}
		return p.publish(ctx, m)
	}

	return sink.Fatal(model.DestinationInventory, fmt.Errorf("inventory change %q carries no document", c.Kind))
}

func (p *Projector) retryable(err error) error {
	if err == nil {
		return nil
	}
	return sink.Retryable(model.DestinationInventory, err)
}

func (p *Projector) publish(ctx context.Context, m *model.Machine) error {
	if p.pub == nil {
		return nil
	}

	tags, err := p.store.TagNames(ctx, m)
	if err != nil {
		return p.retryable(err)
	}
	row := &model.MachineMessage{
		MachineID:      m.MachineID,
		OrganizationID: m.OrganizationID,
		DeviceType:     m.DeviceType,
		Status:         m.Status,
		OSType:         m.OSType,
		Tags:           tags,
	}

	data, err := json.Marshal(row)
	if err != nil {
		return sink.Fatal(model.DestinationInventory, fmt.Errorf("marshal machine message: %w", err))
	}
	msg := messaging.NewMessage(messaging.SubjectMachines, data,
		messaging.WithHeader(messaging.HeaderPartitionKey, row.PartitionKey()),
		messaging.WithHeader("Content-Type", "application/json"),
	)
	if _, err := p.pub.PublishMsgSync(ctx, msg); err != nil {
		if errors.Is(err, natsgo.ErrMaxPayload) {
			return sink.Fatal(model.DestinationInventory, err)
		}
		return sink.Retryable(model.DestinationInventory, fmt.Errorf("publish %s: %w", msg.Subject, err))
	}
	return nil
}

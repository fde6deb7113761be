package transform

import (
	"fmt"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// InventoryTransformer reads OpenFrame's machine, tag and machine tag
// documents. Deletes are read from the before-image.
type InventoryTransformer struct {
	kind model.InventoryKind
}

// NewInventoryTransformer creates a transformer for one inventory collection.
func NewInventoryTransformer(kind model.InventoryKind) *InventoryTransformer {
	return &InventoryTransformer{kind: kind}
}

// Transform builds the inventory change.
func (t *InventoryTransformer) Transform(env *model.CdcEnvelope, _ model.EnrichedContext) (*model.InventoryChange, error) {
	if env == nil {
		return nil, t.fail("envelope", "absent")
	}

	change := &model.InventoryChange{Kind: t.kind, Deleted: env.Operation == model.OperationDelete}
	doc := env.After
	if change.Deleted {
		doc = env.Before
	}
	if doc == nil {
		if change.Deleted {
			return nil, fmt.Errorf("%s delete without a before-image: %w", t.kind, ErrSkip)
		}
		return nil, t.fail("after", "document is absent")
	}

	switch t.kind {
	case model.InventoryMachine:
		m := &model.Machine{
			MachineID:      firstString(doc, "machineId"),
			OrganizationID: firstString(doc, "organizationId"),
			DeviceType:     firstString(doc, "type", "deviceType"),
			Status:         firstString(doc, "status"),
			OSType:         firstString(doc, "osType"),
		}
		if m.MachineID == "" {
			return nil, t.fail("machineId", "missing")
		}
		change.Machine = m

	case model.InventoryTag:
		tag := &model.Tag{
			ID:   firstString(doc, "_id", "id"),
			Name: firstString(doc, "name"),
		}
		if tag.ID == "" {
			return nil, t.fail("_id", "missing")
		}
		change.Tag = tag

	case model.InventoryMachineTag:
		mt := &model.MachineTag{
			MachineID: firstString(doc, "machineId"),
			TagID:     firstString(doc, "tagId"),
		}
		if mt.MachineID == "" {
			return nil, t.fail("machineId", "missing")
		}
		if mt.TagID == "" {
			return nil, t.fail("tagId", "missing")
		}
		change.MachineTag = mt

	default:
		return nil, t.fail("kind", fmt.Sprintf("unknown inventory kind %q", t.kind))
	}

	return change, nil
}

func (t *InventoryTransformer) fail(field, reason string) error {
	return &TransformError{Tool: model.OpenFrameDatabase + "." + string(t.kind), Field: field, Reason: reason}
}

package model

// OpenFrameDatabase is the Mongo database holding OpenFrame's own inventory.
const OpenFrameDatabase = "openframe"

// Inventory collections captured from OpenFrameDatabase.
const (
	CollectionMachines    = "machines"
	CollectionTags        = "tags"
	CollectionMachineTags = "machine_tags"
)

// Inventory message types. They belong to no tool.
const (
	MessageOpenFrameMachines   MessageType = "OPENFRAME_MONGO_MACHINES"
	MessageOpenFrameTags       MessageType = "OPENFRAME_MONGO_TAGS"
	MessageOpenFrameMachineTag MessageType = "OPENFRAME_MONGO_MACHINE_TAG"
)

// InventoryCollections maps each inventory collection to its message type.
var InventoryCollections = map[string]MessageType{
	CollectionMachines:    MessageOpenFrameMachines,
	CollectionTags:        MessageOpenFrameTags,
	CollectionMachineTags: MessageOpenFrameMachineTag,
}

// InventoryKind returns the document kind an inventory message type carries,
// or "" for tool message types.
func (m MessageType) InventoryKind() InventoryKind {
	switch m {
	case MessageOpenFrameMachines:
		return InventoryMachine
	case MessageOpenFrameTags:
		return InventoryTag
	case MessageOpenFrameMachineTag:
		return InventoryMachineTag
	default:
		return ""
	}
}

// Machine is the cached projection of an OpenFrame machine document.
type Machine struct {
	MachineID      string   `json:"machineId"`
	OrganizationID string   `json:"organizationId,omitempty"`
	DeviceType     string   `json:"deviceType,omitempty"`
	Status         string   `json:"status,omitempty"`
	OSType         string   `json:"osType,omitempty"`
	TagIDs         []string `json:"tagIds,omitempty"`
}

// Tag is the cached projection of an OpenFrame tag document.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MachineTag binds a tag to a machine.
type MachineTag struct {
	MachineID string `json:"machineId"`
	TagID     string `json:"tagId"`
}

// InventoryKind names the document an InventoryChange carries.
type InventoryKind string

const (
	InventoryMachine    InventoryKind = "machine"
	InventoryTag        InventoryKind = "tag"
	InventoryMachineTag InventoryKind = "machine_tag"
)

// InventoryChange is one create, update or delete of an inventory document.
// Exactly one of Machine, Tag and MachineTag is set, matching Kind.
type InventoryChange struct {
	Kind       InventoryKind `json:"kind"`
	Deleted    bool          `json:"deleted,omitempty"`
	Machine    *Machine      `json:"machine,omitempty"`
	Tag        *Tag          `json:"tag,omitempty"`
	MachineTag *MachineTag   `json:"machineTag,omitempty"`
}

// MachineMessage is the denormalized machine row published on machines.pinot.
type MachineMessage struct {
	MachineID      string   `json:"machineId"`
	OrganizationID string   `json:"organizationId"`
	DeviceType     string   `json:"deviceType"`
	Status         string   `json:"status"`
	OSType         string   `json:"osType"`
	Tags           []string `json:"tags"`
}

// PartitionKey keeps every snapshot of a machine in order.
func (m *MachineMessage) PartitionKey() string {
	return m.MachineID
}

package model

import "strings"

// ToolType identifies an integrated third-party tool.
type ToolType string

const (
	ToolMeshCentral ToolType = "MESHCENTRAL"
	ToolTactical    ToolType = "TACTICAL"
	ToolFleet       ToolType = "FLEET"
)

// Tools lists every integrated tool in a stable order.
var Tools = []ToolType{ToolMeshCentral, ToolTactical, ToolFleet}

// Name is the lowercase tool name used in subjects and analytics payloads.
func (t ToolType) Name() string {
	switch t {
	case ToolMeshCentral:
		return "meshcentral"
	case ToolTactical:
		return "tactical"
	case ToolFleet:
		return "fleet"
	default:
		return strings.ToLower(string(t))
	}
}

// Database is the source database name Debezium reports for the tool.
func (t ToolType) Database() string {
	switch t {
	case ToolTactical:
		return "tactical_rmm"
	default:
		return t.Name()
	}
}

// ParseToolType accepts either the enum form ("FLEET") or the tool name ("fleet").
func ParseToolType(s string) (ToolType, bool) {
	for _, t := range Tools {
		if strings.EqualFold(s, string(t)) || strings.EqualFold(s, t.Name()) || strings.EqualFold(s, t.Database()) {
			return t, true
		}
	}
	return "", false
}

// MessageType tags a (source, event-category) pair and drives dispatch.
type MessageType string

const (
	MessageMeshCentralEvent MessageType = "MESHCENTRAL_EVENT"
	MessageTacticalRMMEvent MessageType = "TACTICAL_RMM_EVENT"
	MessageFleetMDMEvent    MessageType = "FLEET_MDM_EVENT"
)

// Tool returns the tool a message type belongs to.
func (m MessageType) Tool() ToolType {
	switch m {
	case MessageMeshCentralEvent:
		return ToolMeshCentral
	case MessageTacticalRMMEvent:
		return ToolTactical
	case MessageFleetMDMEvent:
		return ToolFleet
	default:
		return ""
	}
}

// MessageTypeFor returns the message type produced by a tool.
func MessageTypeFor(t ToolType) MessageType {
	switch t {
	case ToolMeshCentral:
		return MessageMeshCentralEvent
	case ToolTactical:
		return MessageTacticalRMMEvent
	case ToolFleet:
		return MessageFleetMDMEvent
	default:
		return ""
	}
}

// EnrichedContext carries side-lookup results for one message.
// An empty MachineID means the agent is not bound to a machine, which is not an error.
// OrganizationID comes from the inventory cache and is empty until the machine is seen.
type EnrichedContext struct {
	AgentID        string `json:"agent_id,omitempty"`
	MachineID      string `json:"machine_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// HasMachine reports whether the agent resolved to a machine.
func (c EnrichedContext) HasMachine() bool {
	return c.MachineID != ""
}

package transform

import "github.com/openframe-oss/openframe-stream/stream/internal/model"

// meshCentralExtractor reads MeshCentral Mongo "events" documents.
type meshCentralExtractor struct{}

func (meshCentralExtractor) Tool() model.ToolType { return model.ToolMeshCentral }

func (meshCentralExtractor) Extract(doc model.Document) Fields {
	f := Fields{
		AgentID:        firstString(doc, "nodeid", "agentId"),
		ToolEventID:    scalar(doc["_id"]),
		Message:        firstString(doc, "msg"),
		UserID:         firstString(doc, "userid", "username"),
		OrganizationID: firstString(doc, "domain"),
	}

	f.SourceEventType = joinType(firstString(doc, "etype"), firstString(doc, "action"))
	if f.SourceEventType == "" {
		f.SourceEventType = firstString(doc, "eventType")
	}

	if ts, ok := parseTime(doc["time"]); ok {
		f.Timestamp = ts
	}
	return f
}

// tacticalExtractor reads Tactical RMM audit log rows.
type tacticalExtractor struct{}

func (tacticalExtractor) Tool() model.ToolType { return model.ToolTactical }

func (tacticalExtractor) Extract(doc model.Document) Fields {
	f := Fields{
		AgentID:         firstString(doc, "agentid", "agent_id"),
		SourceEventType: joinType(firstString(doc, "object_type"), firstString(doc, "action")),
		ToolEventID:     scalar(doc["id"]),
		Message:         firstString(doc, "message"),
		UserID:          firstString(doc, "username"),
	}
	if ts, ok := parseTime(doc["entry_time"]); ok {
		f.Timestamp = ts
	}
	return f
}

// fleetExtractor reads Fleet MDM "activities" rows. details is a JSON column.
type fleetExtractor struct{}

func (fleetExtractor) Tool() model.ToolType { return model.ToolFleet }

func (fleetExtractor) Extract(doc model.Document) Fields {
	f := Fields{
		AgentID:         firstString(doc, "agentId", "host_id"),
		SourceEventType: firstString(doc, "activity_type"),
		ToolEventID:     scalar(doc["id"]),
		UserID:          firstString(doc, "user_name", "user_id"),
	}

	if details := object(doc["details"]); details != nil {
		f.Message = firstString(details, "message")
	}
	if f.Message == "" {
		f.Message = f.SourceEventType
	}

	if ts, ok := parseTime(doc["created_at"]); ok {
		f.Timestamp = ts
	}
	return f
}

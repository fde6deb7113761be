package eventtype

import (
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

type key struct {
	tool   model.ToolType
	source string
}

// Source event types per tool. MeshCentral types are "<etype>.<action>",
// Tactical RMM "<object_type>.<action>", Fleet the activity_type column.
var mappings = map[key]Type{
	// MeshCentral user.*
	{model.ToolMeshCentral, "user.login"}:              Login,
	{model.ToolMeshCentral, "user.logout"}:             Logout,
	{model.ToolMeshCentral, "user.passchange"}:         PasswordChanged,
	{model.ToolMeshCentral, "user.accountcreate"}:      UserCreated,
	{model.ToolMeshCentral, "user.accountremove"}:      UserDeleted,
	{model.ToolMeshCentral, "user.accountchange"}:      UserUpdated,
	{model.ToolMeshCentral, "user.loginTokenChanged"}:  UserTokenChanged,
	{model.ToolMeshCentral, "user.loginTokenAdded"}:    UserTokenAdded,
	{model.ToolMeshCentral, "user.uicustomevent"}:      UserUICustomEvent,
	{model.ToolMeshCentral, "user.endsession"}:         UserSessionEnded,
	{model.ToolMeshCentral, "login"}:                   Login,
	{model.ToolMeshCentral, "logout"}:                  Logout,
	{model.ToolMeshCentral, "mesh.deletemesh"}:         GroupDeleted,
	{model.ToolMeshCentral, "mesh.meshchange"}:         GroupUpdated,
	{model.ToolMeshCentral, "mesh.createmesh"}:         GroupCreated,
	{model.ToolMeshCentral, "node.addnode"}:            DeviceRegistered,
	{model.ToolMeshCentral, "node.changenode"}:         DeviceUpdated,
	{model.ToolMeshCentral, "node.removenode"}:         DeviceDeleted,
	{model.ToolMeshCentral, "node.devicesessions"}:     DeviceSessionsUpdated,
	{model.ToolMeshCentral, "node.sysinfohash"}:        DeviceSysinfoUpdated,
	{model.ToolMeshCentral, "node.amtactivate"}:        DeviceOOBActivation,
	{model.ToolMeshCentral, "node.diagnostic"}:         DeviceDiagnostic,
	{model.ToolMeshCentral, "node.agentlog"}:           FileOperation,
	{model.ToolMeshCentral, "node.batchupload"}:        FileBatchUpload,
	{model.ToolMeshCentral, "node.sessioncompression"}: RemoteSessionStats,
	{model.ToolMeshCentral, "relay.relaylog"}:          RemoteSessionEvent,
	{model.ToolMeshCentral, "relay.recording"}:         RemoteRecordingReady,
	{model.ToolMeshCentral, "ugrp.usergroupchange"}:    UserGroupChanged,
	{model.ToolMeshCentral, "ugrp.createusergroup"}:    UserGroupCreated,
	{model.ToolMeshCentral, "ugrp.deleteusergroup"}:    UserGroupDeleted,
	{model.ToolMeshCentral, "server.started"}:          SystemStart,
	{model.ToolMeshCentral, "server.stopped"}:          SystemShutdown,
	{model.ToolMeshCentral, "scanamtdevice"}:           DeviceDiscovery,
	{model.ToolMeshCentral, "servertimelinestats"}:     SystemMonitoring,
	{model.ToolMeshCentral, "wssessioncount"}:          SessionCount,

	{model.ToolTactical, "user.login"}:      Login,
	{model.ToolTactical, "user.logout"}:     Logout,
	{model.ToolTactical, "agent.created"}:   DeviceRegistered,
	{model.ToolTactical, "agent.updated"}:   DeviceUpdated,
	{model.ToolTactical, "script.executed"}: ScriptExecuted,
	{model.ToolTactical, "check.created"}:   MonitoringCheckCreated,
	{model.ToolTactical, "alert.triggered"}: AlertTriggered,

	{model.ToolFleet, "user_logged_in"}:            Login,
	{model.ToolFleet, "user_failed_login"}:         LoginFailed,
	{model.ToolFleet, "created_user"}:              UserCreated,
	{model.ToolFleet, "changed_user_global_role"}:  UserRoleChanged,
	{model.ToolFleet, "fleet_enrolled"}:            DeviceRegistered,
	{model.ToolFleet, "deleted_user"}:              UserDeleted,
	{model.ToolFleet, "edited_user"}:               UserUpdated,
	{model.ToolFleet, "deleted_host"}:              DeviceDeleted,
	{model.ToolFleet, "changed_host_status"}:       DeviceUpdated,
	{model.ToolFleet, "policy_violation"}:          PolicyViolation,
	{model.ToolFleet, "applied_policy"}:            PolicyApplied,
	{model.ToolFleet, "policy_compliance_checked"}: ComplianceCheck,
	{model.ToolFleet, "remote_session_start"}:      RemoteSessionStart,
	{model.ToolFleet, "remote_session_end"}:        RemoteSessionEnd,
	{model.ToolFleet, "alert_triggered"}:           AlertTriggered,
	{model.ToolFleet, "alert_resolved"}:            AlertResolved,
}

// Map returns the unified type for a tool's source event type.
// Unmapped pairs are Unknown.
func Map(tool model.ToolType, sourceEventType string) Type {
	if t, ok := mappings[key{tool, sourceEventType}]; ok {
		return t
	}
	return Unknown
}

// Package eventtype maps tool-specific event types onto the unified event catalogue.
package eventtype

import (
	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// Type is a canonical event type.
type Type string

// Info describes a unified event type.
type Info struct {
	Category    string
	Description string
	Severity    model.Severity
}

const (
	Login             Type = "LOGIN"
	Logout            Type = "LOGOUT"
	LoginFailed       Type = "LOGIN_FAILED"
	PasswordChanged   Type = "PASSWORD_CHANGED"
	SessionExpired    Type = "SESSION_EXPIRED"
	SessionCount      Type = "SESSION_COUNT_UPDATED"
	UserCreated       Type = "USER_CREATED"
	UserUpdated       Type = "USER_UPDATED"
	UserDeleted       Type = "USER_DELETED"
	UserRoleChanged   Type = "USER_ROLE_CHANGED"
	UserTokenChanged  Type = "USER_LOGIN_TOKEN_CHANGED"
	UserTokenAdded    Type = "USER_LOGIN_TOKEN_ADDED"
	UserUICustomEvent Type = "USER_UI_CUSTOM_EVENT"
	UserSessionEnded  Type = "USER_SESSION_ENDED"
	UserGroupCreated  Type = "USER_GROUP_CREATED"
	UserGroupChanged  Type = "USER_GROUP_CHANGED"
	UserGroupDeleted  Type = "USER_GROUP_DELETED"
	GroupCreated      Type = "GROUP_CREATED"
	GroupUpdated      Type = "GROUP_UPDATED"
	GroupDeleted      Type = "GROUP_DELETED"

	DeviceOnline          Type = "DEVICE_ONLINE"
	DeviceOffline         Type = "DEVICE_OFFLINE"
	DeviceRegistered      Type = "DEVICE_REGISTERED"
	DeviceUpdated         Type = "DEVICE_UPDATED"
	DeviceDeleted         Type = "DEVICE_DELETED"
	DeviceHeartbeat       Type = "DEVICE_HEARTBEAT"
	DeviceSessionsUpdated Type = "DEVICE_SESSIONS_UPDATED"
	DeviceSysinfoUpdated  Type = "DEVICE_SYSINFO_UPDATED"
	DeviceOOBActivation   Type = "DEVICE_OOB_ACTIVATION_REQUESTED"
	DeviceDiagnostic      Type = "DEVICE_DIAGNOSTIC"
	DeviceDiscovery       Type = "DEVICE_DISCOVERY"

	ScriptExecuted Type = "SCRIPT_EXECUTED"
	ScriptFailed   Type = "SCRIPT_FAILED"
	ScriptCreated  Type = "SCRIPT_CREATED"
	ScriptUpdated  Type = "SCRIPT_UPDATED"

	PolicyApplied   Type = "POLICY_APPLIED"
	PolicyViolation Type = "POLICY_VIOLATION"
	ComplianceCheck Type = "COMPLIANCE_CHECK"

	FileTransfer    Type = "FILE_TRANSFER"
	FileUploaded    Type = "FILE_UPLOADED"
	FileDownloaded  Type = "FILE_DOWNLOADED"
	FileDeleted     Type = "FILE_DELETED"
	FileOperation   Type = "FILE_OPERATION"
	FileBatchUpload Type = "FILE_BATCH_UPLOAD"

	RemoteSessionStart   Type = "REMOTE_SESSION_START"
	RemoteSessionEnd     Type = "REMOTE_SESSION_END"
	RemoteSessionFailed  Type = "REMOTE_SESSION_FAILED"
	RemoteSessionEvent   Type = "REMOTE_SESSION_EVENT"
	RemoteSessionStats   Type = "REMOTE_SESSION_STATS_UPDATED"
	RemoteRecordingReady Type = "REMOTE_RECORDING_COMPLETED"

	AlertTriggered         Type = "ALERT_TRIGGERED"
	AlertResolved          Type = "ALERT_RESOLVED"
	MonitoringCheckCreated Type = "MONITORING_CHECK_CREATED"
	MonitoringCheckFailed  Type = "MONITORING_CHECK_FAILED"

	SystemStartup    Type = "SYSTEM_STARTUP"
	SystemShutdown   Type = "SYSTEM_SHUTDOWN"
	SystemStart      Type = "SYSTEM_START"
	SystemMonitoring Type = "SYSTEM_MONITORING"
	SystemStatus     Type = "SYSTEM_STATUS"
	SystemError      Type = "SYSTEM_ERROR"

	Unknown Type = "UNKNOWN"
)

func info(category, description string, severity model.Severity) Info {
	return Info{Category: category, Description: description, Severity: severity}
}

var catalogue = map[Type]Info{
	Login:             info("Authentication", "User login event", model.SeverityInfo),
	Logout:            info("Authentication", "User logout event", model.SeverityInfo),
	LoginFailed:       info("Authentication", "Failed login attempt", model.SeverityWarning),
	PasswordChanged:   info("Authentication", "Password change event", model.SeverityInfo),
	SessionExpired:    info("Authentication", "Session expiration event", model.SeverityInfo),
	SessionCount:      info("Authentication", "Active session count updated", model.SeverityInfo),
	UserCreated:       info("User Management", "New user created", model.SeverityInfo),
	UserUpdated:       info("User Management", "User information updated", model.SeverityInfo),
	UserDeleted:       info("User Management", "User removed", model.SeverityInfo),
	UserRoleChanged:   info("User Management", "User role modified", model.SeverityInfo),
	UserTokenChanged:  info("User Management", "User login token changed", model.SeverityInfo),
	UserTokenAdded:    info("User Management", "User login token added", model.SeverityInfo),
	UserUICustomEvent: info("User Management", "User interface custom event", model.SeverityInfo),
	UserSessionEnded:  info("User Management", "User session ended", model.SeverityInfo),
	UserGroupCreated:  info("User Management", "User group created", model.SeverityInfo),
	UserGroupChanged:  info("User Management", "User group changed", model.SeverityInfo),
	UserGroupDeleted:  info("User Management", "User group removed", model.SeverityInfo),
	GroupCreated:      info("Device Management", "Device group created", model.SeverityInfo),
	GroupUpdated:      info("Device Management", "Device group updated", model.SeverityInfo),
	GroupDeleted:      info("Device Management", "Device group removed", model.SeverityInfo),

	DeviceOnline:          info("Device Management", "Device came online", model.SeverityInfo),
	DeviceOffline:         info("Device Management", "Device went offline", model.SeverityInfo),
	DeviceRegistered:      info("Device Management", "New device registration", model.SeverityInfo),
	DeviceUpdated:         info("Device Management", "Device information updated", model.SeverityInfo),
	DeviceDeleted:         info("Device Management", "Device removed", model.SeverityInfo),
	DeviceHeartbeat:       info("Device Management", "Device heartbeat", model.SeverityInfo),
	DeviceSessionsUpdated: info("Device Management", "Device sessions updated", model.SeverityInfo),
	DeviceSysinfoUpdated:  info("Device Management", "Device system information updated", model.SeverityInfo),
	DeviceOOBActivation:   info("Device Management", "Out-of-band activation requested", model.SeverityInfo),
	DeviceDiagnostic:      info("Device Management", "Device diagnostic", model.SeverityInfo),
	DeviceDiscovery:       info("Device Management", "Device discovery scan", model.SeverityInfo),

	ScriptExecuted: info("Automation", "Script executed", model.SeverityInfo),
	ScriptFailed:   info("Automation", "Script execution failed", model.SeverityError),
	ScriptCreated:  info("Automation", "New script created", model.SeverityInfo),
	ScriptUpdated:  info("Automation", "Script modified", model.SeverityInfo),

	PolicyApplied:   info("Policy Management", "Policy applied to device", model.SeverityInfo),
	PolicyViolation: info("Policy Management", "Policy violation detected", model.SeverityWarning),
	ComplianceCheck: info("Policy Management", "Compliance check performed", model.SeverityInfo),

	FileTransfer:    info("File Management", "File transfer event", model.SeverityInfo),
	FileUploaded:    info("File Management", "File uploaded", model.SeverityInfo),
	FileDownloaded:  info("File Management", "File downloaded", model.SeverityInfo),
	FileDeleted:     info("File Management", "File removed", model.SeverityInfo),
	FileOperation:   info("File Management", "Agent file operation", model.SeverityInfo),
	FileBatchUpload: info("File Management", "Batch file upload", model.SeverityInfo),

	RemoteSessionStart:   info("Remote Access", "Remote session started", model.SeverityInfo),
	RemoteSessionEnd:     info("Remote Access", "Remote session ended", model.SeverityInfo),
	RemoteSessionFailed:  info("Remote Access", "Remote session failed", model.SeverityInfo),
	RemoteSessionEvent:   info("Remote Access", "Remote session relay event", model.SeverityInfo),
	RemoteSessionStats:   info("Remote Access", "Remote session statistics updated", model.SeverityInfo),
	RemoteRecordingReady: info("Remote Access", "Remote session recording completed", model.SeverityInfo),

	AlertTriggered:         info("Monitoring", "Alert triggered", model.SeverityInfo),
	AlertResolved:          info("Monitoring", "Alert resolved", model.SeverityInfo),
	MonitoringCheckCreated: info("Monitoring", "New monitoring check", model.SeverityInfo),
	MonitoringCheckFailed:  info("Monitoring", "Monitoring check failed", model.SeverityError),

	SystemStartup:    info("System", "System startup", model.SeverityInfo),
	SystemShutdown:   info("System", "System shutdown", model.SeverityWarning),
	SystemStart:      info("System", "System started", model.SeverityInfo),
	SystemMonitoring: info("System", "System monitoring event", model.SeverityInfo),
	SystemStatus:     info("System", "System status update", model.SeverityInfo),
	SystemError:      info("System", "System error occurred", model.SeverityError),

	Unknown: info("Unknown", "Unknown event type", model.SeverityWarning),
}

// Lookup returns the catalogue entry for t. Unknown types describe as UNKNOWN.
func Lookup(t Type) Info {
	if i, ok := catalogue[t]; ok {
		return i
	}
	return catalogue[Unknown]
}

// Severity returns the severity of t.
func (t Type) Severity() model.Severity {
	return Lookup(t).Severity
}

// Category returns the category of t.
func (t Type) Category() string {
	return Lookup(t).Category
}

// Package messaging defines standard subject names for the OpenFrame event bus.
package messaging

import "strings"

// Subject constants for the OpenFrame event bus.
// Follow the pattern: {domain}.{source}.{resource}
const (
	// Inbound Debezium change events, one subject tree per tool database.
	SubjectCDCPrefix      = "cdc"
	SubjectCDCAll         = "cdc.>"
	SubjectCDCMeshCentral = "cdc.meshcentral.>"
	SubjectCDCTacticalRMM = "cdc.tactical_rmm.>"
	SubjectCDCFleet       = "cdc.fleet.>"
	SubjectCDCOpenFrame   = "cdc.openframe.>"

	// Outbound analytics events consumed by Pinot (event.{tool}.pinot).
	SubjectAnalyticsPrefix = "event"
	SubjectAnalyticsSuffix = "pinot"
	SubjectAnalyticsAll    = "event.*.pinot"

	// Denormalized machine snapshots consumed by the Pinot devices table.
	SubjectMachines = "machines.pinot"

	// Dead-lettered stream messages (stream.dlq.{reason}).
	SubjectDLQPrefix = "stream.dlq"
	SubjectDLQAll    = "stream.dlq.>"
)

// HeaderPartitionKey carries the ordering key of an analytics event.
const HeaderPartitionKey = "Partition-Key"

// AnalyticsSubject returns the analytics subject for a tool.
// Example: event.meshcentral.pinot
func AnalyticsSubject(tool string) string {
	return SubjectAnalyticsPrefix + "." + tool + "." + SubjectAnalyticsSuffix
}

// DLQSubject returns the dead-letter subject for a failure reason.
// Example: stream.dlq.decode
func DLQSubject(reason string) string {
	return SubjectDLQPrefix + "." + reason
}

// CDCSubject returns the inbound subject for a Debezium topic like
// "meshcentral.events" (Debezium's <db>.<collection> naming).
// Example: cdc.meshcentral.events
func CDCSubject(topic string) string {
	return SubjectCDCPrefix + "." + strings.Trim(topic, ".")
}

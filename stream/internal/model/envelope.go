package model

import "time"

// Operation is the kind of change a CDC envelope describes.
type Operation string

const (
	OperationCreate   Operation = "CREATE"
	OperationUpdate   Operation = "UPDATE"
	OperationDelete   Operation = "DELETE"
	OperationSnapshot Operation = "SNAPSHOT"
)

// ParseOperation maps a Debezium op code to an Operation.
func ParseOperation(code string) (Operation, bool) {
	switch code {
	case "c":
		return OperationCreate, true
	case "u":
		return OperationUpdate, true
	case "d":
		return OperationDelete, true
	case "r":
		return OperationSnapshot, true
	default:
		return "", false
	}
}

// Document is a decoded before/after image of a row or document.
// Numbers are held as json.Number.
type Document map[string]any

// CdcEnvelope is the typed form of one Debezium change event.
// It is created once per inbound message and never mutated.
type CdcEnvelope struct {
	SourceDatabase  string    `json:"source_database"`
	Connector       string    `json:"connector,omitempty"`
	Table           string    `json:"table"`
	Operation       Operation `json:"operation"`
	Before          Document  `json:"before,omitempty"`
	After           Document  `json:"after,omitempty"`
	SourceTimestamp time.Time `json:"source_timestamp"`
}

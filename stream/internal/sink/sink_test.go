package sink

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

func testRecord() *model.UnifiedLogRecord {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.UnifiedLogRecord{
		IngestDay:        "2025-03-01",
		ToolType:         model.ToolMeshCentral,
		EventType:        "login",
		EventTimestamp:   ts,
		ToolEventID:      "9b2d4a4e-0000-5000-8000-000000000001",
		UnifiedEventType: "LOGIN",
		UserID:           "user//admin",
		DeviceID:         "M100",
		Severity:         model.SeverityInfo,
		Message:          "user logged in",
		Details:          map[string]string{"nodeid": "A1"},
	}
}

func testAnalytics() *model.AnalyticsMessage {
	return &model.AnalyticsMessage{
		EventType:        "login",
		UnifiedEventType: "LOGIN",
		Severity:         model.SeverityInfo,
		Timestamp:        1740830400000,
		ToolName:         "meshcentral",
		MachineID:        "M100",
		ToolEventID:      "9b2d4a4e-0000-5000-8000-000000000001",
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "retryable", err: Retryable(model.DestinationLogStore, errors.New("timeout")), want: true},
		{name: "fatal", err: Fatal(model.DestinationLogStore, errors.New("syntax")), want: false},
		{name: "wrapped fatal", err: fmt.Errorf("push: %w", Fatal(model.DestinationSearch, errors.New("400"))), want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "deadline inside fatal", err: Fatal(model.DestinationAnalytics, context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "unclassified", err: errors.New("boom"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestSinkError_Message(t *testing.T) {
	err := Fatal(model.DestinationAnalytics, errors.New("too big"))
	assert.Equal(t, "analytics sink fatal: too big", err.Error())

	var se *SinkError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, KindFatal, se.Kind)
	assert.Equal(t, "unknown", Kind(0).String())
}

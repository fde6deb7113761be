package messaging

import (
	"context"
	"time"
)

// Connection reports whether a broker connection is up.
type Connection interface {
	IsConnected() bool
}

// HealthChecker can check the health of a messaging connection.
type HealthChecker interface {
	// CheckHealth returns nil if the connection is healthy, error otherwise.
	CheckHealth(ctx context.Context) error
}

// HealthStatus represents the health state of a messaging connection.
type HealthStatus struct {
	Connected bool          `json:"connected"`
	Latency   time.Duration `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
}

// Healthy reports whether the status describes a usable connection.
func (s HealthStatus) Healthy() bool {
	return s.Connected && s.Error == ""
}

// CheckClientHealth checks if a connection is healthy by verifying it is up.
// When the client also implements HealthChecker its check result is used too.
func CheckClientHealth(ctx context.Context, client Connection) HealthStatus {
	status := HealthStatus{}

	if client == nil {
		status.Error = "client is nil"
		return status
	}

	status.Connected = client.IsConnected()
	if !status.Connected {
		status.Error = "not connected to message broker"
		return status
	}

	if checker, ok := client.(HealthChecker); ok {
		start := time.Now()
		err := checker.CheckHealth(ctx)
		status.Latency = time.Since(start)
		if err != nil {
			status.Error = "health check failed: " + err.Error()
		}
	}

	return status
}

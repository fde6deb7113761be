package messaging

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	connected bool
	checkErr  error
}

func (f *fakeClient) IsConnected() bool { return f.connected }

type checkingClient struct {
	fakeClient
}

func (p *checkingClient) CheckHealth(context.Context) error { return p.checkErr }

func TestCheckClientHealth(t *testing.T) {
	tests := []struct {
		name    string
		client  Connection
		healthy bool
	}{
		{"nil client", nil, false},
		{"disconnected", &fakeClient{connected: false}, false},
		{"connected without check", &fakeClient{connected: true}, true},
		{"check passes", &checkingClient{fakeClient{connected: true}}, true},
		{"check fails", &checkingClient{fakeClient{connected: true, checkErr: errors.New("no jetstream")}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := CheckClientHealth(context.Background(), tt.client)
			if status.Healthy() != tt.healthy {
				t.Errorf("Healthy() = %v, want %v (status %+v)", status.Healthy(), tt.healthy, status)
			}
		})
	}
}

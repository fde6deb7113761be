package model

import "time"

// DeliveryStatus is the result of one route for one message.
type DeliveryStatus string

const (
	StatusDelivered       DeliveryStatus = "delivered"
	StatusTransformFailed DeliveryStatus = "transform_failed"
	StatusSinkFailed      DeliveryStatus = "sink_failed"
	// StatusSkipped marks a route with nothing to deliver, such as a delete
	// the destination does not mirror.
	StatusSkipped DeliveryStatus = "skipped"
)

// Destination names a sink kind.
type Destination string

const (
	DestinationLogStore  Destination = "logstore"
	DestinationAnalytics Destination = "analytics"
	DestinationSearch    Destination = "search"
	DestinationInventory Destination = "inventory"
)

// DeliveryOutcome records what happened to one (transformer, sink) route.
type DeliveryOutcome struct {
	Route       string         `json:"route"`
	Destination Destination    `json:"destination"`
	Status      DeliveryStatus `json:"status"`
	Err         error          `json:"-"`
	Retryable   bool           `json:"retryable,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// Failed reports whether the route did not deliver. Skipped routes have not failed.
func (o DeliveryOutcome) Failed() bool {
	return o.Status != StatusDelivered && o.Status != StatusSkipped
}

// Outcomes summarises a dispatch.
type Outcomes []DeliveryOutcome

// Retryable reports whether any sink failed with a retryable error.
func (oo Outcomes) Retryable() bool {
	for _, o := range oo {
		if o.Status == StatusSinkFailed && o.Retryable {
			return true
		}
	}
	return false
}

// Fatal reports whether any sink failed with a non-retryable error.
func (oo Outcomes) Fatal() bool {
	for _, o := range oo {
		if o.Status == StatusSinkFailed && !o.Retryable {
			return true
		}
	}
	return false
}

// FirstError returns the first sink error, preferring the given retryability.
func (oo Outcomes) FirstError(retryable bool) error {
	for _, o := range oo {
		if o.Status == StatusSinkFailed && o.Retryable == retryable {
			return o.Err
		}
	}
	return nil
}

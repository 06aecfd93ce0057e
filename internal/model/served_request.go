package model

import "time"

// ServedRequest is one request the service answered.  It corresponds to a
// row in the `served_requests` table and is written by the event consumer,
// never by the request path itself.
type ServedRequest struct {
	ID        uint64    // served_requests.id
	RequestID string    // served_requests.request_id (X-Request-Id)
	Method    string    // served_requests.method
	Route     string    // served_requests.route (matched pattern, e.g. /api/v1/greet)
	URI       string    // served_requests.uri (path plus query)
	Status    int       // served_requests.status
	LatencyMs int64     // served_requests.latency_ms
	RemoteIP  string    // served_requests.remote_ip
	ServedAt  time.Time // served_requests.served_at
}

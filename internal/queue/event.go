// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/jenkins-cicd-demo/internal/model"
)

// RequestServedEvent is published after the service answers a request.  It
// carries everything the consumer stores so it never has to call back into
// the service.
type RequestServedEvent struct {
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Route     string `json:"route"`
	URI       string `json:"uri"`
	Status    int    `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	RemoteIP  string `json:"remote_ip"`
	ServedAt  string `json:"served_at"` // RFC 3339, UTC
}

// ServedRequest converts the event into its storage form.  An unparsable
// ServedAt falls back to now.
func (ev RequestServedEvent) ServedRequest(now time.Time) model.ServedRequest {
	at, err := time.Parse(time.RFC3339Nano, ev.ServedAt)
	if err != nil {
		at = now
	}
	return model.ServedRequest{
		RequestID: ev.RequestID,
		Method:    ev.Method,
		Route:     ev.Route,
		URI:       ev.URI,
		Status:    ev.Status,
		LatencyMs: ev.LatencyMs,
		RemoteIP:  ev.RemoteIP,
		ServedAt:  at.UTC(),
	}
}

package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/jenkins-cicd-demo/internal/model"
)

// RequestLogRepo persists served requests into the served_requests table.
type RequestLogRepo struct{ DB *sql.DB }

func NewRequestLogRepo(db *sql.DB) *RequestLogRepo { return &RequestLogRepo{DB: db} }

// Store inserts one served request row.
func (r *RequestLogRepo) Store(ctx context.Context, s model.ServedRequest) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO served_requests (request_id, method, route, uri, status, latency_ms, remote_ip, served_at) VALUES (?,?,?,?,?,?,?,?)",
		s.RequestID, s.Method, s.Route, s.URI, s.Status, s.LatencyMs, s.RemoteIP, s.ServedAt)
	return err
}

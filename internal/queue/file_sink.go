package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iliyamo/jenkins-cicd-demo/internal/model"
)

// FileSink appends one human-readable line per served request.  It is the
// consumer's sink when no database is configured.
type FileSink struct {
	path string
	mu   sync.Mutex
}

func NewFileSink(path string) *FileSink { return &FileSink{path: path} }

func (s *FileSink) Store(_ context.Context, r model.ServedRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s %s | route=%s | status=%d | latency=%dms | ip=%s | request_id=%s\n",
		r.ServedAt.Format(time.RFC3339), r.Method, r.URI, r.Route, r.Status, r.LatencyMs, r.RemoteIP, r.RequestID)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	gommonlog "github.com/labstack/gommon/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected gommonlog.Lvl
	}{
		{"debug", gommonlog.DEBUG},
		{"INFO", gommonlog.INFO},
		{"warn", gommonlog.WARN},
		{"error", gommonlog.ERROR},
		{"off", gommonlog.OFF},
		{"", gommonlog.INFO},
		{"verbose", gommonlog.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.expected)
			}
		})
	}
}

func TestWorkersWait(t *testing.T) {
	var w workers
	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Int32
	for i := 0; i < 3; i++ {
		w.Go(func() {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			stopped.Add(1)
		})
	}

	cancel()
	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
	if got := stopped.Load(); got != 3 {
		t.Errorf("stopped workers = %d, want 3", got)
	}
}

func TestWorkersWaitTimeout(t *testing.T) {
	var w workers
	release := make(chan struct{})
	defer close(release)
	w.Go(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want %v", err, context.DeadlineExceeded)
	}
}

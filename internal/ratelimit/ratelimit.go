package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultLimit  = 100
	DefaultWindow = 900000 * time.Millisecond
)

// ErrRateLimitExceeded is returned by callers when Admit refuses a request.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Limiter decides whether a user's request may proceed. It is a soft guard,
// not a security boundary.
type Limiter interface {
	Admit(ctx context.Context, userID string) bool
}

type record struct {
	count       int
	windowStart time.Time
}

// Memory is a per-user fixed-window counter held in process memory.
type Memory struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	records map[string]*record
}

// NewMemory builds an in-process limiter admitting limit requests per window.
func NewMemory(limit int, window time.Duration) *Memory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Memory{
		limit:   limit,
		window:  window,
		now:     time.Now,
		records: make(map[string]*record),
	}
}

// Admit counts the request against userID's window. A rejected request does
// not increment the counter.
func (m *Memory) Admit(_ context.Context, userID string) bool {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[userID]
	if !ok || now.Sub(rec.windowStart) > m.window {
		m.records[userID] = &record{count: 1, windowStart: now}
		return true
	}
	if rec.count >= m.limit {
		return false
	}
	rec.count++
	return true
}

// Reset forgets every record.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.records = make(map[string]*record)
	m.mu.Unlock()
}

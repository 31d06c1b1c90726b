package admission

import (
	"context"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// Limiter decides whether a tenant may issue one more request. Implementations
// must perform the reset-check-increment of one tenant as a single atomic step.
type Limiter interface {
	Allow(ctx context.Context, tenantID string, perMinute, perHour int) (bool, error)
}

type tenantWindow struct {
	mu    sync.Mutex
	state model.TenantRateLimit
}

// MemoryLimiter keeps fixed-window counters in process memory, one lock per tenant.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*tenantWindow
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*tenantWindow),
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) window(tenantID string) *tenantWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[tenantID]
	if !ok {
		w = &tenantWindow{state: model.TenantRateLimit{TenantID: tenantID}}
		l.windows[tenantID] = w
	}
	return w
}

func (l *MemoryLimiter) Allow(_ context.Context, tenantID string, perMinute, perHour int) (bool, error) {
	w := l.window(tenantID)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	st := &w.state
	if now.Sub(st.LastResetMinute) >= minuteWindow {
		st.RequestsPerMinute = 0
		st.LastResetMinute = now
	}
	if now.Sub(st.LastResetHour) >= hourWindow {
		st.RequestsPerHour = 0
		st.LastResetHour = now
	}

	if st.RequestsPerMinute >= perMinute || st.RequestsPerHour >= perHour {
		return false, nil
	}
	st.RequestsPerMinute++
	st.RequestsPerHour++
	return true, nil
}

// Snapshot returns a copy of the tenant's counters.
func (l *MemoryLimiter) Snapshot(tenantID string) (model.TenantRateLimit, bool) {
	l.mu.Lock()
	w, ok := l.windows[tenantID]
	l.mu.Unlock()
	if !ok {
		return model.TenantRateLimit{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, true
}

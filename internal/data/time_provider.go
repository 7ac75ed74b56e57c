package data

import (
	"sync"
	"time"
)

// TimeProvider is the clock repositories use for created_at, updated_at and
// claim deadlines. Times are UTC.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

func (*RealTimeProvider) Now() time.Time { return time.Now().UTC() }

// FixedTimeProvider is a clock that only moves when told to.
type FixedTimeProvider struct {
	mu  sync.RWMutex
	now time.Time
}

func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{now: t.UTC()}
}

func (f *FixedTimeProvider) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.UTC()
}

// AddTime advances the clock by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func timeProviderOrReal(tp TimeProvider) TimeProvider {
	if tp != nil {
		return tp
	}
	return &RealTimeProvider{}
}

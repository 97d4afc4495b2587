package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KoduruNani/Flipkart-2/apierr"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNew_Defaults(t *testing.T) {
	l := New(0, 0)
	if l.Limit() != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, l.Limit())
	}
	if l.Interval() != DefaultInterval {
		t.Errorf("expected interval %v, got %v", DefaultInterval, l.Interval())
	}
}

func TestCheckLimit_AdmitsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	l := New(3, time.Second, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		if err := l.CheckLimit(); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}

	err := l.CheckLimit()
	if !errors.Is(err, apierr.ErrRateLimited) {
		t.Fatalf("expected rate limit error on call 4, got %v", err)
	}
	if l.Len() != 3 {
		t.Errorf("rejected call must not be recorded, window len = %d", l.Len())
	}
}

func TestCheckLimit_WindowResetsAfterInterval(t *testing.T) {
	clock := newFakeClock()
	l := New(2, time.Second, WithClock(clock.Now))

	_ = l.CheckLimit()
	_ = l.CheckLimit()
	if err := l.CheckLimit(); err == nil {
		t.Fatal("expected window to be full")
	}

	clock.Advance(999 * time.Millisecond)
	if err := l.CheckLimit(); err == nil {
		t.Fatal("window should still be full just before the interval elapses")
	}

	clock.Advance(time.Millisecond)
	if err := l.CheckLimit(); err != nil {
		t.Fatalf("expected admission once the interval elapsed, got %v", err)
	}
}

func TestCheckLimit_SlidingNotFixed(t *testing.T) {
	clock := newFakeClock()
	l := New(2, time.Second, WithClock(clock.Now))

	_ = l.CheckLimit() // t=0
	clock.Advance(600 * time.Millisecond)
	_ = l.CheckLimit() // t=600ms

	clock.Advance(500 * time.Millisecond) // t=1100ms, first expired
	if err := l.CheckLimit(); err != nil {
		t.Fatalf("expected one slot after first timestamp expired: %v", err)
	}
	if err := l.CheckLimit(); err == nil {
		t.Fatal("expected rejection: t=600ms and t=1100ms still in window")
	}
}

func TestCheckLimit_SameInstantCountsTwice(t *testing.T) {
	clock := newFakeClock()
	l := New(2, time.Second, WithClock(clock.Now))

	_ = l.CheckLimit()
	_ = l.CheckLimit()
	if l.Len() != 2 {
		t.Fatalf("identical timestamps must both be counted, got %d", l.Len())
	}
}

func TestLen_PrunesLazily(t *testing.T) {
	clock := newFakeClock()
	l := New(100, time.Second, WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		_ = l.CheckLimit()
		clock.Advance(200 * time.Millisecond)
	}
	// At t=2.0s only t=1.2s..1.8s are younger than one second.
	if got := l.Len(); got != 4 {
		t.Errorf("expected 4 live timestamps, got %d", got)
	}
}

func TestCheckLimit_Concurrent(t *testing.T) {
	l := New(25, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.CheckLimit() == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 25 {
		t.Errorf("expected exactly 25 admissions, got %d", admitted)
	}
}

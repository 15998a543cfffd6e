package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAdmit_FixedWindow(t *testing.T) {
	t.Parallel()

	l := New(10, time.Second)
	start := time.Now()

	// First 10 requests within the window are admitted.
	for i := 0; i < 10; i++ {
		if !l.Admit("1.2.3.4", start.Add(time.Duration(i)*50*time.Millisecond)) {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}

	// The 11th in the same window is denied.
	if l.Admit("1.2.3.4", start.Add(600*time.Millisecond)) {
		t.Error("11th request in the window should be denied")
	}

	// 1.1s after the window opened, the counter resets.
	if !l.Admit("1.2.3.4", start.Add(1100*time.Millisecond)) {
		t.Error("request after window reset should be admitted")
	}
}

func TestAdmit_IdentitiesAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(10, time.Second)
	now := time.Now()

	for i := 0; i < 11; i++ {
		l.Admit("blocked-ip", now)
	}

	if l.Admit("blocked-ip", now) {
		t.Error("exhausted identity should stay denied")
	}
	if !l.Admit("other-ip", now) {
		t.Error("a different identity should be unaffected")
	}
}

func TestAdmit_DenialKeepsCounting(t *testing.T) {
	t.Parallel()

	l := New(2, time.Second)
	now := time.Now()

	l.Admit("ip", now)
	l.Admit("ip", now)

	// Denied requests still count; the window does not extend, but
	// requests inside it never free up slots.
	for i := 0; i < 5; i++ {
		if l.Admit("ip", now.Add(time.Duration(i)*10*time.Millisecond)) {
			t.Fatal("request over the limit should be denied")
		}
	}
}

func TestAdmit_Defaults(t *testing.T) {
	t.Parallel()

	l := New(0, 0)
	now := time.Now()

	admitted := 0
	for i := 0; i < 15; i++ {
		if l.Admit("ip", now) {
			admitted++
		}
	}
	if admitted != DefaultLimit {
		t.Errorf("expected %d admitted with defaults, got %d", DefaultLimit, admitted)
	}
}

func TestAdmit_Concurrent(t *testing.T) {
	t.Parallel()

	l := New(100, time.Second)
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("shared-ip", now) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 100 {
		t.Errorf("expected exactly 100 admitted under contention, got %d", admitted)
	}
}

func TestSweepStale(t *testing.T) {
	t.Parallel()

	l := New(10, time.Second)
	now := time.Now()

	for i := 0; i < 50; i++ {
		l.Admit(fmt.Sprintf("ip-%d", i), now)
	}
	if l.Tracked() != 50 {
		t.Fatalf("expected 50 tracked identities, got %d", l.Tracked())
	}

	// Nothing is stale yet.
	if removed := l.SweepStale(now, 5*time.Minute); removed != 0 {
		t.Errorf("expected no evictions, got %d", removed)
	}

	// Well past the stale horizon everything is evicted.
	removed := l.SweepStale(now.Add(10*time.Minute), 5*time.Minute)
	if removed != 50 {
		t.Errorf("expected 50 evictions, got %d", removed)
	}
	if l.Tracked() != 0 {
		t.Errorf("expected 0 tracked after sweep, got %d", l.Tracked())
	}
}

func TestSweepStale_KeepsActive(t *testing.T) {
	t.Parallel()

	l := New(10, time.Second)
	now := time.Now()

	l.Admit("old-ip", now)
	l.Admit("fresh-ip", now.Add(9*time.Minute))

	removed := l.SweepStale(now.Add(10*time.Minute), 5*time.Minute)
	if removed != 1 {
		t.Fatalf("expected 1 eviction, got %d", removed)
	}

	// The fresh identity keeps its window state.
	if l.Tracked() != 1 {
		t.Errorf("expected 1 tracked identity, got %d", l.Tracked())
	}
}

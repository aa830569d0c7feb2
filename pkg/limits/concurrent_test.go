package limits

import (
	"sync"
	"sync/atomic"
	"testing"
)

// TestConcurrentLimiter tests slot accounting.
func TestConcurrentLimiter(t *testing.T) {
	cl := NewConcurrentLimiter(2)

	if !cl.Acquire() || !cl.Acquire() {
		t.Fatal("first two Acquire() calls must succeed")
	}
	if cl.Acquire() {
		t.Error("third Acquire() must fail")
	}
	if cl.Current() != 2 {
		t.Errorf("Current() = %d, want 2", cl.Current())
	}

	cl.Release()
	if !cl.Acquire() {
		t.Error("Acquire() after Release() must succeed")
	}
	if cl.Limit() != 2 {
		t.Errorf("Limit() = %d, want 2", cl.Limit())
	}
}

// TestConcurrentLimiter_Unlimited tests the nil limiter.
func TestConcurrentLimiter_Unlimited(t *testing.T) {
	for _, limit := range []int{0, -1} {
		cl := NewConcurrentLimiter(limit)
		if cl != nil {
			t.Fatalf("NewConcurrentLimiter(%d) = %v, want nil", limit, cl)
		}
		for i := 0; i < 100; i++ {
			if !cl.Acquire() {
				t.Fatal("nil limiter rejected work")
			}
		}
		cl.Release()
		if cl.Current() != 0 || cl.Limit() != 0 {
			t.Errorf("nil limiter Current() = %d, Limit() = %d", cl.Current(), cl.Limit())
		}
	}
}

// TestConcurrentLimiter_Parallel tests that the limit holds under
// contention.
func TestConcurrentLimiter_Parallel(t *testing.T) {
	cl := NewConcurrentLimiter(5)

	var (
		wg       sync.WaitGroup
		admitted atomic.Int64
		start    = make(chan struct{})
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if cl.Acquire() {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if admitted.Load() != 5 {
		t.Errorf("admitted %d, want 5", admitted.Load())
	}
}

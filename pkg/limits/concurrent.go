// Package limits bounds concurrent work.
package limits

import "sync/atomic"

// ConcurrentLimiter limits the number of simultaneous in-flight
// operations. It is a lock-free counting semaphore: Acquire never blocks.
//
//	if !limiter.Acquire() {
//	    // reject
//	}
//	defer limiter.Release()
type ConcurrentLimiter struct {
	limit   int64
	current atomic.Int64
}

// NewConcurrentLimiter creates a limiter allowing limit simultaneous
// operations. A limit below one disables limiting; nil is returned and
// every method of a nil limiter admits all work.
func NewConcurrentLimiter(limit int) *ConcurrentLimiter {
	if limit < 1 {
		return nil
	}
	return &ConcurrentLimiter{limit: int64(limit)}
}

// Acquire takes a slot and reports whether one was free. A successful
// Acquire must be paired with Release.
func (cl *ConcurrentLimiter) Acquire() bool {
	if cl == nil {
		return true
	}
	if cl.current.Add(1) > cl.limit {
		cl.current.Add(-1)
		return false
	}
	return true
}

// Release returns a slot taken by Acquire.
func (cl *ConcurrentLimiter) Release() {
	if cl == nil {
		return
	}
	cl.current.Add(-1)
}

// Current returns the number of slots in use.
func (cl *ConcurrentLimiter) Current() int64 {
	if cl == nil {
		return 0
	}
	return cl.current.Load()
}

// Limit returns the configured limit, zero when unlimited.
func (cl *ConcurrentLimiter) Limit() int64 {
	if cl == nil {
		return 0
	}
	return cl.limit
}

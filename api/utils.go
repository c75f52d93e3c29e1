package api

import (
	"sync/atomic"
	"time"
)

var (
	lastUnixMilli int64
)

// nextNow returns the current time nudged forward so that two calls in
// the same millisecond never mint the same card id.
func nextNow() time.Time {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastUnixMilli)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastUnixMilli, last, now) {
			return time.UnixMilli(now)
		}
	}
}

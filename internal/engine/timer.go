package engine

import (
	"sync"
	"time"
)

// Timer is the countdown clock for a timed attempt. It decrements once per
// interval, reports each new remaining value, and raises exactly one expiry
// when the count reaches zero, after which it stops ticking on its own.
// Stop must be called when the session leaves the active phase through any
// other path so a stray expiry cannot fire after the session ended.
type Timer struct {
	stopOnce sync.Once
	stop     chan struct{}
}

// NewTimer starts the countdown at seconds and runs until expiry or Stop.
// Callbacks run on the timer's goroutine.
func NewTimer(seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) *Timer {
	t := &Timer{stop: make(chan struct{})}
	go t.run(seconds, interval, onTick, onExpire)
	return t
}

func (t *Timer) run(seconds int, interval time.Duration, onTick func(remaining int), onExpire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining--
			if remaining < 0 {
				remaining = 0
			}
			onTick(remaining)
			if remaining == 0 {
				select {
				case <-t.stop:
				default:
					onExpire()
				}
				return
			}
		}
	}
}

// Stop cancels the countdown. Safe to call multiple times and after expiry.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

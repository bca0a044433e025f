package common

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// TimeoutErr is returned by WaitTimeout when the deadline elapses before a
// Broadcast or Signal arrives.
var TimeoutErr = errors.New("timeout")

// TimeoutCond is a condition variable with a timed wait, used by the
// bootstrap service's workers to sleep on back-pressure, channel and
// account availability, and the stop signal without missing a wakeup that
// races the timer. Unlike sync.Cond, Broadcast/Signal callers need not hold
// L first: the pending-notification counter and the channel swap in
// Broadcast make a notification that arrives between a waiter's Wait call
// and its select visible regardless of ordering.
type TimeoutCond struct {
	notifyNum uint32
	L         sync.Locker
	signal    chan uint8
}

func NewTimeoutCond() *TimeoutCond {
	mutex := &sync.Mutex{}
	return &TimeoutCond{L: mutex, signal: make(chan uint8)}
}

func (self *TimeoutCond) Wait() {
	old := atomic.SwapUint32(&self.notifyNum, 0)
	if old > 0 {
		return
	}
	ch := self.signal
	select {
	case <-ch:
		return
	}
}

func (self *TimeoutCond) WaitTimeout(t time.Duration) error {
	old := atomic.SwapUint32(&self.notifyNum, 0)
	if old > 0 {
		return nil
	}
	ch := self.signal
	select {
	case <-ch:
		return nil
	case <-time.After(t):
		return TimeoutErr
	}
}

func (self *TimeoutCond) Broadcast() {
	atomic.AddUint32(&self.notifyNum, 1)
	self.L.Lock()
	defer self.L.Unlock()
	old := self.signal
	self.signal = make(chan uint8)
	close(old)
}
func (self *TimeoutCond) Signal() {
	atomic.AddUint32(&self.notifyNum, 1)
	self.L.Lock()
	defer self.L.Unlock()
	select {
	case self.signal <- uint8(1):
	default:
	}
}

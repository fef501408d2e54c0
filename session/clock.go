package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Ticker is the tick source behind a Clock.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

// Clock counts whole seconds of interview time.
type Clock struct {
	period    time.Duration
	newTicker func(time.Duration) Ticker
	onTick    func(elapsed int)

	elapsed  atomic.Int64
	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewClock returns a stopped clock. newTicker may be nil for a real
// ticker; onTick may be nil.
func NewClock(period time.Duration, newTicker func(time.Duration) Ticker, onTick func(elapsed int)) *Clock {
	if period <= 0 {
		period = time.Second
	}
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	return &Clock{
		period:    period,
		newTicker: newTicker,
		onTick:    onTick,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start is a no-op on a clock that was already started or stopped.
func (c *Clock) Start() {
	select {
	case <-c.stop:
		return
	default:
	}
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	t := c.newTicker(c.period)
	go func() {
		defer close(c.done)
		defer t.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-t.C():
				// a tick racing Stop is dropped
				select {
				case <-c.stop:
					return
				default:
				}
				n := int(c.elapsed.Add(1))
				if c.onTick != nil {
					c.onTick(n)
				}
			}
		}
	}()
}

// Stop halts the clock and waits for the tick goroutine. Later calls
// return immediately.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.started.Load() {
			<-c.done
		}
	})
}

func (c *Clock) Elapsed() int { return int(c.elapsed.Load()) }

// FormatElapsed renders seconds as MM:SS.
func FormatElapsed(sec int) string {
	sec = max(sec, 0)
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

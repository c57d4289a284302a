package timeval

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() Value
}

// SystemClock reads the wall clock as of process start, advanced by the
// monotonic clock so readings never go backwards.
type SystemClock struct{}

var epoch = time.Now()

// Now implements Clock.
func (SystemClock) Now() Value {
	return FromTime(epoch.Add(time.Since(epoch)))
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	now Value
}

// NewManualClock returns a ManualClock positioned at start.
func NewManualClock(start Value) *ManualClock {
	return &ManualClock{now: start.Normalize()}
}

// Now implements Clock.
func (c *ManualClock) Now() Value {
	return c.now
}

// Set moves the clock to v.
func (c *ManualClock) Set(v Value) {
	c.now = v.Normalize()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(FromDuration(d))
}

// MillisecondsSince returns how many whole milliseconds ago past happened,
// or -1 if past is the zero sentinel.
func MillisecondsSince(c Clock, past Value) int64 {
	if past.IsZero() {
		return -1
	}
	return c.Now().Sub(past).Milliseconds()
}

// SecondsSince returns MillisecondsSince divided by 1000.
func SecondsSince(c Clock, past Value) int64 {
	return MillisecondsSince(c, past) / MsecPerSec
}

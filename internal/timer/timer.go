// Package timer measures wall-clock and CPU time over a transfer.
package timer

import (
	"github.com/verte-zerg/ttcp/internal/timeval"
)

// CPUUsage is the user and system CPU time consumed by the process.
type CPUUsage struct {
	User   timeval.Value
	System timeval.Value
}

// Total returns user + system time.
func (u CPUUsage) Total() timeval.Value {
	return u.User.Add(u.System)
}

// UsageFunc reports the CPU time consumed so far.
type UsageFunc func() (CPUUsage, error)

// Reading is the outcome of Timer.Read.
type Reading struct {
	Real   timeval.Value
	User   timeval.Value
	System timeval.Value
}

// RealSeconds returns wall-clock seconds, floored to 0.001.
func (r Reading) RealSeconds() float64 {
	return floor(r.Real.Seconds(), 0.001)
}

// CPU returns the user and system time of the reading.
func (r Reading) CPU() CPUUsage {
	return CPUUsage{User: r.User, System: r.System}
}

// CPUSeconds returns user+system seconds, floored to 0.001.
func (r Reading) CPUSeconds() float64 {
	return floor(r.CPU().Total().Seconds(), 0.001)
}

// CPUPercent returns CPU time as a percentage of real time.
func (r Reading) CPUPercent() int {
	realMs := r.Real.Milliseconds() / 10
	if realMs == 0 {
		realMs = 1
	}
	cpu := r.CPU().Total().Milliseconds() / 10
	return int(cpu * 100 / realMs)
}

func floor(v, minVal float64) float64 {
	if v < minVal {
		return minVal
	}
	return v
}

// Timer marks a starting point and reports elapsed real and CPU time.
type Timer struct {
	clock timeval.Clock
	usage UsageFunc
	start timeval.Value
	cpu0  CPUUsage
}

// Start creates a Timer marked at the current time. A nil usage function
// uses the process resource usage.
func Start(clock timeval.Clock, usage UsageFunc) *Timer {
	if clock == nil {
		clock = timeval.SystemClock{}
	}
	if usage == nil {
		usage = ProcessUsage
	}
	t := &Timer{clock: clock, usage: usage}
	t.Restart()
	return t
}

// Restart moves the starting mark to now.
func (t *Timer) Restart() {
	t.start = t.clock.Now()
	cpu, err := t.usage()
	if err != nil {
		cpu = CPUUsage{}
	}
	t.cpu0 = cpu
}

// Read returns the time elapsed since the starting mark.
func (t *Timer) Read() Reading {
	cpu, err := t.usage()
	if err != nil {
		cpu = t.cpu0
	}
	now := t.clock.Now()
	return Reading{
		Real:   now.Sub(t.start),
		User:   sinceOrZero(cpu.User, t.cpu0.User),
		System: sinceOrZero(cpu.System, t.cpu0.System),
	}
}

// sinceOrZero guards against usage counters that were sampled with a
// coarser resolution than the start mark.
func sinceOrZero(now, start timeval.Value) timeval.Value {
	if now.Before(start) {
		return timeval.Zero
	}
	return now.Sub(start)
}

// Package timeval provides normalized (seconds, microseconds) time values.
package timeval

import (
	"fmt"
	"time"
)

const (
	// UsecPerSec is the number of microseconds in a second.
	UsecPerSec = 1000000
	// MsecPerSec is the number of milliseconds in a second.
	MsecPerSec = 1000
)

// Value is a point in time or a duration split into seconds and microseconds.
// A normalized Value has Usec in [0, UsecPerSec). The zero Value means "unset".
type Value struct {
	Sec  int64
	Usec int64
}

// Zero is the "never happened" sentinel.
var Zero = Value{}

// InvariantError describes a violated clock invariant. It is only ever raised
// through panic.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("timeval: %s: %s", e.Op, e.Msg)
}

func invariant(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// New builds a Value from seconds and milliseconds, carrying excess
// milliseconds into seconds. Seconds beyond the int64 range panic.
func New(sec, msec uint64) Value {
	if msec >= MsecPerSec {
		sec += msec / MsecPerSec
		msec %= MsecPerSec
	}
	return Value{Sec: int64(sec), Usec: int64(msec) * 1000}.Normalize()
}

// FromTime converts a wall-clock reading.
func FromTime(t time.Time) Value {
	return Value{Sec: t.Unix(), Usec: int64(t.Nanosecond() / 1000)}
}

// FromDuration converts a non-negative duration.
func FromDuration(d time.Duration) Value {
	if d < 0 {
		invariant("from duration", "negative duration %s", d)
	}
	us := d.Microseconds()
	return Value{Sec: us / UsecPerSec, Usec: us % UsecPerSec}
}

// IsZero reports whether v is the unset sentinel.
func (v Value) IsZero() bool {
	return v.Sec == 0 && v.Usec == 0
}

// Normalize carries whole seconds out of Usec. A negative field panics.
func (v Value) Normalize() Value {
	if v.Sec < 0 || v.Usec < 0 {
		invariant("normalize", "called on (%d,%d)", v.Sec, v.Usec)
	}
	if v.Usec >= UsecPerSec {
		v.Sec += v.Usec / UsecPerSec
		v.Usec %= UsecPerSec
	}
	return v
}

// Add returns v + o, normalized.
func (v Value) Add(o Value) Value {
	return Value{Sec: v.Sec + o.Sec, Usec: v.Usec + o.Usec}.Normalize()
}

// Sub returns v - o. It panics if v is earlier than o.
func (v Value) Sub(o Value) Value {
	lhs := v.Normalize()
	rhs := o.Normalize()
	if lhs.Cmp(rhs) < 0 {
		invariant("sub", "sub(%s,%s) bad timestamp order", lhs, rhs)
	}
	if lhs.Usec >= rhs.Usec {
		lhs.Usec -= rhs.Usec
	} else {
		lhs.Usec += UsecPerSec - rhs.Usec
		lhs.Sec--
	}
	lhs.Sec -= rhs.Sec
	return lhs
}

// Cmp returns 1 if v > o, 0 if equal and -1 if v < o.
func (v Value) Cmp(o Value) int {
	lhs := v.Normalize()
	rhs := o.Normalize()
	switch {
	case lhs.Sec > rhs.Sec:
		return 1
	case lhs.Sec < rhs.Sec:
		return -1
	case lhs.Usec > rhs.Usec:
		return 1
	case lhs.Usec < rhs.Usec:
		return -1
	default:
		return 0
	}
}

// Before reports whether v < o.
func (v Value) Before(o Value) bool { return v.Cmp(o) < 0 }

// After reports whether v > o.
func (v Value) After(o Value) bool { return v.Cmp(o) > 0 }

// Equal reports whether v == o after normalization.
func (v Value) Equal(o Value) bool { return v.Cmp(o) == 0 }

// Milliseconds returns the whole milliseconds in v, truncating.
func (v Value) Milliseconds() int64 {
	n := v.Normalize()
	return n.Sec*MsecPerSec + n.Usec/1000
}

// Seconds returns v as floating point seconds.
func (v Value) Seconds() float64 {
	n := v.Normalize()
	return float64(n.Sec) + float64(n.Usec)/UsecPerSec
}

// Duration converts v to a time.Duration.
func (v Value) Duration() time.Duration {
	n := v.Normalize()
	return time.Duration(n.Sec)*time.Second + time.Duration(n.Usec)*time.Microsecond
}

// Time converts v, read as a point in time, to a time.Time.
func (v Value) Time() time.Time {
	return time.Unix(v.Sec, v.Usec*1000)
}

// TruncateUsec drops the microseconds below the given resolution.
func (v Value) TruncateUsec(resolution int64) Value {
	if resolution <= 1 {
		return v
	}
	v.Usec = (v.Usec / resolution) * resolution
	return v
}

// String renders v as "seconds.microseconds".
func (v Value) String() string {
	return fmt.Sprintf("%d.%06d", v.Sec, v.Usec)
}

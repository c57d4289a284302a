// Package sampler estimates recent throughput from bucketed byte counts.
package sampler

import (
	"github.com/verte-zerg/ttcp/internal/timeval"
)

const (
	// DefaultWindowMs is how far back samples contribute to the rate.
	DefaultWindowMs = 2000
	// DefaultBucketMs is the timestamp resolution samples are coalesced at.
	DefaultBucketMs = 100
)

type sample struct {
	at     timeval.Value
	nbytes uint64
	next   *sample
}

// Sampler keeps a most-recent-first list of (bucket, bytes) samples.
// It is not safe for concurrent use; each stream owns its own Sampler.
type Sampler struct {
	clock    timeval.Clock
	windowMs int64
	bucketUs int64
	head     *sample
}

// New returns a Sampler reading time from clock.
func New(clock timeval.Clock) *Sampler {
	if clock == nil {
		clock = timeval.SystemClock{}
	}
	return &Sampler{
		clock:    clock,
		windowMs: DefaultWindowMs,
		bucketUs: DefaultBucketMs * 1000,
	}
}

// Report records nbytes and returns the current rate in bytes per second.
func (s *Sampler) Report(nbytes uint64) float64 {
	s.Record(nbytes)
	return s.Rate()
}

// Record adds nbytes to the bucket for the current time.
func (s *Sampler) Record(nbytes uint64) {
	now := s.clock.Now().TruncateUsec(s.bucketUs)
	if s.head != nil && s.head.at.Cmp(now) == 0 {
		s.head.nbytes += nbytes
		return
	}
	s.head = &sample{at: now, nbytes: nbytes, next: s.head}
}

// Rate returns bytes per second over the retained samples and evicts every
// sample older than the window.
func (s *Sampler) Rate() float64 {
	var total uint64
	var elapsedMs int64
	var last *sample
	for ps := s.head; ps != nil; ps = ps.next {
		et := timeval.MillisecondsSince(s.clock, ps.at)
		if et > s.windowMs {
			if last == nil {
				s.head = nil
			} else {
				last.next = nil
			}
			break
		}
		total += ps.nbytes
		elapsedMs = et
		last = ps
	}
	if elapsedMs == 0 {
		return 0
	}
	return float64(total) / (float64(elapsedMs) / timeval.MsecPerSec)
}

// Len returns the number of retained samples.
func (s *Sampler) Len() int {
	n := 0
	for ps := s.head; ps != nil; ps = ps.next {
		n++
	}
	return n
}

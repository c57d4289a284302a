package ticks

import (
	"fmt"
	"io"

	"github.com/verte-zerg/ttcp/internal/sampler"
	"github.com/verte-zerg/ttcp/internal/timeval"
)

// SpinnerInterval is the minimum time between spinner redraws in milliseconds.
const SpinnerInterval = 250

var spinnerGlyphs = [4]byte{'-', '/', '|', '\\'}

// Spinner prints the current rate with a rotating glyph, at most every
// SpinnerInterval.
type Spinner struct {
	w          io.Writer
	clock      timeval.Clock
	sampler    *sampler.Sampler
	formatRate func(float64) string
	last       timeval.Value
	frame      int
	redraws    int
}

// NewSpinner returns a Spinner writing to w.
func NewSpinner(w io.Writer, clock timeval.Clock, s *sampler.Sampler, formatRate func(float64) string) *Spinner {
	if clock == nil {
		clock = timeval.SystemClock{}
	}
	if s == nil {
		s = sampler.New(clock)
	}
	if formatRate == nil {
		formatRate = func(v float64) string { return fmt.Sprintf("%.2f B", v) }
	}
	return &Spinner{w: w, clock: clock, sampler: s, formatRate: formatRate}
}

// Report feeds nbytes to the sampler and redraws when the interval allows.
func (s *Spinner) Report(nbytes uint64) {
	rate := s.sampler.Report(nbytes)
	if !s.last.IsZero() && timeval.MillisecondsSince(s.clock, s.last) < SpinnerInterval {
		return
	}
	s.frame = (s.frame + 1) % len(spinnerGlyphs)
	_, _ = fmt.Fprintf(s.w, "\r%s/s %c  ", s.formatRate(rate), spinnerGlyphs[s.frame])
	s.last = s.clock.Now()
	s.redraws++
}

// Finish ends the spinner line.
func (s *Spinner) Finish() {
	_, _ = io.WriteString(s.w, "\n")
}

// Frame returns the glyph index last drawn.
func (s *Spinner) Frame() int {
	return s.frame
}

// Redraws returns the number of visible updates so far.
func (s *Spinner) Redraws() int {
	return s.redraws
}

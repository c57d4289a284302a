// Package ticks draws progress bars and throughput spinners on a status stream.
package ticks

import (
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/ttcp/internal/sampler"
)

const (
	// DefaultLineLength is the bar width in columns.
	DefaultLineLength = 65
	// rateColumns is the room reserved for the rate prefix.
	rateColumns = 10
)

type barState int

const (
	barUninitialized barState = iota
	barReady
	barDone
)

// BarOptions configures a Bar.
type BarOptions struct {
	// LineLength is the target line width. Default: DefaultLineLength.
	LineLength int
	// Sampler enables the rate prefix when non-nil.
	Sampler *sampler.Sampler
	// FormatRate renders the rate prefix.
	FormatRate func(float64) string
}

// Bar redraws a proportional ASCII bar each time the fill position advances.
type Bar struct {
	w          io.Writer
	opts       BarOptions
	state      barState
	lineLength int
	perTick    float64
	count      int64
	currPos    int
	redraws    int
}

// NewBar returns a Bar writing to w.
func NewBar(w io.Writer, opts BarOptions) *Bar {
	if opts.LineLength <= 0 {
		opts.LineLength = DefaultLineLength
	}
	if opts.FormatRate == nil {
		opts.FormatRate = func(v float64) string { return fmt.Sprintf("%.2f B", v) }
	}
	return &Bar{w: w, opts: opts}
}

// Init prepares the bar for expectedTotal units.
func (b *Bar) Init(expectedTotal int64) {
	b.count = 0
	b.currPos = 0
	b.redraws = 0
	b.lineLength = b.opts.LineLength
	if b.opts.Sampler != nil {
		b.lineLength -= rateColumns
	}
	if b.lineLength < 1 {
		b.lineLength = 1
	}
	b.perTick = float64(expectedTotal) / float64(b.lineLength)
	b.state = barReady
}

// Report adds increment units and redraws if the bar position moved. nbytes
// feeds the rate sampler.
func (b *Bar) Report(increment int64, nbytes uint64) {
	if b.state != barReady {
		return
	}
	b.count += increment

	newPos := b.lineLength
	if b.perTick > 0 {
		newPos = int(float64(b.count) / b.perTick)
	}
	var rate float64
	if b.opts.Sampler != nil {
		rate = b.opts.Sampler.Report(nbytes)
	}
	if newPos == b.currPos {
		return
	}

	var line strings.Builder
	if b.opts.Sampler != nil {
		line.WriteString(b.opts.FormatRate(rate))
		line.WriteString("/s ")
	}
	line.WriteByte('|')
	for i := 0; i < b.lineLength; i++ {
		if i < newPos {
			line.WriteByte('#')
		} else {
			line.WriteByte('-')
		}
	}
	line.WriteString("| \r")
	// Status output is best-effort.
	_, _ = io.WriteString(b.w, line.String())
	b.redraws++
	b.currPos = newPos
}

// Finish ends the bar line.
func (b *Bar) Finish() {
	if b.state == barDone {
		return
	}
	b.state = barDone
	_, _ = io.WriteString(b.w, "\n")
}

// Position returns the last drawn fill position.
func (b *Bar) Position() int {
	return b.currPos
}

// Redraws returns how many times the bar was drawn since Init.
func (b *Bar) Redraws() int {
	return b.redraws
}

// LineLength returns the bar width in use.
func (b *Bar) LineLength() int {
	return b.lineLength
}

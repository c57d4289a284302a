package bench

import "github.com/verte-zerg/ttcp/internal/ticks"

// ProgressObserver advances a progress bar by one tick per buffer.
type ProgressObserver struct {
	bar *ticks.Bar
}

// NewProgressObserver initializes bar for numBufs buffers.
func NewProgressObserver(bar *ticks.Bar, numBufs int) *ProgressObserver {
	bar.Init(int64(numBufs))
	return &ProgressObserver{bar: bar}
}

// Report implements Observer.
func (o *ProgressObserver) Report(n int) {
	o.bar.Report(1, uint64(n))
}

// Finish implements Observer.
func (o *ProgressObserver) Finish() {
	o.bar.Finish()
}

// SpeedObserver feeds every byte count to a spinner.
type SpeedObserver struct {
	spinner *ticks.Spinner
}

// NewSpeedObserver wraps spinner.
func NewSpeedObserver(spinner *ticks.Spinner) *SpeedObserver {
	return &SpeedObserver{spinner: spinner}
}

// Report implements Observer.
func (o *SpeedObserver) Report(n int) {
	o.spinner.Report(uint64(n))
}

// Finish implements Observer.
func (o *SpeedObserver) Finish() {
	o.spinner.Finish()
}

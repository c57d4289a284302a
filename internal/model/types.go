// Package model defines shared data structures.
package model

import "time"

// Run captures a finished transfer as stored in the history database.
type Run struct {
	ID          int64
	StartedAt   time.Time
	EndedAt     time.Time
	Role        string
	Proto       string
	Peer        string
	BufLen      int
	NumBufs     int
	Bytes       int64
	Calls       int64
	RealSeconds float64
	CPUSeconds  float64
	BytesPerSec float64
	Interrupted bool
}

// HistoryFilter selects runs for history output.
type HistoryFilter struct {
	// Role is "t", "r" or empty for both.
	Role string
	// Proto is "tcp", "udp" or empty for both.
	Proto string
	Since *time.Time
	// Last keeps only the most recent N runs when > 0.
	Last int
}

// RunSummary aggregates runs for reporting.
type RunSummary struct {
	Runs       int
	TotalBytes int64
	AvgRate    float64
	BestRate   float64
}

//go:build unix

package timer

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/verte-zerg/ttcp/internal/timeval"
)

// ProcessUsage reads the CPU time of the current process.
func ProcessUsage() (CPUUsage, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return CPUUsage{}, fmt.Errorf("failed to read resource usage: %w", err)
	}
	return CPUUsage{
		User:   timeval.Value{Sec: int64(ru.Utime.Sec), Usec: int64(ru.Utime.Usec)},
		System: timeval.Value{Sec: int64(ru.Stime.Sec), Usec: int64(ru.Stime.Usec)},
	}, nil
}

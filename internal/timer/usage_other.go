//go:build !unix

package timer

// ProcessUsage reports zero CPU time where resource usage is unavailable.
func ProcessUsage() (CPUUsage, error) {
	return CPUUsage{}, nil
}

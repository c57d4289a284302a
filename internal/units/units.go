// Package units formats throughput in the unit selected by a single character.
package units

import (
	"fmt"
	"strings"
)

// Format selects the rate unit.
type Format byte

const (
	Bytes     Format = 'B'
	Kilobytes Format = 'K'
	Megabytes Format = 'M'
	Gigabytes Format = 'G'
	Bits      Format = 'b'
	Kilobits  Format = 'k'
	Megabits  Format = 'm'
	Gigabits  Format = 'g'
)

// Default is used when no format is configured.
const Default = Megabits

const (
	kilo = 1024.0
	mega = kilo * 1024.0
	giga = mega * 1024.0
)

// Valid lists the accepted format characters.
const Valid = "BKMGbkmg"

// ParseFormat validates a format string such as "m" or "K".
func ParseFormat(s string) (Format, error) {
	s = strings.TrimSpace(s)
	if len(s) != 1 || !strings.Contains(Valid, s) {
		return 0, fmt.Errorf("invalid format %q (use one of %s)", s, Valid)
	}
	return Format(s[0]), nil
}

// Scale returns the multiplier that converts bytes/sec into f and the unit
// label. Unknown formats fall back to kilobytes.
func (f Format) Scale() (float64, string) {
	switch f {
	case Bytes:
		return 1, "B"
	case Megabytes:
		return 1 / mega, "MB"
	case Gigabytes:
		return 1 / giga, "GB"
	case Bits:
		return 8, "bit"
	case Kilobits:
		return 8 / kilo, "Kbit"
	case Megabits:
		return 8 / mega, "Mbit"
	case Gigabits:
		return 8 / giga, "Gbit"
	default:
		return 1 / kilo, "KB"
	}
}

// Value converts bytesPerSec into f without formatting.
func Value(bytesPerSec float64, f Format) float64 {
	factor, _ := f.Scale()
	return bytesPerSec * factor
}

// FormatRate renders bytesPerSec in unit f. Unknown formats fall back to kilobytes.
func FormatRate(bytesPerSec float64, f Format) string {
	factor, label := f.Scale()
	return fmt.Sprintf("%.2f %s", bytesPerSec*factor, label)
}

// Formatter returns FormatRate bound to f.
func (f Format) Formatter() func(float64) string {
	return func(bytesPerSec float64) string {
		return FormatRate(bytesPerSec, f)
	}
}

func (f Format) String() string {
	return string(rune(f))
}

// Package report prints the header and final statistics of a transfer.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/ttcp/internal/bench"
	"github.com/verte-zerg/ttcp/internal/timer"
	"github.com/verte-zerg/ttcp/internal/units"
)

// Header describes the transfer before it starts.
type Header struct {
	Role    bench.Role
	BufLen  int
	NumBufs int
	Port    int
	SockBuf int
	Proto   string
	// Host is printed for the transmitter only.
	Host string
}

// HeaderFor builds a Header from transfer options.
func HeaderFor(role bench.Role, opts bench.Options) Header {
	return Header{
		Role:    role,
		BufLen:  opts.BufLen,
		NumBufs: opts.NumBufs,
		Port:    opts.Port,
		SockBuf: opts.SockBuf,
		Proto:   opts.Proto(),
		Host:    opts.Host,
	}
}

// WriteHeader prints the one-line transfer description.
func WriteHeader(w io.Writer, h Header) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: buflen=%d, nbuf=%d, align=%d/%d, port=%d",
		h.Role.Tag(), h.BufLen, h.NumBufs, bench.DefaultAlign, bench.DefaultOffset, h.Port)
	if h.SockBuf > 0 {
		fmt.Fprintf(&b, ", sockbufsize=%d", h.SockBuf)
	}
	if h.Role == bench.Transmit {
		fmt.Fprintf(&b, "  %s  -> %s\n", h.Proto, h.Host)
	} else {
		fmt.Fprintf(&b, "  %s\n", h.Proto)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Write prints the statistics of a finished transfer.
func Write(w io.Writer, res bench.Result, f units.Format, verbose bool) error {
	tag := res.Role.Tag()
	realt := res.Reading.RealSeconds()
	cput := res.Reading.CPUSeconds()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d bytes in %.2f real seconds = %s/sec +++\n",
		tag, res.Bytes, realt, units.FormatRate(float64(res.Bytes)/realt, f))
	if verbose {
		fmt.Fprintf(&b, "%s: %d bytes in %.2f CPU seconds = %s/cpu sec\n",
			tag, res.Bytes, cput, units.FormatRate(float64(res.Bytes)/cput, f))
	}
	calls := float64(res.Calls)
	var msPerCall float64
	if res.Calls > 0 {
		msPerCall = 1024 * realt / calls
	}
	fmt.Fprintf(&b, "%s: %d I/O calls, msec/call = %.2f, calls/sec = %.2f\n",
		tag, res.Calls, msPerCall, calls/realt)
	fmt.Fprintf(&b, "%s: %s\n", tag, Usage(res.Reading))
	if verbose {
		fmt.Fprintf(&b, "%s: %s bytes transferred with %s\n",
			tag, humanize.Comma(int64(res.Bytes)), peerOrUnknown(res.Peer))
	}
	if res.Interrupted {
		fmt.Fprintf(&b, "%s: interrupted\n", tag)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Usage renders the resource summary, e.g. "0.1user 0.3sys 0:02real 20%".
func Usage(r timer.Reading) string {
	return fmt.Sprintf("%suser %ssys %sreal %d%%",
		tenths(r.User.Sec, r.User.Usec), tenths(r.System.Sec, r.System.Usec),
		clock(r.Real.Sec), r.CPUPercent())
}

func tenths(sec, usec int64) string {
	return fmt.Sprintf("%d.%01d", sec, usec/100000)
}

// clock renders whole seconds as M:SS or H:MM:SS.
func clock(secs int64) string {
	if h := secs / 3600; h > 0 {
		rem := secs % 3600
		return fmt.Sprintf("%d:%02d:%02d", h, rem/60, rem%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func peerOrUnknown(peer string) string {
	if peer == "" {
		return "unknown peer"
	}
	return peer
}

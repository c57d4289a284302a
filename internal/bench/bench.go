// Package bench moves buffers across a single TCP or UDP connection and
// measures the transfer.
package bench

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/verte-zerg/ttcp/internal/timer"
	"github.com/verte-zerg/ttcp/internal/timeval"
)

const (
	DefaultPort    = 5001
	DefaultBufLen  = 8 * 1024
	DefaultNumBufs = 2 * 1024
	// DefaultAlign and DefaultOffset are reported in the header only.
	DefaultAlign  = 16 * 1024
	DefaultOffset = 0

	// sentinelLen is the size of the UDP start/end marker datagrams.
	sentinelLen = 4
	// minCopyBufLen is the smallest buffer for copying input over UDP.
	minCopyBufLen = 2 * (sentinelLen + 1)
	// lingerSeconds keeps the TCP close blocking until data is delivered.
	lingerSeconds = 240
	// noBufsDelay is the pause before retrying a UDP send that hit ENOBUFS.
	noBufsDelay = 18 * time.Millisecond
)

// Role is the side of the transfer: 't' transmits, 'r' receives.
type Role byte

const (
	Transmit Role = 't'
	Receive  Role = 'r'
)

// Tag returns the prefix used on every output line, e.g. "ttcp-t".
func (r Role) Tag() string {
	return "ttcp-" + string(rune(r))
}

// Options configures a transfer.
type Options struct {
	Host       string
	Port       int
	UDP        bool
	BufLen     int
	NumBufs    int
	Sink       bool
	SockBuf    int
	NoDelay    bool
	FullBlocks bool
	Touch      bool
	Verbose    bool

	// Stdin feeds the transmitter when Sink is false. Default: empty reader.
	Stdin io.Reader
	// Stdout receives data when Sink is false. Default: io.Discard.
	Stdout io.Writer
	// Log receives diagnostic lines. Default: io.Discard.
	Log io.Writer

	// Ready is called with the bound address once a receiver is listening.
	Ready func(addr net.Addr)

	Clock timeval.Clock
	Usage timer.UsageFunc
}

// Proto returns "udp" or "tcp".
func (o Options) Proto() string {
	if o.UDP {
		return "udp"
	}
	return "tcp"
}

// Address returns host:port for dialing or listening.
func (o Options) Address() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

func (o Options) withDefaults() Options {
	if o.BufLen <= 0 {
		o.BufLen = DefaultBufLen
	}
	if o.UDP && o.BufLen <= sentinelLen {
		o.BufLen = sentinelLen + 1
	}
	// Input copied over UDP may need a merged tail split into two datagrams
	// that both stay longer than a marker.
	if o.UDP && !o.Sink && o.BufLen < minCopyBufLen {
		o.BufLen = minCopyBufLen
	}
	if o.NumBufs <= 0 {
		o.NumBufs = DefaultNumBufs
	}
	if o.Stdin == nil {
		o.Stdin = eofReader{}
	}
	if o.Stdout == nil {
		o.Stdout = io.Discard
	}
	if o.Log == nil {
		o.Log = io.Discard
	}
	if o.Clock == nil {
		o.Clock = timeval.SystemClock{}
	}
	return o
}

// Validate checks options that cannot be defaulted.
func (o Options) Validate(role Role) error {
	if role == Transmit && o.Host == "" {
		return fmt.Errorf("transmit requires a host")
	}
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("port %d out of range", o.Port)
	}
	if o.BufLen < 0 {
		return fmt.Errorf("buffer length must be >= 0")
	}
	if o.NumBufs < 0 {
		return fmt.Errorf("buffer count must be >= 0")
	}
	if o.SockBuf < 0 {
		return fmt.Errorf("socket buffer size must be >= 0")
	}
	return nil
}

// Observer is told about every successful data operation.
type Observer interface {
	Report(n int)
	Finish()
}

type nopObserver struct{}

func (nopObserver) Report(int) {}
func (nopObserver) Finish()    {}

// Result summarizes a finished transfer.
type Result struct {
	Role        Role
	Proto       string
	Peer        string
	BufLen      int
	NumBufs     int
	Bytes       uint64
	Calls       uint64
	Reading     timer.Reading
	StartedAt   time.Time
	EndedAt     time.Time
	Interrupted bool
}

// BytesPerSecond returns throughput over real time.
func (r Result) BytesPerSecond() float64 {
	return float64(r.Bytes) / r.Reading.RealSeconds()
}

// BytesPerCPUSecond returns throughput over CPU time.
func (r Result) BytesPerCPUSecond() float64 {
	return float64(r.Bytes) / r.Reading.CPUSeconds()
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
